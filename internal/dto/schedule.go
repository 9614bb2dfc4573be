package dto

// ── 课表模块 DTO ──

// InitializeScheduleRequest 按模板编排课表请求
type InitializeScheduleRequest struct {
	TemplateID string `json:"template_id" binding:"required,uuid"`
}

// SetSchedulePeriodInput 全量写课表的单个课节输入
type SetSchedulePeriodInput struct {
	DayOfWeek    int     `json:"day_of_week"   binding:"required,min=1,max=6"`
	PeriodNumber int     `json:"period_number" binding:"required,min=1,max=20"`
	StartTime    string  `json:"start_time"    binding:"required"`
	EndTime      string  `json:"end_time"      binding:"required"`
	SubjectID    *string `json:"subject_id"    binding:"omitempty,uuid"`
	TeacherID    *string `json:"teacher_id"    binding:"omitempty,uuid"`
}

// SetScheduleRequest 全量写课表请求；periods 为空数组 ⇒ 清空课表
type SetScheduleRequest struct {
	Periods []SetSchedulePeriodInput `json:"periods"`
}

// AssignPeriodRequest 单课节分配请求
// 只允许改写科目与教师；节次/时间在编排后不可变
type AssignPeriodRequest struct {
	DayOfWeek    int     `json:"day_of_week"   binding:"required,min=1,max=6"`
	PeriodNumber int     `json:"period_number" binding:"required,min=1,max=20"`
	SubjectID    *string `json:"subject_id"    binding:"omitempty,uuid"`
	TeacherID    *string `json:"teacher_id"    binding:"omitempty,uuid"`
	Version      int     `json:"version"       binding:"required,min=1"`
}

// PeriodResponse 课节信息响应
type PeriodResponse struct {
	ID           string  `json:"id"`
	BatchID      string  `json:"batch_id"`
	DayOfWeek    int     `json:"day_of_week"`
	PeriodNumber int     `json:"period_number"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	SubjectID    *string `json:"subject_id,omitempty"`
	SubjectName  string  `json:"subject_name,omitempty"`
	TeacherID    *string `json:"teacher_id,omitempty"`
	TeacherName  string  `json:"teacher_name,omitempty"`
	Version      int     `json:"version"`
}

// ScheduleResponse 班级课表响应
type ScheduleResponse struct {
	BatchID string           `json:"batch_id"`
	Periods []PeriodResponse `json:"periods"`
}

// SetScheduleResponse 全量写课表响应
type SetScheduleResponse struct {
	BatchID      string           `json:"batch_id"`
	Periods      []PeriodResponse `json:"periods"`
	RemovedCount int64            `json:"removed_count"`
}

// CheckConflictRequest 教师占用检测请求
type CheckConflictRequest struct {
	TeacherID       string  `json:"teacher_id"        binding:"required,uuid"`
	DayOfWeek       int     `json:"day_of_week"       binding:"required,min=1,max=6"`
	StartTime       string  `json:"start_time"        binding:"required"`
	EndTime         string  `json:"end_time"          binding:"required"`
	ExcludePeriodID *string `json:"exclude_period_id" binding:"omitempty,uuid"`
}

// ConflictDetail 教师占用冲突详情
// 指向与写入目标时间窗重叠的另一班级课节，供管理员人工处理
type ConflictDetail struct {
	PeriodID     string `json:"period_id"`
	BatchID      string `json:"batch_id"`
	BatchName    string `json:"batch_name,omitempty"`
	TeacherID    string `json:"teacher_id"`
	DayOfWeek    int    `json:"day_of_week"`
	PeriodNumber int    `json:"period_number"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// CheckConflictResponse 教师占用检测响应；conflict 为 null 表示无冲突
type CheckConflictResponse struct {
	Conflict *ConflictDetail `json:"conflict"`
}
