package dto

// ── 作息模板模块 DTO ──

// TemplateSlotInput 模板时段输入
// period_number 与 is_break 互斥：教学时段必须携带节次号，休息时段必须省略
type TemplateSlotInput struct {
	PeriodNumber *int    `json:"period_number" binding:"omitempty,min=1,max=20"`
	StartTime    string  `json:"start_time"    binding:"required"` // "09:30"
	EndTime      string  `json:"end_time"      binding:"required"` // "10:15"
	IsBreak      bool    `json:"is_break"`
	BreakName    *string `json:"break_name"    binding:"omitempty,max=50"`
}

// CreatePeriodTemplateRequest 创建作息模板请求
type CreatePeriodTemplateRequest struct {
	Name       string              `json:"name"        binding:"required,min=2,max=100"`
	ActiveDays []int               `json:"active_days" binding:"required,min=1,max=6,dive,min=1,max=6"`
	Slots      []TemplateSlotInput `json:"slots"       binding:"required,min=1,dive"`
	IsDefault  bool                `json:"is_default"`
}

// UpdatePeriodTemplateRequest 更新作息模板请求
// slots 为 nil 表示不改动时段；传空数组会被校验拒绝
type UpdatePeriodTemplateRequest struct {
	Name       *string              `json:"name"        binding:"omitempty,min=2,max=100"`
	ActiveDays *[]int               `json:"active_days" binding:"omitempty,min=1,max=6,dive,min=1,max=6"`
	Slots      *[]TemplateSlotInput `json:"slots"       binding:"omitempty,dive"`
	IsDefault  *bool                `json:"is_default"`
	Version    int                  `json:"version"     binding:"required,min=1"`
}

// TemplateSlotResponse 模板时段响应
type TemplateSlotResponse struct {
	ID           string  `json:"id"`
	PeriodNumber *int    `json:"period_number,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	IsBreak      bool    `json:"is_break"`
	BreakName    *string `json:"break_name,omitempty"`
}

// PeriodTemplateResponse 作息模板响应
type PeriodTemplateResponse struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	ActiveDays []int                  `json:"active_days"`
	IsDefault  bool                   `json:"is_default"`
	Slots      []TemplateSlotResponse `json:"slots"`
	CreatedAt  string                 `json:"created_at"`
	UpdatedAt  string                 `json:"updated_at"`
	Version    int                    `json:"version"`
}

// DeriveTemplateRequest 从已编排课表反推模板请求
type DeriveTemplateRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	IsDefault bool   `json:"is_default"`
}

// DeriveTemplateResponse 反推模板响应
// 休息时段从不落库为课节，无法从课表还原，derived_without_breaks 恒为 true，
// 提示前端反推结果不含课间休息
type DeriveTemplateResponse struct {
	Template             PeriodTemplateResponse `json:"template"`
	SourceBatchID        string                 `json:"source_batch_id"`
	DerivedWithoutBreaks bool                   `json:"derived_without_breaks"`
}
