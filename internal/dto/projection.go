package dto

// ── 课表投影 DTO ──
//
// 网格与日历是同一份课节快照的两种只读视图，
// 投影本身不触发编排或写入，对缺天缺节的数据宽容呈现

// GridCell 网格单元：某天某节次的课节；未编排的单元为 null
type GridCell struct {
	PeriodID    string  `json:"period_id"`
	SubjectID   *string `json:"subject_id,omitempty"`
	SubjectName string  `json:"subject_name,omitempty"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	TeacherName string  `json:"teacher_name,omitempty"`
	Assigned    bool    `json:"assigned"`
}

// GridRow 网格行：对应一个模板时段（含休息行），按 start_time 升序
// 休息行在所有列上呈现一致，cells 为空
type GridRow struct {
	PeriodNumber *int        `json:"period_number,omitempty"`
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
	IsBreak      bool        `json:"is_break"`
	BreakName    *string     `json:"break_name,omitempty"`
	Cells        []*GridCell `json:"cells"` // 与 days 等长；休息行为 nil
}

// GridResponse 网格投影响应
type GridResponse struct {
	BatchID string    `json:"batch_id"`
	Days    []int     `json:"days"` // 升序的 active days
	Rows    []GridRow `json:"rows"`
}

// CalendarDay 日历投影的一天：该天的课节按 start_time 升序
// 没有课节的天不出现在响应中
type CalendarDay struct {
	DayOfWeek int              `json:"day_of_week"`
	Periods   []PeriodResponse `json:"periods"`
}

// CalendarResponse 日历投影响应
type CalendarResponse struct {
	BatchID string        `json:"batch_id"`
	Days    []CalendarDay `json:"days"`
}

// PrintableResponse 打印投影：网格的确定性非交互变体
type PrintableResponse struct {
	Title    string       `json:"title"`
	BatchID  string       `json:"batch_id"`
	DayNames []string     `json:"day_names"`
	Grid     GridResponse `json:"grid"`
}
