package model

import "gorm.io/gorm"

// Period 课节表 — 对应 periods
//
// 一个班级在某天某节次的具体安排，由编排器从模板批量生成。
// (organization_id, batch_id, day_of_week, period_number) 唯一；
// start_time/end_time/period_number 在编排后不可变，只有科目与教师可被改写
type Period struct {
	PeriodID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	OrganizationID string  `gorm:"type:uuid;not null"                             json:"organization_id"`
	BatchID        string  `gorm:"type:uuid;not null"                             json:"batch_id"`
	DayOfWeek      int     `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1=周一 … 6=周六
	PeriodNumber   int     `gorm:"type:smallint;not null"                         json:"period_number"`
	StartTime      string  `gorm:"type:time;not null"                             json:"start_time"` // "HH:MM"
	EndTime        string  `gorm:"type:time;not null"                             json:"end_time"`
	SubjectID      *string `gorm:"type:uuid"                                      json:"subject_id,omitempty"`
	TeacherID      *string `gorm:"type:uuid"                                      json:"teacher_id,omitempty"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	// 关联
	Batch   *Batch   `gorm:"foreignKey:BatchID;references:BatchID"     json:"batch,omitempty"`
	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID" json:"subject,omitempty"`
	Teacher *Teacher `gorm:"foreignKey:TeacherID;references:TeacherID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Period) TableName() string { return "periods" }

// AfterFind 回读时把 time 列的 "HH:MM:SS" 归一为 "HH:MM"
func (p *Period) AfterFind(*gorm.DB) error {
	p.StartTime = truncateClock(p.StartTime)
	p.EndTime = truncateClock(p.EndTime)
	return nil
}

// Assigned 是否已分配教师
func (p *Period) Assigned() bool { return p.TeacherID != nil }
