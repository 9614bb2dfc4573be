package model

import "gorm.io/gorm"

// PeriodTemplate 作息模板表 — 对应 period_templates
// 机构内可复用的一周课节布局；编辑不回溯已编排的课表，需重新编排生效
type PeriodTemplate struct {
	TemplateID     string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	OrganizationID string   `gorm:"type:uuid;not null"                             json:"organization_id"`
	Name           string   `gorm:"type:varchar(100);not null"                     json:"name"`
	ActiveDays     IntArray `gorm:"type:int[];not null"                            json:"active_days"` // 1=周一 … 6=周六
	IsDefault      bool     `gorm:"not null;default:false"                         json:"is_default"`
	VersionedModel

	// 关联
	Slots []PeriodTemplateSlot `gorm:"foreignKey:TemplateID" json:"slots,omitempty"`
}

// TableName 指定表名
func (PeriodTemplate) TableName() string { return "period_templates" }

// TeachingSlots 过滤出教学时段（按 start_time 排序依赖查询层）
func (t *PeriodTemplate) TeachingSlots() []PeriodTemplateSlot {
	out := make([]PeriodTemplateSlot, 0, len(t.Slots))
	for _, s := range t.Slots {
		if !s.IsBreak {
			out = append(out, s)
		}
	}
	return out
}

// PeriodTemplateSlot 作息模板时段表 — 对应 period_template_slots
//
// 带标签的变体：教学时段（PeriodNumber 非空）或课间休息（IsBreak + BreakName）。
// 数据库 CHECK 约束与这里的访问方法共同保证休息时段永远不会携带节次号，
// 编排器因此不可能为休息时段生成课节
type PeriodTemplateSlot struct {
	SlotID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	TemplateID   string  `gorm:"type:uuid;not null"                             json:"template_id"`
	PeriodNumber *int    `gorm:"type:smallint"                                  json:"period_number,omitempty"` // 休息时段为 NULL
	StartTime    string  `gorm:"type:time;not null"                             json:"start_time"`              // "HH:MM"，机构本地时间
	EndTime      string  `gorm:"type:time;not null"                             json:"end_time"`
	IsBreak      bool    `gorm:"not null;default:false"                         json:"is_break"`
	BreakName    *string `gorm:"type:varchar(50)"                               json:"break_name,omitempty"`
}

// TableName 指定表名
func (PeriodTemplateSlot) TableName() string { return "period_template_slots" }

// AfterFind 回读时把 time 列的 "HH:MM:SS" 归一为 "HH:MM"
func (s *PeriodTemplateSlot) AfterFind(*gorm.DB) error {
	s.StartTime = truncateClock(s.StartTime)
	s.EndTime = truncateClock(s.EndTime)
	return nil
}
