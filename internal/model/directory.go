package model

import "time"

// ── 外部协作方实体 ──
//
// 班级 / 教师 / 科目的生命周期由控制台其他模块管理，
// 排课引擎只做存在性校验与名称展示，绝不写入这些表

// Batch 班级引用表 — 对应 batches
type Batch struct {
	BatchID        string    `gorm:"type:uuid;primaryKey" json:"batch_id"`
	OrganizationID string    `gorm:"type:uuid;not null"   json:"organization_id"`
	Name           string    `gorm:"type:varchar(100)"    json:"name"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Batch) TableName() string { return "batches" }

// Teacher 教师引用表 — 对应 teachers
type Teacher struct {
	TeacherID      string    `gorm:"type:uuid;primaryKey" json:"teacher_id"`
	OrganizationID string    `gorm:"type:uuid;not null"   json:"organization_id"`
	Name           string    `gorm:"type:varchar(100)"    json:"name"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Teacher) TableName() string { return "teachers" }

// Subject 科目引用表 — 对应 subjects
type Subject struct {
	SubjectID      string    `gorm:"type:uuid;primaryKey" json:"subject_id"`
	OrganizationID string    `gorm:"type:uuid;not null"   json:"organization_id"`
	Name           string    `gorm:"type:varchar(100)"    json:"name"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
