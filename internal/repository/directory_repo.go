package repository

import (
	"context"

	"gorm.io/gorm"

	"school-console/backend/internal/model"
)

// DirectoryRepository 外部实体（班级/教师/科目）只读访问接口
// 这些表由控制台其他模块维护，排课引擎仅做存在性校验与名称展示
type DirectoryRepository interface {
	GetBatch(ctx context.Context, orgID, batchID string) (*model.Batch, error)
	BatchExists(ctx context.Context, orgID, batchID string) (bool, error)
	TeacherExists(ctx context.Context, orgID, teacherID string) (bool, error)
	SubjectExists(ctx context.Context, orgID, subjectID string) (bool, error)
}

type directoryRepo struct {
	db *gorm.DB
}

// NewDirectoryRepo 创建 DirectoryRepository 实例
func NewDirectoryRepo(db *gorm.DB) DirectoryRepository {
	return &directoryRepo{db: db}
}

func (r *directoryRepo) GetBatch(ctx context.Context, orgID, batchID string) (*model.Batch, error) {
	var batch model.Batch
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND organization_id = ?", batchID, orgID).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *directoryRepo) BatchExists(ctx context.Context, orgID, batchID string) (bool, error) {
	return r.exists(ctx, &model.Batch{}, "batch_id", orgID, batchID)
}

func (r *directoryRepo) TeacherExists(ctx context.Context, orgID, teacherID string) (bool, error) {
	return r.exists(ctx, &model.Teacher{}, "teacher_id", orgID, teacherID)
}

func (r *directoryRepo) SubjectExists(ctx context.Context, orgID, subjectID string) (bool, error) {
	return r.exists(ctx, &model.Subject{}, "subject_id", orgID, subjectID)
}

func (r *directoryRepo) exists(ctx context.Context, mdl interface{}, idColumn, orgID, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(mdl).
		Where(idColumn+" = ? AND organization_id = ? AND is_active = ?", id, orgID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
