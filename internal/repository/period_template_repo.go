package repository

import (
	"context"

	"gorm.io/gorm"

	"school-console/backend/internal/model"
	pkgerrors "school-console/backend/pkg/errors"
)

// PeriodTemplateRepository 作息模板数据访问接口
type PeriodTemplateRepository interface {
	// Create 创建模板及其时段；is_default 为 true 时在同一事务中
	// 清除机构内原默认模板的标记（单写者约束）
	Create(ctx context.Context, tpl *model.PeriodTemplate) error
	// Update 乐观锁更新模板；slots 非 nil 时全量替换时段
	Update(ctx context.Context, tpl *model.PeriodTemplate, slots []model.PeriodTemplateSlot) error
	GetByID(ctx context.Context, orgID, id string) (*model.PeriodTemplate, error)
	// GetDefault 读取机构默认模板；不存在时返回 gorm.ErrRecordNotFound
	GetDefault(ctx context.Context, orgID string) (*model.PeriodTemplate, error)
	List(ctx context.Context, orgID string) ([]model.PeriodTemplate, error)
}

type periodTemplateRepo struct {
	db *gorm.DB
}

// NewPeriodTemplateRepo 创建 PeriodTemplateRepository 实例
func NewPeriodTemplateRepo(db *gorm.DB) PeriodTemplateRepository {
	return &periodTemplateRepo{db: db}
}

func (r *periodTemplateRepo) Create(ctx context.Context, tpl *model.PeriodTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := clearDefaultFlag(tx, tpl.OrganizationID, ""); err != nil {
				return err
			}
		}
		// Slots 作为关联随模板一并写入
		return tx.Create(tpl).Error
	})
}

func (r *periodTemplateRepo) Update(ctx context.Context, tpl *model.PeriodTemplate, slots []model.PeriodTemplateSlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := clearDefaultFlag(tx, tpl.OrganizationID, tpl.TemplateID); err != nil {
				return err
			}
		}

		oldVersion := tpl.Version
		result := tx.Model(&model.PeriodTemplate{}).
			Where("template_id = ? AND organization_id = ? AND version = ?",
				tpl.TemplateID, tpl.OrganizationID, oldVersion).
			Updates(map[string]interface{}{
				"name":        tpl.Name,
				"active_days": tpl.ActiveDays,
				"is_default":  tpl.IsDefault,
				"updated_by":  tpl.UpdatedBy,
				"version":     oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		tpl.Version = oldVersion + 1

		// 时段全量替换：模板编辑不回溯已编排课表，旧时段无保留价值
		if slots != nil {
			if err := tx.Where("template_id = ?", tpl.TemplateID).
				Delete(&model.PeriodTemplateSlot{}).Error; err != nil {
				return err
			}
			if len(slots) > 0 {
				if err := tx.Create(&slots).Error; err != nil {
					return err
				}
			}
			tpl.Slots = slots
		}
		return nil
	})
}

func (r *periodTemplateRepo) GetByID(ctx context.Context, orgID, id string) (*model.PeriodTemplate, error) {
	var tpl model.PeriodTemplate
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("template_id = ? AND organization_id = ?", id, orgID).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *periodTemplateRepo) GetDefault(ctx context.Context, orgID string) (*model.PeriodTemplate, error) {
	var tpl model.PeriodTemplate
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("organization_id = ? AND is_default = ?", orgID, true).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *periodTemplateRepo) List(ctx context.Context, orgID string) ([]model.PeriodTemplate, error) {
	var tpls []model.PeriodTemplate
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&tpls).Error
	return tpls, err
}

// clearDefaultFlag 清除机构内其他模板的默认标记
func clearDefaultFlag(tx *gorm.DB, orgID, exceptID string) error {
	db := tx.Model(&model.PeriodTemplate{}).
		Where("organization_id = ? AND is_default = ?", orgID, true)
	if exceptID != "" {
		db = db.Where("template_id <> ?", exceptID)
	}
	return db.Update("is_default", false).Error
}
