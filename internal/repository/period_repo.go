package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"school-console/backend/internal/model"
	pkgerrors "school-console/backend/pkg/errors"
)

// PeriodRepository 课节数据访问接口
type PeriodRepository interface {
	ListByBatch(ctx context.Context, orgID, batchID string) ([]model.Period, error)
	GetByCell(ctx context.Context, orgID, batchID string, dayOfWeek, periodNumber int) (*model.Period, error)
	// ListByTeacherAndDay 查询某教师某天在全机构范围内的课节（跨班级），
	// excludePeriodID 非空时排除正在写入的课节自身
	ListByTeacherAndDay(ctx context.Context, orgID, teacherID string, dayOfWeek int, excludePeriodID string) ([]model.Period, error)
	// ReplaceByBatch 在单个事务中全量替换班级课表：先删除旧课节，再批量插入新课节。
	// 事务持有班级咨询锁以及新课表涉及的每个 (教师, 星期) 咨询锁，并在锁内
	// 复查跨班级教师占用，封死预检与写入之间的竞态窗口；检出冲突时返回
	// (0, 冲突课节, pkgerrors.ErrTeacherConflict)。任何错误回滚后旧课表完整保留。
	// 返回被删除的旧课节数，periods 为空即为"清空课表"，天然幂等
	ReplaceByBatch(ctx context.Context, orgID, batchID string, periods []model.Period) (int64, *model.Period, error)
	// AssignGuarded 在单个事务中完成"教师占用检查 + 乐观锁写入"。
	// 事务内按 (机构, 教师, 星期) 加咨询锁封死检查与写入之间的竞态窗口；
	// 检出冲突时返回 (冲突课节, pkgerrors.ErrTeacherConflict)，目标课节不被改动；
	// 版本不匹配返回 pkgerrors.ErrOptimisticLock
	AssignGuarded(ctx context.Context, period *model.Period, subjectID, teacherID *string) (*model.Period, error)
}

type periodRepo struct {
	db *gorm.DB
}

// NewPeriodRepo 创建 PeriodRepository 实例
func NewPeriodRepo(db *gorm.DB) PeriodRepository {
	return &periodRepo{db: db}
}

func (r *periodRepo) ListByBatch(ctx context.Context, orgID, batchID string) ([]model.Period, error) {
	var periods []model.Period
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Preload("Teacher").
		Where("organization_id = ? AND batch_id = ?", orgID, batchID).
		Order("day_of_week ASC, start_time ASC").
		Find(&periods).Error
	return periods, err
}

func (r *periodRepo) GetByCell(ctx context.Context, orgID, batchID string, dayOfWeek, periodNumber int) (*model.Period, error) {
	var period model.Period
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Preload("Teacher").
		Where("organization_id = ? AND batch_id = ? AND day_of_week = ? AND period_number = ?",
			orgID, batchID, dayOfWeek, periodNumber).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepo) ListByTeacherAndDay(ctx context.Context, orgID, teacherID string, dayOfWeek int, excludePeriodID string) ([]model.Period, error) {
	var periods []model.Period
	db := r.db.WithContext(ctx).
		Preload("Batch").
		Where("organization_id = ? AND teacher_id = ? AND day_of_week = ?", orgID, teacherID, dayOfWeek)
	if excludePeriodID != "" {
		db = db.Where("period_id <> ?", excludePeriodID)
	}
	err := db.Order("start_time ASC").Find(&periods).Error
	return periods, err
}

func (r *periodRepo) ReplaceByBatch(ctx context.Context, orgID, batchID string, periods []model.Period) (int64, *model.Period, error) {
	var removed int64
	var conflict *model.Period
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 班级级单写者：编排期间并发的分配会阻塞到本事务提交，
		// 然后因课节已被替换而命中乐观锁失败，绝不会静默丢失
		if err := acquireBatchLock(tx, orgID, batchID); err != nil {
			return err
		}

		// 新课表涉及的每个 (教师, 星期) 也加锁，与并发的分配以及其他班级的
		// 全量替换互斥；按固定顺序加锁，避免两个替换相互等待
		for _, key := range teacherLockKeys(periods) {
			if err := acquireTeacherLock(tx, orgID, key.teacherID, key.dayOfWeek); err != nil {
				return err
			}
		}

		// 硬删除旧课表（全量替换场景，显式策略：旧的分配一并丢弃）
		result := tx.Where("organization_id = ? AND batch_id = ?", orgID, batchID).
			Delete(&model.Period{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected

		// 锁内复查跨班级占用：服务层预检之后、本事务加锁之前，
		// 其他班级可能已为同一教师写入重叠课节
		for i := range periods {
			p := &periods[i]
			if p.TeacherID == nil {
				continue
			}
			var other model.Period
			err := tx.Preload("Batch").
				Where("organization_id = ? AND teacher_id = ? AND day_of_week = ? AND batch_id <> ?",
					orgID, *p.TeacherID, p.DayOfWeek, batchID).
				// 半开区间重叠：[start, end) 相交；首尾相接不算冲突
				Where("start_time < ? AND end_time > ?", p.EndTime, p.StartTime).
				First(&other).Error
			if err == nil {
				conflict = &other
				return pkgerrors.ErrTeacherConflict
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if len(periods) > 0 {
			if err := tx.Create(&periods).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, conflict, err
	}
	return removed, nil, nil
}

// teacherDayKey (教师, 星期) 咨询锁键
type teacherDayKey struct {
	teacherID string
	dayOfWeek int
}

// teacherLockKeys 收集课节集合中去重后的 (教师, 星期) 锁键并排序
func teacherLockKeys(periods []model.Period) []teacherDayKey {
	seen := make(map[teacherDayKey]bool, len(periods))
	keys := make([]teacherDayKey, 0, len(periods))
	for i := range periods {
		if periods[i].TeacherID == nil {
			continue
		}
		k := teacherDayKey{teacherID: *periods[i].TeacherID, dayOfWeek: periods[i].DayOfWeek}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].teacherID != keys[b].teacherID {
			return keys[a].teacherID < keys[b].teacherID
		}
		return keys[a].dayOfWeek < keys[b].dayOfWeek
	})
	return keys
}

func (r *periodRepo) AssignGuarded(ctx context.Context, period *model.Period, subjectID, teacherID *string) (*model.Period, error) {
	var conflict *model.Period
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := acquireBatchLock(tx, period.OrganizationID, period.BatchID); err != nil {
			return err
		}

		// 教师变更时在写事务内复查占用，锁住 (机构, 教师, 星期) 序列化同教师的并发分配
		if teacherID != nil && (period.TeacherID == nil || *period.TeacherID != *teacherID) {
			if err := acquireTeacherLock(tx, period.OrganizationID, *teacherID, period.DayOfWeek); err != nil {
				return err
			}

			var other model.Period
			err := tx.Preload("Batch").
				Where("organization_id = ? AND teacher_id = ? AND day_of_week = ? AND period_id <> ?",
					period.OrganizationID, *teacherID, period.DayOfWeek, period.PeriodID).
				// 半开区间重叠：[start, end) 相交；首尾相接不算冲突
				Where("start_time < ? AND end_time > ?", period.EndTime, period.StartTime).
				First(&other).Error
			if err == nil {
				conflict = &other
				return pkgerrors.ErrTeacherConflict
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		oldVersion := period.Version
		result := tx.Model(&model.Period{}).
			Where("period_id = ? AND version = ?", period.PeriodID, oldVersion).
			Updates(map[string]interface{}{
				"subject_id": subjectID,
				"teacher_id": teacherID,
				"updated_by": period.UpdatedBy,
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		period.SubjectID = subjectID
		period.TeacherID = teacherID
		period.Version = oldVersion + 1
		return nil
	})
	if err != nil {
		return conflict, err
	}
	return nil, nil
}

// ── 事务级咨询锁 ──
//
// pg_advisory_xact_lock 随事务提交/回滚自动释放，键由 hashtext 折叠

func acquireBatchLock(tx *gorm.DB, orgID, batchID string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))",
		fmt.Sprintf("schedule:batch:%s:%s", orgID, batchID)).Error
}

func acquireTeacherLock(tx *gorm.DB, orgID, teacherID string, dayOfWeek int) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))",
		fmt.Sprintf("schedule:teacher:%s:%s:%d", orgID, teacherID, dayOfWeek)).Error
}
