package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"school-console/backend/internal/dto"
	"school-console/backend/internal/model"
	"school-console/backend/internal/repository"
)

// ── 教师占用检测 ──────────────────────────────────────────────
//
// 设计说明：
//   - 纯查询 + 区间比较，本身不写任何状态。
//   - 重叠判定按半开区间 [start, end)：首尾相接（上一节 10:15 结束、
//     下一节 10:15 开始）不算冲突。
//   - 这里的检测用于对外的 check-conflict 接口与写前预检，给出完整的
//     冲突详情；写入路径（单课节分配与全量替换）在 Repository 事务内
//     持咨询锁复查同一谓词，封死检查与写入之间的竞态窗口。
// ─────────────────────────────────────────────────────────────

// ConflictError 教师占用冲突，携带可供前端直接渲染的冲突详情
type ConflictError struct {
	Detail dto.ConflictDetail
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("教师占用冲突: 班级 %s 周%d 第%d节 %s-%s",
		e.Detail.BatchName, e.Detail.DayOfWeek, e.Detail.PeriodNumber,
		e.Detail.StartTime, e.Detail.EndTime)
}

// ConflictValidator 教师占用检测接口
type ConflictValidator interface {
	// Check 检测教师在指定时间窗是否已被其他课节占用（跨班级）。
	// excludePeriodID 排除正在写入的课节自身；无冲突返回 nil
	Check(ctx context.Context, orgID, teacherID string, dayOfWeek int, startTime, endTime, excludePeriodID string) (*dto.ConflictDetail, error)
	// CheckExcludingBatch 同 Check，但排除整个班级的课节。
	// 用于全量替换课表：被替换班级的旧课节即将删除，不应参与占用判定
	CheckExcludingBatch(ctx context.Context, orgID, teacherID string, dayOfWeek int, startTime, endTime, excludeBatchID string) (*dto.ConflictDetail, error)
}

type conflictValidator struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewConflictValidator 创建 ConflictValidator 实例
func NewConflictValidator(repo *repository.Repository, logger *zap.Logger) ConflictValidator {
	return &conflictValidator{repo: repo, logger: logger}
}

func (v *conflictValidator) Check(ctx context.Context, orgID, teacherID string, dayOfWeek int, startTime, endTime, excludePeriodID string) (*dto.ConflictDetail, error) {
	periods, err := v.repo.Period.ListByTeacherAndDay(ctx, orgID, teacherID, dayOfWeek, excludePeriodID)
	if err != nil {
		v.logger.Error("查询教师课节失败", zap.Error(err))
		return nil, err
	}
	return findOverlap(periods, teacherID, startTime, endTime, ""), nil
}

func (v *conflictValidator) CheckExcludingBatch(ctx context.Context, orgID, teacherID string, dayOfWeek int, startTime, endTime, excludeBatchID string) (*dto.ConflictDetail, error) {
	periods, err := v.repo.Period.ListByTeacherAndDay(ctx, orgID, teacherID, dayOfWeek, "")
	if err != nil {
		v.logger.Error("查询教师课节失败", zap.Error(err))
		return nil, err
	}
	return findOverlap(periods, teacherID, startTime, endTime, excludeBatchID), nil
}

// findOverlap 在候选课节中找第一个与 [startTime, endTime) 重叠的课节
func findOverlap(periods []model.Period, teacherID, startTime, endTime, excludeBatchID string) *dto.ConflictDetail {
	for i := range periods {
		p := &periods[i]
		if excludeBatchID != "" && p.BatchID == excludeBatchID {
			continue
		}
		if timesOverlap(startTime, endTime, p.StartTime, p.EndTime) {
			return conflictDetailOf(p, teacherID)
		}
	}
	return nil
}

// timesOverlap 半开区间 [aStart, aEnd) 与 [bStart, bEnd) 是否相交
// "HH:MM" 零填充格式下字符串比较与时间比较等价
func timesOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}

// conflictDetailOf 由冲突课节构建详情
func conflictDetailOf(p *model.Period, teacherID string) *dto.ConflictDetail {
	detail := &dto.ConflictDetail{
		PeriodID:     p.PeriodID,
		BatchID:      p.BatchID,
		TeacherID:    teacherID,
		DayOfWeek:    p.DayOfWeek,
		PeriodNumber: p.PeriodNumber,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
	}
	if p.Batch != nil {
		detail.BatchName = p.Batch.Name
	}
	return detail
}
