package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-console/backend/internal/dto"
	"school-console/backend/internal/model"
	"school-console/backend/internal/repository"
	pkgerrors "school-console/backend/pkg/errors"
)

// ── 课表模块业务错误 ──

var (
	ErrBatchNotFound   = errors.New("班级不存在")
	ErrPeriodNotFound  = errors.New("课节不存在")
	ErrTeacherNotFound = errors.New("教师不存在")
	ErrSubjectNotFound = errors.New("科目不存在")
)

// ScheduleService 班级周课表业务接口
//
// 设计说明：
//   - 编排（Initialize）与全量写（Set）采用全量替换策略，在单个事务中
//     "删除旧课节 → 批量插入新课节"，由班级咨询锁保证单写者；
//     失败时旧课表原样保留，不存在可观察的部分覆盖。
//   - 重新编排总是丢弃既有的科目/教师分配（显式策略，不做按节次保留）。
//   - 单课节分配（Assign）只改写科目与教师；教师变更在写事务内做占用
//     复查，冲突时目标课节保持不变并返回冲突详情。
//   - 并发写同一课节按"先写者胜"：后写者携带过期版本号，命中乐观锁
//     失败（STALE_WRITE），由前端刷新后重试。
type ScheduleService interface {
	// Get 获取班级课表
	Get(ctx context.Context, orgID, batchID string) (*dto.ScheduleResponse, error)
	// Initialize 按模板编排课表：active_days × 教学时段 展开为课节，
	// 科目与教师为空；全量替换该班级既有课表
	Initialize(ctx context.Context, orgID, batchID, templateID, callerID string) (*dto.ScheduleResponse, error)
	// Set 全量写课表；periods 为空 ⇒ 清空（幂等，重复清空报告删除 0 行）
	Set(ctx context.Context, orgID, batchID string, req *dto.SetScheduleRequest, callerID string) (*dto.SetScheduleResponse, error)
	// Assign 分配单课节的科目/教师
	Assign(ctx context.Context, orgID, batchID string, req *dto.AssignPeriodRequest, callerID string) (*dto.PeriodResponse, error)
	// CheckConflict 教师占用检测（只读）
	CheckConflict(ctx context.Context, orgID string, req *dto.CheckConflictRequest) (*dto.CheckConflictResponse, error)
}

type scheduleService struct {
	repo      *repository.Repository
	validator ConflictValidator
	logger    *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, validator ConflictValidator, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, validator: validator, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Get — 获取班级课表
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Get(ctx context.Context, orgID, batchID string) (*dto.ScheduleResponse, error) {
	if err := s.requireBatch(ctx, orgID, batchID); err != nil {
		return nil, err
	}

	periods, err := s.repo.Period.ListByBatch(ctx, orgID, batchID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.Error(err))
		return nil, err
	}

	return &dto.ScheduleResponse{
		BatchID: batchID,
		Periods: toPeriodResponses(periods),
	}, nil
}

// ════════════════════════════════════════════════════════════
// Initialize — 按模板编排课表
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 校验班级与模板（任何校验失败都发生在替换之前，旧课表不受影响）
//  2. active_days × 教学时段 展开为课节，休息时段被类型系统排除在外
//  3. 单事务全量替换

func (s *scheduleService) Initialize(ctx context.Context, orgID, batchID, templateID, callerID string) (*dto.ScheduleResponse, error) {
	if err := s.requireBatch(ctx, orgID, batchID); err != nil {
		return nil, err
	}

	tpl, err := s.repo.Template.GetByID(ctx, orgID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询作息模板失败", zap.Error(err))
		return nil, err
	}

	teaching := tpl.TeachingSlots()
	periods := make([]model.Period, 0, len(tpl.ActiveDays)*len(teaching))
	for _, day := range tpl.ActiveDays {
		for _, slot := range teaching {
			periods = append(periods, model.Period{
				PeriodID:       uuid.New().String(),
				OrganizationID: orgID,
				BatchID:        batchID,
				DayOfWeek:      day,
				PeriodNumber:   *slot.PeriodNumber,
				StartTime:      slot.StartTime,
				EndTime:        slot.EndTime,
				BaseModel:      model.BaseModel{CreatedBy: &callerID, UpdatedBy: &callerID},
				Version:        1,
			})
		}
	}

	if _, _, err := s.repo.Period.ReplaceByBatch(ctx, orgID, batchID, periods); err != nil {
		s.logger.Error("编排课表事务失败", zap.Error(err), zap.String("batch_id", batchID))
		return nil, fmt.Errorf("编排课表失败: %w", err)
	}

	s.logger.Info("课表编排完成",
		zap.String("batch_id", batchID),
		zap.String("template_id", templateID),
		zap.Int("period_count", len(periods)),
	)

	return s.Get(ctx, orgID, batchID)
}

// ════════════════════════════════════════════════════════════
// Set — 全量写课表（空数组 ⇒ 清空）
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Set(ctx context.Context, orgID, batchID string, req *dto.SetScheduleRequest, callerID string) (*dto.SetScheduleResponse, error) {
	if err := s.requireBatch(ctx, orgID, batchID); err != nil {
		return nil, err
	}

	periods, err := s.buildSetPeriods(ctx, orgID, batchID, req.Periods, callerID)
	if err != nil {
		return nil, err
	}

	removed, conflict, err := s.repo.Period.ReplaceByBatch(ctx, orgID, batchID, periods)
	if err != nil {
		// 预检通过后、替换事务加锁前，其他班级可能已占用同教师的时间窗；
		// 事务内复查兜住这条竞态路径，旧课表原样保留
		if errors.Is(err, pkgerrors.ErrTeacherConflict) && conflict != nil && conflict.TeacherID != nil {
			return nil, &ConflictError{Detail: *conflictDetailOf(conflict, *conflict.TeacherID)}
		}
		s.logger.Error("全量写课表事务失败", zap.Error(err), zap.String("batch_id", batchID))
		return nil, fmt.Errorf("写入课表失败: %w", err)
	}

	fresh, err := s.repo.Period.ListByBatch(ctx, orgID, batchID)
	if err != nil {
		return nil, err
	}

	return &dto.SetScheduleResponse{
		BatchID:      batchID,
		Periods:      toPeriodResponses(fresh),
		RemovedCount: removed,
	}, nil
}

// buildSetPeriods 校验并构建全量写入的课节集合
func (s *scheduleService) buildSetPeriods(ctx context.Context, orgID, batchID string, inputs []dto.SetSchedulePeriodInput, callerID string) ([]model.Period, error) {
	if len(inputs) == 0 {
		return nil, nil // 清空课表
	}

	type cellKey struct{ day, number int }
	seenCell := make(map[cellKey]int, len(inputs))

	periods := make([]model.Period, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("periods[%d]", i)

		if _, err := parseClock(in.StartTime); err != nil {
			return nil, newValidationError(field+".start_time", "时间格式应为 HH:MM，收到 %q", in.StartTime)
		}
		if _, err := parseClock(in.EndTime); err != nil {
			return nil, newValidationError(field+".end_time", "时间格式应为 HH:MM，收到 %q", in.EndTime)
		}
		if in.StartTime >= in.EndTime {
			return nil, newValidationError(field, "开始时间 %s 必须早于结束时间 %s", in.StartTime, in.EndTime)
		}

		key := cellKey{in.DayOfWeek, in.PeriodNumber}
		if prev, dup := seenCell[key]; dup {
			return nil, newValidationError(field, "与 periods[%d] 的 (星期, 节次) 重复", prev)
		}
		seenCell[key] = i

		// 同一天内时间窗不得重叠
		for j := 0; j < i; j++ {
			other := inputs[j]
			if other.DayOfWeek == in.DayOfWeek &&
				timesOverlap(in.StartTime, in.EndTime, other.StartTime, other.EndTime) {
				return nil, newValidationError(field, "时间窗与 periods[%d] 重叠", j)
			}
		}

		if in.SubjectID != nil {
			if err := s.requireSubject(ctx, orgID, *in.SubjectID); err != nil {
				return nil, err
			}
		}
		if in.TeacherID != nil {
			if err := s.requireTeacher(ctx, orgID, *in.TeacherID); err != nil {
				return nil, err
			}
			// 跨班级占用预检：本班旧课节即将被替换，整体排除
			detail, err := s.validator.CheckExcludingBatch(ctx, orgID, *in.TeacherID,
				in.DayOfWeek, in.StartTime, in.EndTime, batchID)
			if err != nil {
				return nil, err
			}
			if detail != nil {
				return nil, &ConflictError{Detail: *detail}
			}
			// 集合内部同教师重叠
			for j := 0; j < i; j++ {
				other := inputs[j]
				if other.TeacherID != nil && *other.TeacherID == *in.TeacherID &&
					other.DayOfWeek == in.DayOfWeek &&
					timesOverlap(in.StartTime, in.EndTime, other.StartTime, other.EndTime) {
					return nil, newValidationError(field, "教师与 periods[%d] 的时间窗重叠", j)
				}
			}
		}

		periods = append(periods, model.Period{
			PeriodID:       uuid.New().String(),
			OrganizationID: orgID,
			BatchID:        batchID,
			DayOfWeek:      in.DayOfWeek,
			PeriodNumber:   in.PeriodNumber,
			StartTime:      in.StartTime,
			EndTime:        in.EndTime,
			SubjectID:      in.SubjectID,
			TeacherID:      in.TeacherID,
			BaseModel:      model.BaseModel{CreatedBy: &callerID, UpdatedBy: &callerID},
			Version:        1,
		})
	}

	return periods, nil
}

// ════════════════════════════════════════════════════════════
// Assign — 分配单课节的科目/教师
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 目标课节必须已由编排器创建，否则 NOT_FOUND
//  2. 校验科目/教师存在性
//  3. Repository 在写事务内完成占用复查 + 乐观锁写入；
//     冲突时课节不被改动，冲突详情返回给前端

func (s *scheduleService) Assign(ctx context.Context, orgID, batchID string, req *dto.AssignPeriodRequest, callerID string) (*dto.PeriodResponse, error) {
	if err := s.requireBatch(ctx, orgID, batchID); err != nil {
		return nil, err
	}

	period, err := s.repo.Period.GetByCell(ctx, orgID, batchID, req.DayOfWeek, req.PeriodNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		s.logger.Error("查询课节失败", zap.Error(err))
		return nil, err
	}

	if req.SubjectID != nil {
		if err := s.requireSubject(ctx, orgID, *req.SubjectID); err != nil {
			return nil, err
		}
	}
	if req.TeacherID != nil {
		if err := s.requireTeacher(ctx, orgID, *req.TeacherID); err != nil {
			return nil, err
		}
	}

	// 客户端携带其所见的版本号，命中"先写者胜"策略
	period.Version = req.Version
	period.UpdatedBy = &callerID

	conflictPeriod, err := s.repo.Period.AssignGuarded(ctx, period, req.SubjectID, req.TeacherID)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrTeacherConflict) && conflictPeriod != nil:
			return nil, &ConflictError{Detail: *conflictDetailOf(conflictPeriod, *req.TeacherID)}
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return nil, err
		default:
			s.logger.Error("课节分配失败", zap.Error(err),
				zap.String("batch_id", batchID),
				zap.Int("day_of_week", req.DayOfWeek),
				zap.Int("period_number", req.PeriodNumber),
			)
			return nil, err
		}
	}

	// 重新读取以带出科目/教师名称
	fresh, err := s.repo.Period.GetByCell(ctx, orgID, batchID, req.DayOfWeek, req.PeriodNumber)
	if err != nil {
		return nil, err
	}
	resp := toPeriodResponse(fresh)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// CheckConflict — 教师占用检测（只读）
// ════════════════════════════════════════════════════════════

func (s *scheduleService) CheckConflict(ctx context.Context, orgID string, req *dto.CheckConflictRequest) (*dto.CheckConflictResponse, error) {
	if _, err := parseClock(req.StartTime); err != nil {
		return nil, newValidationError("start_time", "时间格式应为 HH:MM，收到 %q", req.StartTime)
	}
	if _, err := parseClock(req.EndTime); err != nil {
		return nil, newValidationError("end_time", "时间格式应为 HH:MM，收到 %q", req.EndTime)
	}
	if req.StartTime >= req.EndTime {
		return nil, newValidationError("start_time", "开始时间 %s 必须早于结束时间 %s", req.StartTime, req.EndTime)
	}

	exclude := ""
	if req.ExcludePeriodID != nil {
		exclude = *req.ExcludePeriodID
	}

	detail, err := s.validator.Check(ctx, orgID, req.TeacherID, req.DayOfWeek, req.StartTime, req.EndTime, exclude)
	if err != nil {
		return nil, err
	}
	return &dto.CheckConflictResponse{Conflict: detail}, nil
}

// ── 存在性校验 ──

func (s *scheduleService) requireBatch(ctx context.Context, orgID, batchID string) error {
	exists, err := s.repo.Directory.BatchExists(ctx, orgID, batchID)
	if err != nil {
		s.logger.Error("查询班级失败", zap.Error(err))
		return err
	}
	if !exists {
		return ErrBatchNotFound
	}
	return nil
}

func (s *scheduleService) requireTeacher(ctx context.Context, orgID, teacherID string) error {
	exists, err := s.repo.Directory.TeacherExists(ctx, orgID, teacherID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTeacherNotFound
	}
	return nil
}

func (s *scheduleService) requireSubject(ctx context.Context, orgID, subjectID string) error {
	exists, err := s.repo.Directory.SubjectExists(ctx, orgID, subjectID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSubjectNotFound
	}
	return nil
}

// ── DTO 映射 ──

func toPeriodResponse(p *model.Period) dto.PeriodResponse {
	resp := dto.PeriodResponse{
		ID:           p.PeriodID,
		BatchID:      p.BatchID,
		DayOfWeek:    p.DayOfWeek,
		PeriodNumber: p.PeriodNumber,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		SubjectID:    p.SubjectID,
		TeacherID:    p.TeacherID,
		Version:      p.Version,
	}
	if p.Subject != nil {
		resp.SubjectName = p.Subject.Name
	}
	if p.Teacher != nil {
		resp.TeacherName = p.Teacher.Name
	}
	return resp
}

func toPeriodResponses(periods []model.Period) []dto.PeriodResponse {
	out := make([]dto.PeriodResponse, 0, len(periods))
	for i := range periods {
		out = append(out, toPeriodResponse(&periods[i]))
	}
	return out
}
