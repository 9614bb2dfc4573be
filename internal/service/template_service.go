package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-console/backend/config"
	"school-console/backend/internal/dto"
	"school-console/backend/internal/model"
	"school-console/backend/internal/repository"
	"school-console/backend/pkg/redis"
)

// ── 作息模板模块业务错误 ──

var (
	ErrTemplateNotFound = errors.New("作息模板不存在")
	ErrDeriveDisabled   = errors.New("模板反推功能未开启")
	ErrDeriveNoPeriods  = errors.New("该班级尚无已编排课表，无法反推模板")
)

// TemplateService 作息模板目录业务接口
//
// 设计说明：
//   - 模板是"追加为主"的目录数据：只有创建与编辑，删除不在范围内。
//   - 编辑不回溯已编排的课表；变更要生效必须对班级重新编排。
//   - 每个机构至多一个默认模板，设置默认在单个事务中清除旧标记。
//   - 默认模板是排课页最热的读路径，经 Redis 缓存（可缺省降级）。
type TemplateService interface {
	Create(ctx context.Context, orgID string, req *dto.CreatePeriodTemplateRequest, callerID string) (*dto.PeriodTemplateResponse, error)
	Update(ctx context.Context, orgID, templateID string, req *dto.UpdatePeriodTemplateRequest, callerID string) (*dto.PeriodTemplateResponse, error)
	List(ctx context.Context, orgID string) ([]dto.PeriodTemplateResponse, error)
	// GetDefault 获取机构默认模板；无默认模板时返回 (nil, nil)
	GetDefault(ctx context.Context, orgID string) (*dto.PeriodTemplateResponse, error)
	// DeriveFromSchedule 从班级已编排课表反推模板（无默认模板时的显式兜底）。
	// 休息时段从不落库为课节，反推结果必然不含课间休息
	DeriveFromSchedule(ctx context.Context, orgID, batchID string, req *dto.DeriveTemplateRequest, callerID string) (*dto.DeriveTemplateResponse, error)
}

type templateService struct {
	cfg    *config.Config
	repo   *repository.Repository
	cache  *redis.Client // 可为 nil：Redis 不可用时直接回源数据库
	logger *zap.Logger
}

// NewTemplateService 创建 TemplateService 实例
func NewTemplateService(cfg *config.Config, repo *repository.Repository, cache *redis.Client, logger *zap.Logger) TemplateService {
	return &templateService{cfg: cfg, repo: repo, cache: cache, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create — 创建作息模板
// ════════════════════════════════════════════════════════════

func (s *templateService) Create(ctx context.Context, orgID string, req *dto.CreatePeriodTemplateRequest, callerID string) (*dto.PeriodTemplateResponse, error) {
	if err := validateActiveDays(req.ActiveDays); err != nil {
		return nil, err
	}
	if err := validateSlots(req.Slots); err != nil {
		return nil, err
	}

	tpl := model.PeriodTemplate{
		OrganizationID: orgID,
		Name:           req.Name,
		ActiveDays:     model.IntArray(req.ActiveDays),
		IsDefault:      req.IsDefault,
		Slots:          toSlotModels(req.Slots),
	}
	tpl.CreatedBy = &callerID
	tpl.UpdatedBy = &callerID

	if err := s.repo.Template.Create(ctx, &tpl); err != nil {
		s.logger.Error("创建作息模板失败", zap.Error(err))
		return nil, err
	}

	s.invalidateDefaultCache(ctx, orgID)

	resp := toTemplateResponse(&tpl)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// Update — 编辑作息模板
// ════════════════════════════════════════════════════════════

func (s *templateService) Update(ctx context.Context, orgID, templateID string, req *dto.UpdatePeriodTemplateRequest, callerID string) (*dto.PeriodTemplateResponse, error) {
	tpl, err := s.repo.Template.GetByID(ctx, orgID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询作息模板失败", zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.ActiveDays != nil {
		if err := validateActiveDays(*req.ActiveDays); err != nil {
			return nil, err
		}
		tpl.ActiveDays = model.IntArray(*req.ActiveDays)
	}
	var newSlots []model.PeriodTemplateSlot
	if req.Slots != nil {
		if err := validateSlots(*req.Slots); err != nil {
			return nil, err
		}
		newSlots = toSlotModels(*req.Slots)
		for i := range newSlots {
			newSlots[i].TemplateID = tpl.TemplateID
		}
	}
	if req.IsDefault != nil {
		tpl.IsDefault = *req.IsDefault
	}
	tpl.UpdatedBy = &callerID
	tpl.Version = req.Version

	if err := s.repo.Template.Update(ctx, tpl, newSlots); err != nil {
		s.logger.Error("更新作息模板失败", zap.Error(err), zap.String("template_id", templateID))
		return nil, err
	}

	s.invalidateDefaultCache(ctx, orgID)

	resp := toTemplateResponse(tpl)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// List / GetDefault
// ════════════════════════════════════════════════════════════

func (s *templateService) List(ctx context.Context, orgID string) ([]dto.PeriodTemplateResponse, error) {
	tpls, err := s.repo.Template.List(ctx, orgID)
	if err != nil {
		s.logger.Error("查询模板列表失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.PeriodTemplateResponse, 0, len(tpls))
	for i := range tpls {
		out = append(out, toTemplateResponse(&tpls[i]))
	}
	return out, nil
}

func (s *templateService) GetDefault(ctx context.Context, orgID string) (*dto.PeriodTemplateResponse, error) {
	// 1. 缓存命中则直接返回（缓存失败只记日志，不影响主流程）
	if s.cache != nil {
		if payload, err := s.cache.GetDefaultTemplate(ctx, orgID); err != nil {
			s.logger.Warn("默认模板缓存读取失败", zap.Error(err))
		} else if payload != "" {
			var resp dto.PeriodTemplateResponse
			if err := json.Unmarshal([]byte(payload), &resp); err == nil {
				return &resp, nil
			}
			s.logger.Warn("默认模板缓存内容损坏，回源数据库")
		}
	}

	// 2. 回源数据库
	tpl, err := s.repo.Template.GetDefault(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询默认模板失败", zap.Error(err))
		return nil, err
	}
	resp := toTemplateResponse(tpl)

	// 3. 回填缓存
	if s.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.cache.SetDefaultTemplate(ctx, orgID, string(payload), s.cfg.Feature.TemplateCacheTTL); err != nil {
				s.logger.Warn("默认模板缓存写入失败", zap.Error(err))
			}
		}
	}

	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// DeriveFromSchedule — 从已编排课表反推模板
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 取班级全部课节，取最早出现的一天作为基准日（通常是周一）
//  2. 基准日的课节还原为教学时段；出现过课节的天集合作为 active_days
//  3. 以普通模板落库（可按请求直接设为默认）
//
// 休息时段无法还原：编排器从不为休息生成课节，反推只能得到教学时段

func (s *templateService) DeriveFromSchedule(ctx context.Context, orgID, batchID string, req *dto.DeriveTemplateRequest, callerID string) (*dto.DeriveTemplateResponse, error) {
	if !s.cfg.Feature.DeriveTemplateEnabled {
		return nil, ErrDeriveDisabled
	}

	exists, err := s.repo.Directory.BatchExists(ctx, orgID, batchID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBatchNotFound
	}

	periods, err := s.repo.Period.ListByBatch(ctx, orgID, batchID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.Error(err))
		return nil, err
	}
	if len(periods) == 0 {
		return nil, ErrDeriveNoPeriods
	}

	// 基准日 = 最早出现的一天；active_days = 出现过课节的天集合
	daySet := make(map[int]bool)
	baseDay := periods[0].DayOfWeek
	for _, p := range periods {
		daySet[p.DayOfWeek] = true
		if p.DayOfWeek < baseDay {
			baseDay = p.DayOfWeek
		}
	}
	activeDays := make([]int, 0, len(daySet))
	for d := range daySet {
		activeDays = append(activeDays, d)
	}
	sort.Ints(activeDays)

	var slots []model.PeriodTemplateSlot
	for _, p := range periods {
		if p.DayOfWeek != baseDay {
			continue
		}
		n := p.PeriodNumber
		slots = append(slots, model.PeriodTemplateSlot{
			PeriodNumber: &n,
			StartTime:    p.StartTime,
			EndTime:      p.EndTime,
		})
	}

	tpl := model.PeriodTemplate{
		OrganizationID: orgID,
		Name:           req.Name,
		ActiveDays:     model.IntArray(activeDays),
		IsDefault:      req.IsDefault,
		Slots:          slots,
	}
	tpl.CreatedBy = &callerID
	tpl.UpdatedBy = &callerID

	if err := s.repo.Template.Create(ctx, &tpl); err != nil {
		s.logger.Error("反推模板落库失败", zap.Error(err))
		return nil, err
	}

	s.invalidateDefaultCache(ctx, orgID)

	return &dto.DeriveTemplateResponse{
		Template:             toTemplateResponse(&tpl),
		SourceBatchID:        batchID,
		DerivedWithoutBreaks: true,
	}, nil
}

// invalidateDefaultCache 模板写操作后失效默认模板缓存
func (s *templateService) invalidateDefaultCache(ctx context.Context, orgID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDefaultTemplate(ctx, orgID); err != nil {
		s.logger.Warn("默认模板缓存失效失败", zap.Error(err))
	}
}

// ── DTO 映射 ──

func toSlotModels(inputs []dto.TemplateSlotInput) []model.PeriodTemplateSlot {
	slots := make([]model.PeriodTemplateSlot, 0, len(inputs))
	for _, in := range inputs {
		slots = append(slots, model.PeriodTemplateSlot{
			PeriodNumber: in.PeriodNumber,
			StartTime:    in.StartTime,
			EndTime:      in.EndTime,
			IsBreak:      in.IsBreak,
			BreakName:    in.BreakName,
		})
	}
	return slots
}

func toTemplateResponse(tpl *model.PeriodTemplate) dto.PeriodTemplateResponse {
	slots := make([]dto.TemplateSlotResponse, 0, len(tpl.Slots))
	for _, s := range tpl.Slots {
		slots = append(slots, dto.TemplateSlotResponse{
			ID:           s.SlotID,
			PeriodNumber: s.PeriodNumber,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			IsBreak:      s.IsBreak,
			BreakName:    s.BreakName,
		})
	}
	// 响应内时段始终按开始时间升序
	sort.Slice(slots, func(a, b int) bool { return slots[a].StartTime < slots[b].StartTime })

	return dto.PeriodTemplateResponse{
		ID:         tpl.TemplateID,
		Name:       tpl.Name,
		ActiveDays: append([]int(nil), tpl.ActiveDays...),
		IsDefault:  tpl.IsDefault,
		Slots:      slots,
		CreatedAt:  tpl.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:  tpl.UpdatedAt.Format("2006-01-02 15:04:05"),
		Version:    tpl.Version,
	}
}
