package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-console/backend/internal/dto"
	"school-console/backend/internal/model"
	"school-console/backend/internal/repository"
)

// ── 课表投影 ──────────────────────────────────────────────────
//
// 设计说明：
//   - BuildGrid / BuildCalendar 是纯转换：只读快照进、视图出，
//     不触发编排或写入，对部分编排的数据（缺天缺节）宽容呈现。
//   - 网格行来自模板时段（含休息行）；无默认模板时退化为
//     从课节自身还原行（此时没有休息行）。
//   - 打印视图是网格的确定性非交互变体，无独立逻辑。
// ─────────────────────────────────────────────────────────────

var dayNames = map[int]string{
	1: "周一", 2: "周二", 3: "周三", 4: "周四", 5: "周五", 6: "周六",
}

// ProjectionService 课表投影业务接口
type ProjectionService interface {
	Grid(ctx context.Context, orgID, batchID string) (*dto.GridResponse, error)
	Calendar(ctx context.Context, orgID, batchID string) (*dto.CalendarResponse, error)
	Printable(ctx context.Context, orgID, batchID string) (*dto.PrintableResponse, error)
}

type projectionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProjectionService 创建 ProjectionService 实例
func NewProjectionService(repo *repository.Repository, logger *zap.Logger) ProjectionService {
	return &projectionService{repo: repo, logger: logger}
}

func (s *projectionService) Grid(ctx context.Context, orgID, batchID string) (*dto.GridResponse, error) {
	periods, slots, activeDays, err := s.loadSnapshot(ctx, orgID, batchID)
	if err != nil {
		return nil, err
	}
	return BuildGrid(batchID, periods, slots, activeDays), nil
}

func (s *projectionService) Calendar(ctx context.Context, orgID, batchID string) (*dto.CalendarResponse, error) {
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
	return BuildCalendar(batchID, periods), nil
}

func (s *projectionService) Printable(ctx context.Context, orgID, batchID string) (*dto.PrintableResponse, error) {
	batch, err := s.repo.Directory.GetBatch(ctx, orgID, batchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}

	periods, slots, activeDays, err := s.loadSnapshot(ctx, orgID, batchID)
	if err != nil {
		return nil, err
	}
	grid := BuildGrid(batchID, periods, slots, activeDays)

	names := make([]string, 0, len(grid.Days))
	for _, d := range grid.Days {
		names = append(names, dayNames[d])
	}

	return &dto.PrintableResponse{
		Title:    fmt.Sprintf("%s · 周课表", batch.Name),
		BatchID:  batchID,
		DayNames: names,
		Grid:     *grid,
	}, nil
}

// loadSnapshot 装载投影输入：课节快照 + 网格行来源
// 优先用机构默认模板的时段与 active_days；无默认模板时从课节自身还原
func (s *projectionService) loadSnapshot(ctx context.Context, orgID, batchID string) ([]model.Period, []model.PeriodTemplateSlot, []int, error) {
	exists, err := s.repo.Directory.BatchExists(ctx, orgID, batchID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !exists {
		return nil, nil, nil, ErrBatchNotFound
	}

	periods, err := s.repo.Period.ListByBatch(ctx, orgID, batchID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.Error(err))
		return nil, nil, nil, err
	}

	tpl, err := s.repo.Template.GetDefault(ctx, orgID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logger.Error("查询默认模板失败", zap.Error(err))
			return nil, nil, nil, err
		}
		// 无默认模板：从课节还原行与天
		return periods, slotsFromPeriods(periods), daysFromPeriods(periods), nil
	}
	return periods, tpl.Slots, []int(tpl.ActiveDays), nil
}

// BuildGrid 构建网格投影（纯转换）
//
// 行 = 模板时段（含休息行）按 start_time 升序；列 = active_days 升序；
// 单元 = (天, 节次) 命中的课节，缺失为 null；休息行所有列呈现一致
func BuildGrid(batchID string, periods []model.Period, slots []model.PeriodTemplateSlot, activeDays []int) *dto.GridResponse {
	days := append([]int(nil), activeDays...)
	sort.Ints(days)

	rows := make([]model.PeriodTemplateSlot, len(slots))
	copy(rows, slots)
	sort.Slice(rows, func(a, b int) bool { return rows[a].StartTime < rows[b].StartTime })

	// (天, 节次) → 课节索引
	type cellKey struct{ day, number int }
	index := make(map[cellKey]*model.Period, len(periods))
	for i := range periods {
		p := &periods[i]
		index[cellKey{p.DayOfWeek, p.PeriodNumber}] = p
	}

	grid := &dto.GridResponse{
		BatchID: batchID,
		Days:    days,
		Rows:    make([]dto.GridRow, 0, len(rows)),
	}

	for _, slot := range rows {
		row := dto.GridRow{
			PeriodNumber: slot.PeriodNumber,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
			IsBreak:      slot.IsBreak,
			BreakName:    slot.BreakName,
			Cells:        make([]*dto.GridCell, len(days)),
		}
		if !slot.IsBreak {
			for c, day := range days {
				p, ok := index[cellKey{day, *slot.PeriodNumber}]
				if !ok {
					continue // 未编排的单元宽容呈现为空
				}
				row.Cells[c] = toGridCell(p)
			}
		}
		grid.Rows = append(grid.Rows, row)
	}

	return grid
}

// BuildCalendar 构建日历投影（纯转换）
// 课节按天分组、组内按 start_time 升序；没有课节的天不出现
func BuildCalendar(batchID string, periods []model.Period) *dto.CalendarResponse {
	byDay := make(map[int][]dto.PeriodResponse)
	for i := range periods {
		p := &periods[i]
		byDay[p.DayOfWeek] = append(byDay[p.DayOfWeek], toPeriodResponse(p))
	}

	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)

	resp := &dto.CalendarResponse{
		BatchID: batchID,
		Days:    make([]dto.CalendarDay, 0, len(days)),
	}
	for _, d := range days {
		group := byDay[d]
		sort.Slice(group, func(a, b int) bool { return group[a].StartTime < group[b].StartTime })
		resp.Days = append(resp.Days, dto.CalendarDay{DayOfWeek: d, Periods: group})
	}
	return resp
}

func toGridCell(p *model.Period) *dto.GridCell {
	cell := &dto.GridCell{
		PeriodID:  p.PeriodID,
		SubjectID: p.SubjectID,
		TeacherID: p.TeacherID,
		Assigned:  p.Assigned(),
	}
	if p.Subject != nil {
		cell.SubjectName = p.Subject.Name
	}
	if p.Teacher != nil {
		cell.TeacherName = p.Teacher.Name
	}
	return cell
}

// slotsFromPeriods 无默认模板时，从课节还原网格行（只有教学行）
// 按 (节次, 时间窗) 去重：不同天的同一节次合并为一行
func slotsFromPeriods(periods []model.Period) []model.PeriodTemplateSlot {
	type rowKey struct {
		number     int
		start, end string
	}
	seen := make(map[rowKey]bool)
	var slots []model.PeriodTemplateSlot
	for i := range periods {
		p := &periods[i]
		key := rowKey{p.PeriodNumber, p.StartTime, p.EndTime}
		if seen[key] {
			continue
		}
		seen[key] = true
		n := p.PeriodNumber
		slots = append(slots, model.PeriodTemplateSlot{
			PeriodNumber: &n,
			StartTime:    p.StartTime,
			EndTime:      p.EndTime,
		})
	}
	return slots
}

// daysFromPeriods 从课节还原出现过的天集合（升序）
func daysFromPeriods(periods []model.Period) []int {
	seen := make(map[int]bool)
	var days []int
	for i := range periods {
		if !seen[periods[i].DayOfWeek] {
			seen[periods[i].DayOfWeek] = true
			days = append(days, periods[i].DayOfWeek)
		}
	}
	sort.Ints(days)
	return days
}
