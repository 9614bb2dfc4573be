package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-console/backend/internal/dto"
	"school-console/backend/internal/model"
	"school-console/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSchedule   = errors.New("该班级暂无课表")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const shanghaiTimezone = "Asia/Shanghai"

// ExportService 导出业务接口
//
// 设计说明：
//   - Excel 导出复用网格投影：行 = 模板时段（含休息行），列 = active days
//   - ICS 导出每课节生成一个按周重复 (FREQ=WEEKLY) 的 VEVENT，
//     锚定到当前日期之后的下一个对应星期
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportGridXLSX 导出网格课表为 Excel
	ExportGridXLSX(ctx context.Context, orgID, batchID string) (*bytes.Buffer, string, error)
	// ExportCalendarICS 导出课表为 iCalendar (RFC 5545)
	ExportCalendarICS(ctx context.Context, orgID, batchID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo       *repository.Repository
	projection ProjectionService
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, projection ProjectionService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, projection: projection, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportGridXLSX — 导出网格课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "周课表"
//   - 行头：节次 + 时间窗；休息行整行合并呈现休息名称
//   - 列头：周一 ~ 周六（按模板 active days）
//   - 单元格：科目名称\n教师名称，未编排为 "-"

func (s *exportService) ExportGridXLSX(ctx context.Context, orgID, batchID string) (*bytes.Buffer, string, error) {
	batch, err := s.repo.Directory.GetBatch(ctx, orgID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrBatchNotFound
		}
		return nil, "", err
	}

	grid, err := s.projection.Grid(ctx, orgID, batchID)
	if err != nil {
		return nil, "", err
	}
	if len(grid.Rows) == 0 {
		return nil, "", ErrExportNoSchedule
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "周课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽：A 节次 / B 时间 / 之后每天一列
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	for i := range grid.Days {
		col, _ := excelize.ColumnNumberToName(3 + i)
		f.SetColWidth(sheetName, col, col, 18)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	lastCol := colName(1 + len(grid.Days))
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 周课表", batch.Name))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "节次")
	f.SetCellValue(sheetName, cell("B", row), "时间")
	for i, d := range grid.Days {
		f.SetCellValue(sheetName, cell(colName(2+i), row), dayNames[d])
	}

	// 数据行
	row = 3
	for _, r := range grid.Rows {
		f.SetCellValue(sheetName, cell("B", row), fmt.Sprintf("%s-%s", r.StartTime, r.EndTime))
		if r.IsBreak {
			name := "休息"
			if r.BreakName != nil {
				name = *r.BreakName
			}
			f.SetCellValue(sheetName, cell("C", row), name)
			f.MergeCell(sheetName, cell("C", row), cell(lastCol, row))
			row++
			continue
		}
		f.SetCellValue(sheetName, cell("A", row), fmt.Sprintf("第%d节", *r.PeriodNumber))
		for i, c := range r.Cells {
			f.SetCellValue(sheetName, cell(colName(2+i), row), cellText(c))
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s.xlsx", batch.Name)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendarICS — 导出课表为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendarICS(ctx context.Context, orgID, batchID string) (*bytes.Buffer, string, error) {
	batch, err := s.repo.Directory.GetBatch(ctx, orgID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrBatchNotFound
		}
		return nil, "", err
	}

	periods, err := s.repo.Period.ListByBatch(ctx, orgID, batchID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.Error(err))
		return nil, "", err
	}
	if len(periods) == 0 {
		return nil, "", ErrExportNoSchedule
	}

	loc, _ := time.LoadLocation(shanghaiTimezone)
	cal := buildWeeklyCalendar(batch.Name, periods, time.Now().In(loc))

	buf := new(bytes.Buffer)
	if err := cal.SerializeTo(buf); err != nil {
		s.logger.Error("序列化 ICS 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s.ics", batch.Name)
	return buf, filename, nil
}

// buildWeeklyCalendar 将课节快照转为按周重复的 iCalendar
// anchor 决定事件的首个发生日期：每个课节锚定到 anchor 之后（含当天）
// 最近的对应星期
func buildWeeklyCalendar(batchName string, periods []model.Period, anchor time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//school-console//schedule//CN")
	cal.SetXWRCalName(fmt.Sprintf("%s 周课表", batchName))

	for i := range periods {
		p := &periods[i]
		start, end := slotOccurrence(anchor, p.DayOfWeek, p.StartTime, p.EndTime)

		evt := cal.AddEvent(fmt.Sprintf("%s@school-console", p.PeriodID))
		evt.SetCreatedTime(anchor)
		evt.SetDtStampTime(anchor)
		evt.SetStartAt(start)
		evt.SetEndAt(end)
		evt.SetSummary(eventSummary(p))
		evt.AddRrule(fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s", icsByDay[p.DayOfWeek]))
	}
	return cal
}

// icsByDay ISO 星期 (1=Monday) → RFC 5545 BYDAY 记号
var icsByDay = map[int]string{
	1: "MO", 2: "TU", 3: "WE", 4: "TH", 5: "FR", 6: "SA", 7: "SU",
}

// slotOccurrence 计算课节在 anchor 之后的首次发生时间
func slotOccurrence(anchor time.Time, dayOfWeek int, startTime, endTime string) (time.Time, time.Time) {
	offset := (dayOfWeek - goWeekdayToISO(anchor.Weekday()) + 7) % 7
	date := anchor.AddDate(0, 0, offset)

	start := clockOnDate(date, startTime)
	end := clockOnDate(date, endTime)
	return start, end
}

// clockOnDate 将 "HH:MM" 落到指定日期（保留时区）
func clockOnDate(date time.Time, clock string) time.Time {
	t, _ := time.Parse("15:04", clock)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

// goWeekdayToISO 将 Go 的 time.Weekday (0=Sunday) 转为 ISO 8601 (1=Monday … 7=Sunday)
func goWeekdayToISO(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// eventSummary 组装事件标题：科目（教师）；未编排时呈现节次
func eventSummary(p *model.Period) string {
	var parts []string
	if p.Subject != nil {
		parts = append(parts, p.Subject.Name)
	}
	if p.Teacher != nil {
		parts = append(parts, "("+p.Teacher.Name+")")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("第%d节", p.PeriodNumber)
	}
	return strings.Join(parts, " ")
}

// ── 辅助函数 ──

func cellText(c *dto.GridCell) string {
	if c == nil || !c.Assigned {
		return "-"
	}
	var parts []string
	if c.SubjectName != "" {
		parts = append(parts, c.SubjectName)
	}
	if c.TeacherName != "" {
		parts = append(parts, c.TeacherName)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "\n")
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
