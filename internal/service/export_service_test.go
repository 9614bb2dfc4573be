package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"school-console/backend/internal/model"
)

func setupTestExportService() (ExportService, *testRepos) {
	repos := newTestRepos()
	repo := repos.toRepository()
	projection := NewProjectionService(repo, zap.NewNop())
	svc := NewExportService(repo, projection, zap.NewNop())
	return svc, repos
}

// ════════════════════════════════════════════════════════════
// ExportGridXLSX 测试
// ════════════════════════════════════════════════════════════

func TestExportGridXLSX_Success(t *testing.T) {
	svc, repos := setupTestExportService()
	seedDirectory(repos)
	seedStandardTemplate(repos)
	seedPeriod(repos, "p-1", "batch-1", 1, 1, "08:00", "08:45", strPtr("teacher-1"))
	seedPeriod(repos, "p-2", "batch-1", 2, 1, "08:00", "08:45", nil)

	buf, filename, err := svc.ExportGridXLSX(context.Background(), testOrgID, "batch-1")
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if buf == nil || buf.Len() == 0 {
		t.Fatal("导出内容不应为空")
	}
	if filename != "课表_一年级1班.xlsx" {
		t.Errorf("文件名应含班级名称，实际=%s", filename)
	}
	// xlsx 是 zip 容器，以 PK 开头
	if !strings.HasPrefix(buf.String(), "PK") {
		t.Error("导出内容应为 xlsx (zip) 格式")
	}
}

func TestExportGridXLSX_BatchNotFound(t *testing.T) {
	svc, repos := setupTestExportService()
	seedDirectory(repos)

	_, _, err := svc.ExportGridXLSX(context.Background(), testOrgID, "nonexistent")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("期望 ErrBatchNotFound，实际: %v", err)
	}
}

func TestExportGridXLSX_NoSchedule(t *testing.T) {
	svc, repos := setupTestExportService()
	seedDirectory(repos)
	// 无默认模板、无课节：投影无行可导出

	_, _, err := svc.ExportGridXLSX(context.Background(), testOrgID, "batch-1")
	if !errors.Is(err, ErrExportNoSchedule) {
		t.Errorf("期望 ErrExportNoSchedule，实际: %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// ExportCalendarICS 测试
// ════════════════════════════════════════════════════════════

func TestExportCalendarICS_Success(t *testing.T) {
	svc, repos := setupTestExportService()
	seedDirectory(repos)
	seedPeriod(repos, "p-1", "batch-1", 1, 1, "08:00", "08:45", strPtr("teacher-1"))

	buf, filename, err := svc.ExportCalendarICS(context.Background(), testOrgID, "batch-1")
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename != "课表_一年级1班.ics" {
		t.Errorf("文件名应含班级名称，实际=%s", filename)
	}

	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:p-1@school-console",
		"RRULE:FREQ=WEEKLY;BYDAY=MO",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ICS 输出应包含 %q", want)
		}
	}
}

func TestExportCalendarICS_NoSchedule(t *testing.T) {
	svc, repos := setupTestExportService()
	seedDirectory(repos)

	_, _, err := svc.ExportCalendarICS(context.Background(), testOrgID, "batch-1")
	if !errors.Is(err, ErrExportNoSchedule) {
		t.Errorf("期望 ErrExportNoSchedule，实际: %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// buildWeeklyCalendar 测试
// ════════════════════════════════════════════════════════════

func TestBuildWeeklyCalendar_EventPerPeriod(t *testing.T) {
	teacherID := "teacher-1"
	periods := []model.Period{
		{PeriodID: "p-1", BatchID: "batch-1", DayOfWeek: 1, PeriodNumber: 1,
			StartTime: "08:00", EndTime: "08:45", TeacherID: &teacherID,
			Subject: &model.Subject{SubjectID: "subject-1", Name: "数学"},
			Teacher: &model.Teacher{TeacherID: teacherID, Name: "张老师"}},
		{PeriodID: "p-2", BatchID: "batch-1", DayOfWeek: 3, PeriodNumber: 2,
			StartTime: "09:05", EndTime: "09:50"},
	}
	// 2026-08-24 是周一
	anchor := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	cal := buildWeeklyCalendar("一年级1班", periods, anchor)
	out := cal.Serialize()

	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("期望 2 个 VEVENT，实际 %d", got)
	}
	if !strings.Contains(out, "SUMMARY:数学 (张老师)") {
		t.Error("已编排课节的标题应为 科目 (教师)")
	}
	if !strings.Contains(out, "SUMMARY:第2节") {
		t.Error("未编排课节的标题应为节次")
	}
	if !strings.Contains(out, "RRULE:FREQ=WEEKLY;BYDAY=WE") {
		t.Error("周三课节应带 BYDAY=WE 重复规则")
	}
}

func TestSlotOccurrence_AnchorsToNextWeekday(t *testing.T) {
	// 2026-08-26 是周三
	anchor := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		dayOfWeek int
		wantDate  string
	}{
		{"同一天不跨周", 3, "2026-08-26"},
		{"之后的天取本周", 5, "2026-08-28"},
		{"之前的天取下周", 1, "2026-08-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := slotOccurrence(anchor, tt.dayOfWeek, "08:00", "08:45")
			if got := start.Format("2006-01-02"); got != tt.wantDate {
				t.Errorf("首次发生日期应为 %s，实际 %s", tt.wantDate, got)
			}
			if start.Format("15:04") != "08:00" || end.Format("15:04") != "08:45" {
				t.Errorf("时间窗应保留: %s-%s", start.Format("15:04"), end.Format("15:04"))
			}
		})
	}
}

func TestGoWeekdayToISO(t *testing.T) {
	if got := goWeekdayToISO(time.Sunday); got != 7 {
		t.Errorf("周日应映射为 7，实际 %d", got)
	}
	if got := goWeekdayToISO(time.Monday); got != 1 {
		t.Errorf("周一应映射为 1，实际 %d", got)
	}
	if got := goWeekdayToISO(time.Saturday); got != 6 {
		t.Errorf("周六应映射为 6，实际 %d", got)
	}
}
