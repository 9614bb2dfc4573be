package service

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"school-console/backend/internal/model"
	pkgerrors "school-console/backend/pkg/errors"
)

// ── Mock DirectoryRepository ──

type mockDirectoryRepo struct {
	batches  map[string]*model.Batch
	teachers map[string]*model.Teacher
	subjects map[string]*model.Subject
}

func newMockDirectoryRepo() *mockDirectoryRepo {
	return &mockDirectoryRepo{
		batches:  make(map[string]*model.Batch),
		teachers: make(map[string]*model.Teacher),
		subjects: make(map[string]*model.Subject),
	}
}

func (m *mockDirectoryRepo) GetBatch(_ context.Context, orgID, batchID string) (*model.Batch, error) {
	if b, ok := m.batches[batchID]; ok && b.OrganizationID == orgID {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDirectoryRepo) BatchExists(_ context.Context, orgID, batchID string) (bool, error) {
	b, ok := m.batches[batchID]
	return ok && b.OrganizationID == orgID && b.IsActive, nil
}

func (m *mockDirectoryRepo) TeacherExists(_ context.Context, orgID, teacherID string) (bool, error) {
	t, ok := m.teachers[teacherID]
	return ok && t.OrganizationID == orgID && t.IsActive, nil
}

func (m *mockDirectoryRepo) SubjectExists(_ context.Context, orgID, subjectID string) (bool, error) {
	s, ok := m.subjects[subjectID]
	return ok && s.OrganizationID == orgID && s.IsActive, nil
}

// ── Mock PeriodTemplateRepository ──

type mockTemplateRepo struct {
	templates map[string]*model.PeriodTemplate
	seq       int
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[string]*model.PeriodTemplate)}
}

func (m *mockTemplateRepo) Create(_ context.Context, tpl *model.PeriodTemplate) error {
	if tpl.TemplateID == "" {
		m.seq++
		tpl.TemplateID = fmt.Sprintf("tpl-%d", m.seq)
	}
	if tpl.Version == 0 {
		tpl.Version = 1
	}
	for i := range tpl.Slots {
		if tpl.Slots[i].SlotID == "" {
			tpl.Slots[i].SlotID = fmt.Sprintf("%s-slot-%d", tpl.TemplateID, i)
		}
		tpl.Slots[i].TemplateID = tpl.TemplateID
	}
	if tpl.IsDefault {
		m.clearDefault(tpl.OrganizationID, tpl.TemplateID)
	}
	m.templates[tpl.TemplateID] = tpl
	return nil
}

func (m *mockTemplateRepo) Update(_ context.Context, tpl *model.PeriodTemplate, slots []model.PeriodTemplateSlot) error {
	stored, ok := m.templates[tpl.TemplateID]
	if !ok || stored.OrganizationID != tpl.OrganizationID {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != tpl.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if tpl.IsDefault {
		m.clearDefault(tpl.OrganizationID, tpl.TemplateID)
	}
	tpl.Version++
	if slots != nil {
		tpl.Slots = slots
	} else {
		tpl.Slots = stored.Slots
	}
	m.templates[tpl.TemplateID] = tpl
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, orgID, id string) (*model.PeriodTemplate, error) {
	if t, ok := m.templates[id]; ok && t.OrganizationID == orgID {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTemplateRepo) GetDefault(_ context.Context, orgID string) (*model.PeriodTemplate, error) {
	for _, t := range m.templates {
		if t.OrganizationID == orgID && t.IsDefault {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTemplateRepo) List(_ context.Context, orgID string) ([]model.PeriodTemplate, error) {
	var result []model.PeriodTemplate
	for _, t := range m.templates {
		if t.OrganizationID == orgID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TemplateID < result[j].TemplateID })
	return result, nil
}

func (m *mockTemplateRepo) clearDefault(orgID, exceptID string) {
	for _, t := range m.templates {
		if t.OrganizationID == orgID && t.TemplateID != exceptID {
			t.IsDefault = false
		}
	}
}

// ── Mock PeriodRepository ──
//
// AssignGuarded / ReplaceByBatch 复刻真实仓储的事务语义：
// 占用冲突目标课节不改动，版本不匹配返回乐观锁错误

type mockPeriodRepo struct {
	periods   map[string]*model.Period
	directory *mockDirectoryRepo
}

func newMockPeriodRepo(dir *mockDirectoryRepo) *mockPeriodRepo {
	return &mockPeriodRepo{periods: make(map[string]*model.Period), directory: dir}
}

func (m *mockPeriodRepo) ListByBatch(_ context.Context, orgID, batchID string) ([]model.Period, error) {
	var result []model.Period
	for _, p := range m.periods {
		if p.OrganizationID == orgID && p.BatchID == batchID {
			result = append(result, *m.withNames(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *mockPeriodRepo) GetByCell(_ context.Context, orgID, batchID string, dayOfWeek, periodNumber int) (*model.Period, error) {
	for _, p := range m.periods {
		if p.OrganizationID == orgID && p.BatchID == batchID &&
			p.DayOfWeek == dayOfWeek && p.PeriodNumber == periodNumber {
			return m.withNames(p), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPeriodRepo) ListByTeacherAndDay(_ context.Context, orgID, teacherID string, dayOfWeek int, excludePeriodID string) ([]model.Period, error) {
	var result []model.Period
	for _, p := range m.periods {
		if p.OrganizationID != orgID || p.TeacherID == nil || *p.TeacherID != teacherID ||
			p.DayOfWeek != dayOfWeek || p.PeriodID == excludePeriodID {
			continue
		}
		result = append(result, *m.withNames(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

func (m *mockPeriodRepo) ReplaceByBatch(_ context.Context, orgID, batchID string, periods []model.Period) (int64, *model.Period, error) {
	// 事务内跨班级占用复查：检出冲突整体回滚，旧课表不动
	for i := range periods {
		p := &periods[i]
		if p.TeacherID == nil {
			continue
		}
		for _, other := range m.periods {
			if other.OrganizationID != orgID || other.BatchID == batchID {
				continue
			}
			if other.TeacherID != nil && *other.TeacherID == *p.TeacherID &&
				other.DayOfWeek == p.DayOfWeek &&
				timesOverlap(p.StartTime, p.EndTime, other.StartTime, other.EndTime) {
				return 0, m.withNames(other), pkgerrors.ErrTeacherConflict
			}
		}
	}

	var removed int64
	for id, p := range m.periods {
		if p.OrganizationID == orgID && p.BatchID == batchID {
			delete(m.periods, id)
			removed++
		}
	}
	for i := range periods {
		cp := periods[i]
		m.periods[cp.PeriodID] = &cp
	}
	return removed, nil, nil
}

func (m *mockPeriodRepo) AssignGuarded(_ context.Context, period *model.Period, subjectID, teacherID *string) (*model.Period, error) {
	stored, ok := m.periods[period.PeriodID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	if teacherID != nil && (stored.TeacherID == nil || *stored.TeacherID != *teacherID) {
		for _, other := range m.periods {
			if other.PeriodID == period.PeriodID || other.OrganizationID != period.OrganizationID {
				continue
			}
			if other.TeacherID != nil && *other.TeacherID == *teacherID &&
				other.DayOfWeek == period.DayOfWeek &&
				timesOverlap(period.StartTime, period.EndTime, other.StartTime, other.EndTime) {
				return m.withNames(other), pkgerrors.ErrTeacherConflict
			}
		}
	}

	if stored.Version != period.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	stored.SubjectID = subjectID
	stored.TeacherID = teacherID
	stored.Version++
	period.SubjectID = subjectID
	period.TeacherID = teacherID
	period.Version = stored.Version
	return nil, nil
}

// withNames 补全关联名称，模拟真实仓储的 Preload
func (m *mockPeriodRepo) withNames(p *model.Period) *model.Period {
	cp := *p
	if m.directory == nil {
		return &cp
	}
	if b, ok := m.directory.batches[cp.BatchID]; ok {
		cp.Batch = b
	}
	if cp.SubjectID != nil {
		if s, ok := m.directory.subjects[*cp.SubjectID]; ok {
			cp.Subject = s
		}
	}
	if cp.TeacherID != nil {
		if t, ok := m.directory.teachers[*cp.TeacherID]; ok {
			cp.Teacher = t
		}
	}
	return &cp
}
