package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"school-console/backend/internal/dto"
	"school-console/backend/internal/service"
	pkgerrors "school-console/backend/pkg/errors"
	"school-console/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TemplateService ──

type mockTemplateService struct {
	createResult  *dto.PeriodTemplateResponse
	createErr     error
	updateResult  *dto.PeriodTemplateResponse
	updateErr     error
	listResult    []dto.PeriodTemplateResponse
	listErr       error
	defaultResult *dto.PeriodTemplateResponse
	defaultErr    error
	deriveResult  *dto.DeriveTemplateResponse
	deriveErr     error
}

func (m *mockTemplateService) Create(_ context.Context, _ string, _ *dto.CreatePeriodTemplateRequest, _ string) (*dto.PeriodTemplateResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockTemplateService) Update(_ context.Context, _, _ string, _ *dto.UpdatePeriodTemplateRequest, _ string) (*dto.PeriodTemplateResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockTemplateService) List(_ context.Context, _ string) ([]dto.PeriodTemplateResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockTemplateService) GetDefault(_ context.Context, _ string) (*dto.PeriodTemplateResponse, error) {
	return m.defaultResult, m.defaultErr
}
func (m *mockTemplateService) DeriveFromSchedule(_ context.Context, _, _ string, _ *dto.DeriveTemplateRequest, _ string) (*dto.DeriveTemplateResponse, error) {
	return m.deriveResult, m.deriveErr
}

// ── Mock ScheduleService ──

type mockScheduleService struct {
	getResult      *dto.ScheduleResponse
	getErr         error
	initResult     *dto.ScheduleResponse
	initErr        error
	setResult      *dto.SetScheduleResponse
	setErr         error
	assignResult   *dto.PeriodResponse
	assignErr      error
	conflictResult *dto.CheckConflictResponse
	conflictErr    error
}

func (m *mockScheduleService) Get(_ context.Context, _, _ string) (*dto.ScheduleResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockScheduleService) Initialize(_ context.Context, _, _, _, _ string) (*dto.ScheduleResponse, error) {
	return m.initResult, m.initErr
}
func (m *mockScheduleService) Set(_ context.Context, _, _ string, _ *dto.SetScheduleRequest, _ string) (*dto.SetScheduleResponse, error) {
	return m.setResult, m.setErr
}
func (m *mockScheduleService) Assign(_ context.Context, _, _ string, _ *dto.AssignPeriodRequest, _ string) (*dto.PeriodResponse, error) {
	return m.assignResult, m.assignErr
}
func (m *mockScheduleService) CheckConflict(_ context.Context, _ string, _ *dto.CheckConflictRequest) (*dto.CheckConflictResponse, error) {
	return m.conflictResult, m.conflictErr
}

// ── Mock ProjectionService ──

type mockProjectionService struct {
	gridResult      *dto.GridResponse
	gridErr         error
	calendarResult  *dto.CalendarResponse
	calendarErr     error
	printableResult *dto.PrintableResponse
	printableErr    error
}

func (m *mockProjectionService) Grid(_ context.Context, _, _ string) (*dto.GridResponse, error) {
	return m.gridResult, m.gridErr
}
func (m *mockProjectionService) Calendar(_ context.Context, _, _ string) (*dto.CalendarResponse, error) {
	return m.calendarResult, m.calendarErr
}
func (m *mockProjectionService) Printable(_ context.Context, _, _ string) (*dto.PrintableResponse, error) {
	return m.printableResult, m.printableErr
}

// ── Mock ExportService ──

type mockExportService struct {
	xlsxBuf      *bytes.Buffer
	xlsxFilename string
	xlsxErr      error
	icsBuf       *bytes.Buffer
	icsFilename  string
	icsErr       error
}

func (m *mockExportService) ExportGridXLSX(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.xlsxBuf, m.xlsxFilename, m.xlsxErr
}
func (m *mockExportService) ExportCalendarICS(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.icsBuf, m.icsFilename, m.icsErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	r := gin.New()
	return r, w
}

func setAuth(c *gin.Context) {
	c.Set("user_id", "11111111-1111-1111-1111-111111111111")
	c.Set("organization_id", "22222222-2222-2222-2222-222222222222")
	c.Set("role", "admin")
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func validCreateTemplateBody() *dto.CreatePeriodTemplateRequest {
	one := 1
	return &dto.CreatePeriodTemplateRequest{
		Name:       "标准作息",
		ActiveDays: []int{1, 2, 3, 4, 5},
		Slots: []dto.TemplateSlotInput{
			{PeriodNumber: &one, StartTime: "08:00", EndTime: "08:45"},
		},
	}
}

// ═══════════════════════════════════════════════════════════
// TemplateHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTemplateHandler_List_Success(t *testing.T) {
	mock := &mockTemplateService{
		listResult: []dto.PeriodTemplateResponse{{ID: "tpl-1", Name: "标准作息"}},
	}
	h := NewTemplateHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/period-templates", nil)
	r.GET("/period-templates", func(c *gin.Context) {
		setAuth(c)
		h.List(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestTemplateHandler_List_Unauthenticated(t *testing.T) {
	h := NewTemplateHandler(&mockTemplateService{})

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/period-templates", nil)
	r.GET("/period-templates", h.List)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10002 {
		t.Errorf("expected code 10002, got %d", resp.Code)
	}
}

func TestTemplateHandler_Create_Success(t *testing.T) {
	mock := &mockTemplateService{
		createResult: &dto.PeriodTemplateResponse{ID: "tpl-1", Name: "标准作息", Version: 1},
	}
	h := NewTemplateHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/period-templates", jsonBody(validCreateTemplateBody()))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/period-templates", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestTemplateHandler_Create_BadJSON(t *testing.T) {
	h := NewTemplateHandler(&mockTemplateService{})

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/period-templates", bytes.NewReader([]byte("bad")))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/period-templates", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10001 {
		t.Errorf("expected code 10001, got %d", resp.Code)
	}
}

func TestTemplateHandler_Create_ValidationError(t *testing.T) {
	mock := &mockTemplateService{
		createErr: &service.ValidationError{Field: "slots[1].start_time", Reason: "时段重叠"},
	}
	h := NewTemplateHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/period-templates", jsonBody(validCreateTemplateBody()))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/period-templates", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10001 {
		t.Errorf("expected code 10001, got %d", resp.Code)
	}
	// details 携带出错字段，供前端定位
	details, ok := resp.Details.(map[string]interface{})
	if !ok || details["field"] != "slots[1].start_time" {
		t.Errorf("expected field detail, got %v", resp.Details)
	}
}

func TestTemplateHandler_Update_StaleVersion(t *testing.T) {
	mock := &mockTemplateService{updateErr: pkgerrors.ErrOptimisticLock}
	h := NewTemplateHandler(mock)

	name := "修订作息"
	r, w := setupGin()
	req := httptest.NewRequest("PUT", "/period-templates/tpl-1", jsonBody(dto.UpdatePeriodTemplateRequest{
		Name:    &name,
		Version: 1,
	}))
	req.Header.Set("Content-Type", "application/json")
	r.PUT("/period-templates/:id", func(c *gin.Context) {
		setAuth(c)
		h.Update(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16004 {
		t.Errorf("expected code 16004, got %d", resp.Code)
	}
}

func TestTemplateHandler_GetDefault_None(t *testing.T) {
	// 无默认模板不是错误：200 且 data 为 null
	h := NewTemplateHandler(&mockTemplateService{})

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/period-templates/default", nil)
	r.GET("/period-templates/default", func(c *gin.Context) {
		setAuth(c)
		h.GetDefault(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var raw map[string]json.RawMessage
	json.Unmarshal(w.Body.Bytes(), &raw)
	if string(raw["data"]) != "null" {
		t.Errorf("expected data null, got %s", raw["data"])
	}
}

func TestTemplateHandler_Derive_Disabled(t *testing.T) {
	mock := &mockTemplateService{deriveErr: service.ErrDeriveDisabled}
	h := NewTemplateHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/period-templates/derive/batch-1", jsonBody(dto.DeriveTemplateRequest{
		Name: "反推模板",
	}))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/period-templates/derive/:batchId", func(c *gin.Context) {
		setAuth(c)
		h.Derive(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 14002 {
		t.Errorf("expected code 14002, got %d", resp.Code)
	}
}

func TestTemplateHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"TemplateNotFound", service.ErrTemplateNotFound, 404, 14001},
		{"DeriveDisabled", service.ErrDeriveDisabled, 400, 14002},
		{"DeriveNoPeriods", service.ErrDeriveNoPeriods, 400, 14003},
		{"BatchNotFound", service.ErrBatchNotFound, 404, 16002},
		{"OptimisticLock", pkgerrors.ErrOptimisticLock, 409, 16004},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockTemplateService{listErr: tt.err}
			h := NewTemplateHandler(mock)

			r, w := setupGin()
			req := httptest.NewRequest("GET", "/period-templates", nil)
			r.GET("/period-templates", func(c *gin.Context) {
				setAuth(c)
				h.List(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func newScheduleTestHandler(sched *mockScheduleService, proj *mockProjectionService) *ScheduleHandler {
	if sched == nil {
		sched = &mockScheduleService{}
	}
	if proj == nil {
		proj = &mockProjectionService{}
	}
	return NewScheduleHandler(sched, proj)
}

func TestScheduleHandler_Get_Success(t *testing.T) {
	mock := &mockScheduleService{
		getResult: &dto.ScheduleResponse{BatchID: "batch-1", Periods: []dto.PeriodResponse{{ID: "p-1"}}},
	}
	h := newScheduleTestHandler(mock, nil)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule", nil)
	r.GET("/batches/:batchId/schedule", func(c *gin.Context) {
		setAuth(c)
		h.Get(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_Initialize_Success(t *testing.T) {
	mock := &mockScheduleService{
		initResult: &dto.ScheduleResponse{BatchID: "batch-1"},
	}
	h := newScheduleTestHandler(mock, nil)

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/batches/batch-1/schedule/initialize", jsonBody(dto.InitializeScheduleRequest{
		TemplateID: "33333333-3333-3333-3333-333333333333",
	}))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/batches/:batchId/schedule/initialize", func(c *gin.Context) {
		setAuth(c)
		h.Initialize(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_Initialize_MissingTemplateID(t *testing.T) {
	h := newScheduleTestHandler(nil, nil)

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/batches/batch-1/schedule/initialize", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/batches/:batchId/schedule/initialize", func(c *gin.Context) {
		setAuth(c)
		h.Initialize(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestScheduleHandler_Set_Success(t *testing.T) {
	mock := &mockScheduleService{
		setResult: &dto.SetScheduleResponse{BatchID: "batch-1", RemovedCount: 2},
	}
	h := newScheduleTestHandler(mock, nil)

	r, w := setupGin()
	req := httptest.NewRequest("PUT", "/batches/batch-1/schedule", jsonBody(dto.SetScheduleRequest{
		Periods: []dto.SetSchedulePeriodInput{
			{DayOfWeek: 1, PeriodNumber: 1, StartTime: "08:00", EndTime: "08:45"},
		},
	}))
	req.Header.Set("Content-Type", "application/json")
	r.PUT("/batches/:batchId/schedule", func(c *gin.Context) {
		setAuth(c)
		h.Set(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_Set_TeacherConflict(t *testing.T) {
	mock := &mockScheduleService{
		setErr: &service.ConflictError{Detail: dto.ConflictDetail{
			PeriodID:  "p-9",
			BatchID:   "batch-2",
			BatchName: "一年级2班",
			DayOfWeek: 1,
			StartTime: "09:45",
			EndTime:   "10:30",
		}},
	}
	h := newScheduleTestHandler(mock, nil)

	r, w := setupGin()
	req := httptest.NewRequest("PUT", "/batches/batch-1/schedule", jsonBody(dto.SetScheduleRequest{}))
	req.Header.Set("Content-Type", "application/json")
	r.PUT("/batches/:batchId/schedule", func(c *gin.Context) {
		setAuth(c)
		h.Set(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16003 {
		t.Errorf("expected code 16003, got %d", resp.Code)
	}
	// 冲突详情随 details 返回
	details, ok := resp.Details.(map[string]interface{})
	if !ok || details["batch_name"] != "一年级2班" {
		t.Errorf("expected conflict detail in details, got %v", resp.Details)
	}
}

func TestScheduleHandler_AssignPeriod_StaleVersion(t *testing.T) {
	mock := &mockScheduleService{assignErr: pkgerrors.ErrOptimisticLock}
	h := newScheduleTestHandler(mock, nil)

	r, w := setupGin()
	req := httptest.NewRequest("PUT", "/batches/batch-1/schedule/periods", jsonBody(dto.AssignPeriodRequest{
		DayOfWeek:    1,
		PeriodNumber: 1,
		Version:      1,
	}))
	req.Header.Set("Content-Type", "application/json")
	r.PUT("/batches/:batchId/schedule/periods", func(c *gin.Context) {
		setAuth(c)
		h.AssignPeriod(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16004 {
		t.Errorf("expected code 16004, got %d", resp.Code)
	}
}

func TestScheduleHandler_AssignPeriod_MissingVersion(t *testing.T) {
	h := newScheduleTestHandler(nil, nil)

	r, w := setupGin()
	req := httptest.NewRequest("PUT", "/batches/batch-1/schedule/periods", jsonBody(map[string]int{
		"day_of_week":   1,
		"period_number": 1,
	}))
	req.Header.Set("Content-Type", "application/json")
	r.PUT("/batches/:batchId/schedule/periods", func(c *gin.Context) {
		setAuth(c)
		h.AssignPeriod(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestScheduleHandler_Grid_Success(t *testing.T) {
	proj := &mockProjectionService{
		gridResult: &dto.GridResponse{BatchID: "batch-1", Days: []int{1, 2}},
	}
	h := newScheduleTestHandler(nil, proj)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule/grid", nil)
	r.GET("/batches/:batchId/schedule/grid", func(c *gin.Context) {
		setAuth(c)
		h.Grid(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_Calendar_BatchNotFound(t *testing.T) {
	proj := &mockProjectionService{calendarErr: service.ErrBatchNotFound}
	h := newScheduleTestHandler(nil, proj)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule/calendar", nil)
	r.GET("/batches/:batchId/schedule/calendar", func(c *gin.Context) {
		setAuth(c)
		h.Calendar(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16002 {
		t.Errorf("expected code 16002, got %d", resp.Code)
	}
}

func TestScheduleHandler_CheckConflict_Success(t *testing.T) {
	mock := &mockScheduleService{
		conflictResult: &dto.CheckConflictResponse{Conflict: nil},
	}
	h := newScheduleTestHandler(mock, nil)

	r, w := setupGin()
	req := httptest.NewRequest("POST", "/schedule/check-conflict", jsonBody(dto.CheckConflictRequest{
		TeacherID: "44444444-4444-4444-4444-444444444444",
		DayOfWeek: 1,
		StartTime: "08:00",
		EndTime:   "08:45",
	}))
	req.Header.Set("Content-Type", "application/json")
	r.POST("/schedule/check-conflict", func(c *gin.Context) {
		setAuth(c)
		h.CheckConflict(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"PeriodNotFound", service.ErrPeriodNotFound, 404, 16001},
		{"BatchNotFound", service.ErrBatchNotFound, 404, 16002},
		{"OptimisticLock", pkgerrors.ErrOptimisticLock, 409, 16004},
		{"TeacherNotFound", service.ErrTeacherNotFound, 400, 16005},
		{"SubjectNotFound", service.ErrSubjectNotFound, 400, 16006},
		{"TemplateNotFound", service.ErrTemplateNotFound, 404, 14001},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockScheduleService{getErr: tt.err}
			h := newScheduleTestHandler(mock, nil)

			r, w := setupGin()
			req := httptest.NewRequest("GET", "/batches/batch-1/schedule", nil)
			r.GET("/batches/:batchId/schedule", func(c *gin.Context) {
				setAuth(c)
				h.Get(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_XLSX_Success(t *testing.T) {
	mock := &mockExportService{
		xlsxBuf:      bytes.NewBufferString("excel content"),
		xlsxFilename: "课表_一年级1班.xlsx",
	}
	h := NewExportHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule/export/xlsx", nil)
	r.GET("/batches/:batchId/schedule/export/xlsx", func(c *gin.Context) {
		setAuth(c)
		h.ExportXLSX(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if cd == "" {
		t.Error("expected Content-Disposition header")
	}
	// 中文文件名经 RFC 5987 编码
	if !bytes.Contains([]byte(cd), []byte("filename*=UTF-8''")) {
		t.Errorf("expected RFC 5987 encoded filename, got %s", cd)
	}
}

func TestExportHandler_ICS_Success(t *testing.T) {
	mock := &mockExportService{
		icsBuf:      bytes.NewBufferString("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		icsFilename: "课表_一年级1班.ics",
	}
	h := NewExportHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule/export/ics", nil)
	r.GET("/batches/:batchId/schedule/export/ics", func(c *gin.Context) {
		setAuth(c)
		h.ExportICS(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != icsContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
}

func TestExportHandler_NoSchedule(t *testing.T) {
	mock := &mockExportService{xlsxErr: service.ErrExportNoSchedule}
	h := NewExportHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule/export/xlsx", nil)
	r.GET("/batches/:batchId/schedule/export/xlsx", func(c *gin.Context) {
		setAuth(c)
		h.ExportXLSX(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16101 {
		t.Errorf("expected code 16101, got %d", resp.Code)
	}
}

func TestExportHandler_BatchNotFound(t *testing.T) {
	mock := &mockExportService{icsErr: service.ErrBatchNotFound}
	h := NewExportHandler(mock)

	r, w := setupGin()
	req := httptest.NewRequest("GET", "/batches/batch-1/schedule/export/ics", nil)
	r.GET("/batches/:batchId/schedule/export/ics", func(c *gin.Context) {
		setAuth(c)
		h.ExportICS(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
