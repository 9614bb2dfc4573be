package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"school-console/backend/internal/dto"
	"school-console/backend/internal/service"
	pkgerrors "school-console/backend/pkg/errors"
	"school-console/backend/pkg/response"
)

// ScheduleHandler 课表模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc   service.ScheduleService
	projectionSvc service.ProjectionService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, projectionSvc service.ProjectionService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, projectionSvc: projectionSvc}
}

// Get 获取班级课表
// GET /api/v1/batches/:batchId/schedule
func (h *ScheduleHandler) Get(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Get(c.Request.Context(), orgID, batchID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// Initialize 按模板编排课表（全量重建，已有编排被替换）
// POST /api/v1/batches/:batchId/schedule/initialize
func (h *ScheduleHandler) Initialize(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.InitializeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.scheduleSvc.Initialize(c.Request.Context(), orgID, batchID, req.TemplateID, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// Set 全量写课表；periods 为空数组 ⇒ 清空
// PUT /api/v1/batches/:batchId/schedule
func (h *ScheduleHandler) Set(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.Set(c.Request.Context(), orgID, batchID, &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// AssignPeriod 单课节分配科目与教师（带乐观锁版本）
// PUT /api/v1/batches/:batchId/schedule/periods
func (h *ScheduleHandler) AssignPeriod(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	period, err := h.scheduleSvc.Assign(c.Request.Context(), orgID, batchID, &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, period)
}

// Grid 网格投影
// GET /api/v1/batches/:batchId/schedule/grid
func (h *ScheduleHandler) Grid(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}

	grid, err := h.projectionSvc.Grid(c.Request.Context(), orgID, batchID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, grid)
}

// Calendar 日历投影
// GET /api/v1/batches/:batchId/schedule/calendar
func (h *ScheduleHandler) Calendar(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}

	calendar, err := h.projectionSvc.Calendar(c.Request.Context(), orgID, batchID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, calendar)
}

// Printable 打印投影
// GET /api/v1/batches/:batchId/schedule/printable
func (h *ScheduleHandler) Printable(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}

	printable, err := h.projectionSvc.Printable(c.Request.Context(), orgID, batchID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, printable)
}

// CheckConflict 教师占用检测（只读，不产生写入）
// POST /api/v1/schedule/check-conflict
func (h *ScheduleHandler) CheckConflict(c *gin.Context) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return
	}

	var req dto.CheckConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.CheckConflict(c.Request.Context(), orgID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// orgAndBatch 提取 organization_id 与路径中的 batchId
func orgAndBatch(c *gin.Context) (string, string, bool) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return "", "", false
	}
	batchID := c.Param("batchId")
	if batchID == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return "", "", false
	}
	return orgID, batchID, true
}

// handleScheduleError 统一处理课表模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	var cErr *service.ConflictError
	switch {
	case errors.As(err, &vErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, vErr.Error(), gin.H{
			"field":  vErr.Field,
			"reason": vErr.Reason,
		})
	case errors.As(err, &cErr):
		response.Conflict(c, 16003, "教师在该时间段已被其他班级占用", cErr.Detail)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 16004, "课节已被他人修改，请刷新后重试")
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 16001, "课节不存在")
	case errors.Is(err, service.ErrBatchNotFound):
		response.NotFound(c, 16002, "班级不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.BadRequest(c, 16005, "教师不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.BadRequest(c, 16006, "科目不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 14001, "作息模板不存在")
	default:
		response.InternalError(c)
	}
}
