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

// TemplateHandler 作息模板模块 HTTP 处理器
type TemplateHandler struct {
	templateSvc service.TemplateService
}

// NewTemplateHandler 创建 TemplateHandler
func NewTemplateHandler(templateSvc service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateSvc: templateSvc}
}

// List 获取机构的作息模板列表
// GET /api/v1/period-templates
func (h *TemplateHandler) List(c *gin.Context) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return
	}

	templates, err := h.templateSvc.List(c.Request.Context(), orgID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, gin.H{"list": templates})
}

// Create 创建作息模板
// POST /api/v1/period-templates
func (h *TemplateHandler) Create(c *gin.Context) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreatePeriodTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tpl, err := h.templateSvc.Create(c.Request.Context(), orgID, &req, callerID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.Created(c, tpl)
}

// Update 更新作息模板（带乐观锁版本）
// PUT /api/v1/period-templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "模板ID不能为空")
		return
	}

	var req dto.UpdatePeriodTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tpl, err := h.templateSvc.Update(c.Request.Context(), orgID, id, &req, callerID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, tpl)
}

// GetDefault 获取机构默认作息模板；不存在时 data 为 null
// GET /api/v1/period-templates/default
func (h *TemplateHandler) GetDefault(c *gin.Context) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return
	}

	tpl, err := h.templateSvc.GetDefault(c.Request.Context(), orgID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, tpl)
}

// Derive 从班级已编排课表反推作息模板
// POST /api/v1/period-templates/derive/:batchId
func (h *TemplateHandler) Derive(c *gin.Context) {
	orgID, ok := MustGetOrgID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	batchID := c.Param("batchId")
	if batchID == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	var req dto.DeriveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.templateSvc.DeriveFromSchedule(c.Request.Context(), orgID, batchID, &req, callerID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.Created(c, result)
}

// handleTemplateError 统一处理作息模板模块业务错误
func (h *TemplateHandler) handleTemplateError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, vErr.Error(), gin.H{
			"field":  vErr.Field,
			"reason": vErr.Reason,
		})
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 14001, "作息模板不存在")
	case errors.Is(err, service.ErrDeriveDisabled):
		response.BadRequest(c, 14002, "模板反推功能未开启")
	case errors.Is(err, service.ErrDeriveNoPeriods):
		response.BadRequest(c, 14003, "该班级尚无已编排课表，无法反推模板")
	case errors.Is(err, service.ErrBatchNotFound):
		response.NotFound(c, 16002, "班级不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 16004, "模板已被他人修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
