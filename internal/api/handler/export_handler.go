package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"school-console/backend/internal/service"
	"school-console/backend/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXLSX 导出网格课表为 Excel
// GET /api/v1/batches/:batchId/schedule/export/xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportGridXLSX(c.Request.Context(), orgID, batchID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, xlsxContentType, filename, buf.Bytes())
}

// ExportICS 导出课表为 iCalendar
// GET /api/v1/batches/:batchId/schedule/export/ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	orgID, batchID, ok := orgAndBatch(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendarICS(c.Request.Context(), orgID, batchID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, icsContentType, filename, buf.Bytes())
}

// writeDownload 设置文件下载响应头并写入内容
func writeDownload(c *gin.Context, contentType, filename string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		response.NotFound(c, 16002, "班级不存在")
	case errors.Is(err, service.ErrExportNoSchedule):
		response.NotFound(c, 16101, "该班级暂无课表")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
