package handler

import "school-console/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Template *TemplateHandler
	Schedule *ScheduleHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Template: NewTemplateHandler(svc.Template),
		Schedule: NewScheduleHandler(svc.Schedule, svc.Projection),
		Export:   NewExportHandler(svc.Export),
	}
}
