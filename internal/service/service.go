package service

import (
	"go.uber.org/zap"

	"school-console/backend/config"
	"school-console/backend/internal/repository"
	"school-console/backend/pkg/redis"
)

// Service 聚合所有业务服务
type Service struct {
	Template   TemplateService
	Schedule   ScheduleService
	Projection ProjectionService
	Export     ExportService
}

// NewService 创建所有业务服务实例
// cache 可为 nil（未配置 Redis 时默认模板不走缓存）
func NewService(repo *repository.Repository, cache *redis.Client, cfg *config.Config, logger *zap.Logger) *Service {
	validator := NewConflictValidator(repo, logger)
	projection := NewProjectionService(repo, logger)
	return &Service{
		Template:   NewTemplateService(cfg, repo, cache, logger),
		Schedule:   NewScheduleService(repo, validator, logger),
		Projection: projection,
		Export:     NewExportService(repo, projection, logger),
	}
}
