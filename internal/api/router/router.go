package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school-console/backend/config"
	"school-console/backend/internal/api/handler"
	"school-console/backend/internal/api/middleware"
	"school-console/backend/pkg/jwt"
	"school-console/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 作息模板模块
		templates := v1.Group("/period-templates")
		{
			templates.GET("", h.Template.List)
			templates.GET("/default", h.Template.GetDefault)
			templates.POST("", middleware.RoleAuth("admin"), h.Template.Create)
			templates.PUT("/:id", middleware.RoleAuth("admin"), h.Template.Update)
			templates.POST("/derive/:batchId", middleware.RoleAuth("admin"), h.Template.Derive)
		}

		// 课表模块
		batches := v1.Group("/batches/:batchId/schedule")
		{
			batches.GET("", h.Schedule.Get)
			batches.POST("/initialize", middleware.RoleAuth("admin"), h.Schedule.Initialize)
			batches.PUT("", middleware.RoleAuth("admin"), h.Schedule.Set)
			batches.PUT("/periods", middleware.RoleAuth("admin"), h.Schedule.AssignPeriod)

			// 投影（只读）
			batches.GET("/grid", h.Schedule.Grid)
			batches.GET("/calendar", h.Schedule.Calendar)
			batches.GET("/printable", h.Schedule.Printable)

			// 导出
			export := batches.Group("/export")
			export.Use(middleware.RateLimit(rdb, 10, time.Minute))
			{
				export.GET("/xlsx", h.Export.ExportXLSX)
				export.GET("/ics", h.Export.ExportICS)
			}
		}

		// 教师占用检测（只读，供前端编排时实时校验）
		v1.POST("/schedule/check-conflict", h.Schedule.CheckConflict)
	}

	return r
}
