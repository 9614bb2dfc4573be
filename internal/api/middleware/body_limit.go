package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"school-console/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件。
// 上限来自 server.max_body_bytes 配置；批量写课表一次最多提交
// 60 个课节，默认 1MB 远超需要
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() {
			return
		}
		for _, err := range c.Errors {
			if err.Err != nil && err.Err.Error() == "http: request body too large" {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
