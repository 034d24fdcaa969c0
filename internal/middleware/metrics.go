package middleware

import (
	"infra-cli/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP请求统计中间件
 * @description
 * - 统计状态服务收到的请求数量
 * - 状态码 >= 400 计为错误请求
 * - 为健康检查接口提供请求数据
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		services.RecordHTTPRequest(path, c.Writer.Status())
	}
}

// GetTotalRequests 获取总请求数
func GetTotalRequests() int64 {
	return services.GetTotalRequestCount()
}

// GetErrorRequests 获取错误请求数
func GetErrorRequests() int64 {
	return services.GetTotalErrorCount()
}
