// Package middleware 提供 Gin 通用中间件（日志、trace、指标、身份注入）
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/metrics"
	"github.com/wyfcoding/investplan/pkg/response"
)

// UserIDKey gin context key for the authenticated user id
const UserIDKey = "user_id"

// AdminIDKey gin context key for the authenticated admin id
const AdminIDKey = "admin_id"

// GinLogging 日志中间件，注入 trace_id 并记录请求耗时
func GinLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", traceID)

		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info(ctx, "http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// GinMetrics 指标中间件
func GinMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.HTTPRequestDuration.Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

// RequireUser 要求上游网关注入的用户身份
// 认证与令牌签发在网关完成，本服务只消费 X-User-ID
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Body{Code: http.StatusUnauthorized, Message: "authentication required"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireAdmin 要求上游网关注入的管理员身份
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetHeader("X-Admin-ID")
		if adminID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Body{Code: http.StatusForbidden, Message: "admin access required"})
			return
		}
		c.Set(AdminIDKey, adminID)
		c.Next()
	}
}
