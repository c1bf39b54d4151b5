package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一 HTTP 响应结构
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "success", Data: data})
}

// Created 资源创建成功
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Code: 0, Message: "success", Data: data})
}

// Error 错误响应，code 复用 HTTP 状态码
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Body{Code: status, Message: message})
}
