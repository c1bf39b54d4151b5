package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/investplan/internal/user/application"
	"github.com/wyfcoding/investplan/internal/user/domain"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/middleware"
	"github.com/wyfcoding/investplan/pkg/response"
)

// UserHandler 用户档案 HTTP 处理器
type UserHandler struct {
	userService *application.Service
}

// NewUserHandler 创建处理器
func NewUserHandler(userService *application.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes 注册用户侧路由
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/wallet/payout-settings", h.GetPayoutSettings)
	router.PUT("/wallet/payout-settings", h.UpdatePayoutSettings)
	router.GET("/profile", h.GetProfile)
}

// RegisterAdminRoutes 注册管理侧路由
func (h *UserHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.POST("/users", h.Register)
	router.PUT("/users/:id/vip-level", h.SetVipLevel)
}

type registerRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Phone    string `json:"phone"`
	Nickname string `json:"nickname"`
}

// Register 开户：建档并创建钱包，网关注册流程回调本接口
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.Register(c.Request.Context(), application.RegisterCommand{
		UserID:   req.UserID,
		Phone:    req.Phone,
		Nickname: req.Nickname,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, profile)
}

// GetProfile 用户档案
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.userService.Profile(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, profile)
}

// GetPayoutSettings 提现收款设置
func (h *UserHandler) GetPayoutSettings(c *gin.Context) {
	settings, err := h.userService.PayoutSettings(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, settings)
}

type updatePayoutRequest struct {
	Method string `json:"method"`
	UpiID  string `json:"upi_id" binding:"required"`
	Name   string `json:"name"`
}

// UpdatePayoutSettings 更新提现收款设置
func (h *UserHandler) UpdatePayoutSettings(c *gin.Context) {
	var req updatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.userService.UpdatePayoutSettings(c.Request.Context(), c.GetString(middleware.UserIDKey), application.PayoutSettingsDTO{
		Method: req.Method,
		UpiID:  req.UpiID,
		Name:   req.Name,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, settings)
}

type setVipLevelRequest struct {
	VipLevel *int `json:"vip_level" binding:"required"`
}

// SetVipLevel 管理端调整用户 VIP 等级
func (h *UserHandler) SetVipLevel(c *gin.Context) {
	var req setVipLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.SetVipLevel(c.Request.Context(), c.Param("id"), *req.VipLevel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, profile)
}

func (h *UserHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPayoutUpiRequired), errors.Is(err, domain.ErrInvalidVipLevel):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error(c.Request.Context(), "user request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
