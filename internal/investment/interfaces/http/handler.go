package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/investplan/internal/investment/application"
	"github.com/wyfcoding/investplan/internal/investment/domain"
	plandomain "github.com/wyfcoding/investplan/internal/plan/domain"
	userdomain "github.com/wyfcoding/investplan/internal/user/domain"
	walletdomain "github.com/wyfcoding/investplan/internal/wallet/domain"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/middleware"
	"github.com/wyfcoding/investplan/pkg/response"
)

// InvestmentHandler 投资 HTTP 处理器
type InvestmentHandler struct {
	investmentService *application.Service
}

// NewInvestmentHandler 创建处理器
func NewInvestmentHandler(investmentService *application.Service) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

// RegisterRoutes 注册用户侧路由
func (h *InvestmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/plans/:code/invest", h.Purchase)
	router.GET("/investments", h.List)
}

// Purchase 购买套餐
func (h *InvestmentHandler) Purchase(c *gin.Context) {
	investment, err := h.investmentService.Purchase(c.Request.Context(), application.PurchaseCommand{
		UserID:   c.GetString(middleware.UserIDKey),
		PlanCode: c.Param("code"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, gin.H{"investment": investment})
}

// List 投资单列表
func (h *InvestmentHandler) List(c *gin.Context) {
	investments, err := h.investmentService.List(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"investments": investments, "total": len(investments)})
}

func (h *InvestmentHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrVipLevelTooLow):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, domain.ErrInvestmentNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, walletdomain.ErrWalletNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPlanNotPurchasable),
		errors.Is(err, walletdomain.ErrInsufficientBalance):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, walletdomain.ErrWalletConflict):
		response.Error(c, http.StatusConflict, err.Error())
	default:
		logger.Error(c.Request.Context(), "investment request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
