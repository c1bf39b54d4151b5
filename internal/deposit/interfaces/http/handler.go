package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/deposit/application"
	"github.com/wyfcoding/investplan/internal/deposit/domain"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/middleware"
	"github.com/wyfcoding/investplan/pkg/response"
)

// DepositHandler 充值申请 HTTP 处理器
type DepositHandler struct {
	depositService *application.Service
}

// NewDepositHandler 创建处理器
func NewDepositHandler(depositService *application.Service) *DepositHandler {
	return &DepositHandler{depositService: depositService}
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *DepositHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/config", h.GetPublicConfig)
}

// RegisterRoutes 注册用户侧路由
func (h *DepositHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/deposits")
	{
		api.POST("", h.Create)
		api.GET("", h.ListMine)
	}
}

// RegisterAdminRoutes 注册管理侧路由
func (h *DepositHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	api := router.Group("/deposits")
	{
		api.GET("", h.List)
		api.POST("/:id/approve", h.Approve)
		api.POST("/:id/reject", h.Reject)
	}
}

// GetPublicConfig 前台充值配置：币种、最低充值额、收款 UPI
func (h *DepositHandler) GetPublicConfig(c *gin.Context) {
	response.Success(c, h.depositService.PublicConfig())
}

type createDepositRequest struct {
	Amount string `json:"amount" binding:"required"`
	TxnRef string `json:"txn_ref" binding:"required"`
}

// Create 提交充值申请
func (h *DepositHandler) Create(c *gin.Context) {
	var req createDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid amount")
		return
	}

	deposit, err := h.depositService.Create(c.Request.Context(), application.CreateDepositCommand{
		UserID: c.GetString(middleware.UserIDKey),
		Amount: amount,
		TxnRef: req.TxnRef,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, gin.H{"deposit": deposit})
}

// ListMine 用户充值记录
func (h *DepositHandler) ListMine(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		response.Error(c, http.StatusBadRequest, "invalid limit")
		return
	}

	deposits, err := h.depositService.ListByUser(c.Request.Context(), c.GetString(middleware.UserIDKey), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"deposits": deposits, "total": len(deposits)})
}

// List 管理端充值申请列表
func (h *DepositHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", string(domain.DepositStatusPending))
	if status == "all" {
		status = ""
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		response.Error(c, http.StatusBadRequest, "invalid limit")
		return
	}

	deposits, err := h.depositService.List(c.Request.Context(), status, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"deposits": deposits, "total": len(deposits)})
}

type decisionRequest struct {
	Note string `json:"note"`
}

// Approve 充值审核通过并入账
func (h *DepositHandler) Approve(c *gin.Context) {
	var req decisionRequest
	_ = c.ShouldBindJSON(&req)

	deposit, err := h.depositService.Approve(c.Request.Context(), application.DecisionCommand{
		DepositID: c.Param("id"),
		AdminID:   c.GetString(middleware.AdminIDKey),
		Note:      req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"deposit": deposit})
}

// Reject 充值审核驳回
func (h *DepositHandler) Reject(c *gin.Context) {
	var req decisionRequest
	_ = c.ShouldBindJSON(&req)

	deposit, err := h.depositService.Reject(c.Request.Context(), application.DecisionCommand{
		DepositID: c.Param("id"),
		AdminID:   c.GetString(middleware.AdminIDKey),
		Note:      req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"deposit": deposit})
}

func (h *DepositHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDepositNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrBelowMinDeposit),
		errors.Is(err, domain.ErrTxnRefRequired),
		errors.Is(err, domain.ErrAlreadyHandled):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error(c.Request.Context(), "deposit request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
