package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/wallet/application"
	"github.com/wyfcoding/investplan/internal/wallet/domain"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/middleware"
	"github.com/wyfcoding/investplan/pkg/response"
)

// WalletHandler 钱包与提现 HTTP 处理器
type WalletHandler struct {
	walletService *application.Service
}

// NewWalletHandler 创建处理器
func NewWalletHandler(walletService *application.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// RegisterRoutes 注册用户侧路由（前置 RequireUser）
func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/wallet")
	{
		api.GET("/summary", h.GetSummary)
		api.POST("/withdrawals", h.RequestWithdraw)
	}
}

// RegisterAdminRoutes 注册管理侧路由（前置 RequireAdmin）
func (h *WalletHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	api := router.Group("/wallet")
	{
		api.GET("/withdrawals", h.ListWithdrawRequests)
		api.POST("/withdrawals/:id/approve", h.ApproveWithdraw)
		api.POST("/withdrawals/:id/reject", h.RejectWithdraw)
		api.POST("/recharges", h.ManualRecharge)
	}
}

// GetSummary 钱包摘要：余额 + 最近流水，读取前先补记收益
func (h *WalletHandler) GetSummary(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	summary, err := h.walletService.Summary(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, summary)
}

type requestWithdrawRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Method  string `json:"method"`
	Account string `json:"account"`
}

// RequestWithdraw 提现申请
func (h *WalletHandler) RequestWithdraw(c *gin.Context) {
	var req requestWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid amount")
		return
	}

	txn, wallet, err := h.walletService.RequestWithdraw(c.Request.Context(), application.RequestWithdrawCommand{
		UserID:  c.GetString(middleware.UserIDKey),
		Amount:  amount,
		Method:  req.Method,
		Account: req.Account,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, gin.H{"transaction": txn, "wallet": wallet})
}

// ListWithdrawRequests 管理端提现申请列表
func (h *WalletHandler) ListWithdrawRequests(c *gin.Context) {
	status := c.DefaultQuery("status", string(domain.TransactionStatusPending))
	if status == "all" {
		status = ""
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		response.Error(c, http.StatusBadRequest, "invalid limit")
		return
	}

	txns, err := h.walletService.ListWithdrawRequests(c.Request.Context(), status, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"withdrawals": txns, "total": len(txns)})
}

type withdrawDecisionRequest struct {
	Note string `json:"note"`
}

// ApproveWithdraw 提现审核通过
func (h *WalletHandler) ApproveWithdraw(c *gin.Context) {
	// 备注可选，请求体允许为空
	var req withdrawDecisionRequest
	_ = c.ShouldBindJSON(&req)

	txn, err := h.walletService.ApproveWithdraw(c.Request.Context(), application.WithdrawDecisionCommand{
		TransactionID: c.Param("id"),
		AdminID:       c.GetString(middleware.AdminIDKey),
		Note:          req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"transaction": txn})
}

// RejectWithdraw 提现审核驳回并退款
func (h *WalletHandler) RejectWithdraw(c *gin.Context) {
	var req withdrawDecisionRequest
	_ = c.ShouldBindJSON(&req)

	txn, wallet, err := h.walletService.RejectWithdraw(c.Request.Context(), application.WithdrawDecisionCommand{
		TransactionID: c.Param("id"),
		AdminID:       c.GetString(middleware.AdminIDKey),
		Note:          req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"transaction": txn, "wallet": wallet})
}

type manualRechargeRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

// ManualRecharge 管理员手工充值
func (h *WalletHandler) ManualRecharge(c *gin.Context) {
	var req manualRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid amount")
		return
	}

	txn, wallet, err := h.walletService.ManualRecharge(c.Request.Context(), application.ManualRechargeCommand{
		UserID:  req.UserID,
		Amount:  amount,
		AdminID: c.GetString(middleware.AdminIDKey),
		Note:    req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"transaction": txn, "wallet": wallet})
}

func (h *WalletHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrWithdrawRequestNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrBelowMinWithdraw),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrPayoutAccountMissing),
		errors.Is(err, domain.ErrAlreadyProcessed):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrWalletConflict):
		response.Error(c, http.StatusConflict, err.Error())
	default:
		logger.Error(c.Request.Context(), "wallet request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
