package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/plan/application"
	"github.com/wyfcoding/investplan/internal/plan/domain"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/response"
)

// PlanHandler 套餐目录 HTTP 处理器
type PlanHandler struct {
	planService *application.Service
}

// NewPlanHandler 创建处理器
func NewPlanHandler(planService *application.Service) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// RegisterRoutes 注册用户侧路由
func (h *PlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/plans", h.ListActive)
}

// RegisterAdminRoutes 注册管理侧路由
func (h *PlanHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	api := router.Group("/plans")
	{
		api.GET("", h.ListAll)
		api.POST("", h.Create)
		api.PUT("/:code", h.Update)
	}
}

// ListActive 用户可购套餐列表
func (h *PlanHandler) ListActive(c *gin.Context) {
	plans, err := h.planService.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"plans": plans})
}

// ListAll 管理端全量套餐列表
func (h *PlanHandler) ListAll(c *gin.Context) {
	plans, err := h.planService.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"plans": plans})
}

type upsertPlanRequest struct {
	Name          string `json:"name" binding:"required"`
	Code          string `json:"code"`
	UnitPrice     string `json:"unit_price" binding:"required"`
	DailyEarnings string `json:"daily_earnings" binding:"required"`
	DurationDays  int    `json:"duration_days" binding:"required"`
	TotalRevenue  string `json:"total_revenue"`
	MinVipLevel   int    `json:"min_vip_level"`
	IsActive      *bool  `json:"is_active"`
}

func (req upsertPlanRequest) toCommand(code string) (application.UpsertPlanCommand, error) {
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return application.UpsertPlanCommand{}, errors.New("invalid unit_price")
	}
	dailyEarnings, err := decimal.NewFromString(req.DailyEarnings)
	if err != nil {
		return application.UpsertPlanCommand{}, errors.New("invalid daily_earnings")
	}
	// 总回报可不填，由服务端按缺省口径推导
	totalRevenue := decimal.Zero
	if req.TotalRevenue != "" {
		if totalRevenue, err = decimal.NewFromString(req.TotalRevenue); err != nil {
			return application.UpsertPlanCommand{}, errors.New("invalid total_revenue")
		}
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return application.UpsertPlanCommand{
		Name:          req.Name,
		Code:          code,
		UnitPrice:     unitPrice,
		DailyEarnings: dailyEarnings,
		DurationDays:  req.DurationDays,
		TotalRevenue:  totalRevenue,
		MinVipLevel:   req.MinVipLevel,
		IsActive:      active,
	}, nil
}

// Create 新建套餐
func (h *PlanHandler) Create(c *gin.Context) {
	var req upsertPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		response.Error(c, http.StatusBadRequest, "code is required")
		return
	}

	cmd, err := req.toCommand(req.Code)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.planService.Create(c.Request.Context(), cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, gin.H{"plan": plan})
}

// Update 更新套餐
func (h *PlanHandler) Update(c *gin.Context) {
	var req upsertPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	cmd, err := req.toCommand(c.Param("code"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.planService.Update(c.Request.Context(), cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"plan": plan})
}

func (h *PlanHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPlanCodeExists):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidPlan):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error(c.Request.Context(), "plan request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
