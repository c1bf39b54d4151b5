package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/plan/domain"
	"github.com/wyfcoding/investplan/pkg/logger"
)

// UpsertPlanCommand 创建 / 更新套餐命令
// TotalRevenue 为零时按缺省口径推导
type UpsertPlanCommand struct {
	Name          string
	Code          string
	UnitPrice     decimal.Decimal
	DailyEarnings decimal.Decimal
	DurationDays  int
	TotalRevenue  decimal.Decimal
	MinVipLevel   int
	IsActive      bool
}

// PlanDTO 套餐视图
type PlanDTO struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	UnitPrice     string `json:"unit_price"`
	DailyEarnings string `json:"daily_earnings"`
	DurationDays  int    `json:"duration_days"`
	TotalRevenue  string `json:"total_revenue"`
	MinVipLevel   int    `json:"min_vip_level"`
	RequiredVip   int    `json:"required_vip"`
	IsActive      bool   `json:"is_active"`
}

func toPlanDTO(p *domain.Plan) PlanDTO {
	return PlanDTO{
		Name:          p.Name,
		Code:          p.Code,
		UnitPrice:     p.UnitPrice.String(),
		DailyEarnings: p.DailyEarnings.String(),
		DurationDays:  p.DurationDays,
		TotalRevenue:  p.TotalRevenue.String(),
		MinVipLevel:   p.MinVipLevel,
		RequiredVip:   p.RequiredVipLevel(),
		IsActive:      p.IsActive,
	}
}

func toPlanDTOs(plans []*domain.Plan) []PlanDTO {
	out := make([]PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanDTO(p))
	}
	return out
}

// Service 套餐目录应用服务
type Service struct {
	plans domain.PlanRepository
}

// NewService 创建套餐目录服务
func NewService(plans domain.PlanRepository) *Service {
	return &Service{plans: plans}
}

// ListActive 用户侧可购套餐列表
func (s *Service) ListActive(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return toPlanDTOs(plans), nil
}

// ListAll 管理侧全量套餐列表（含下架）
func (s *Service) ListAll(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.plans.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toPlanDTOs(plans), nil
}

// Get 按编码取套餐
func (s *Service) Get(ctx context.Context, code string) (*PlanDTO, error) {
	plan, err := s.plans.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	dto := toPlanDTO(plan)
	return &dto, nil
}

// Create 新建套餐，编码唯一
func (s *Service) Create(ctx context.Context, cmd UpsertPlanCommand) (*PlanDTO, error) {
	if err := validatePlan(cmd); err != nil {
		return nil, err
	}
	if _, err := s.plans.GetByCode(ctx, cmd.Code); err == nil {
		return nil, domain.ErrPlanCodeExists
	} else if !errors.Is(err, domain.ErrPlanNotFound) {
		return nil, err
	}

	plan := &domain.Plan{
		Name:          cmd.Name,
		Code:          cmd.Code,
		UnitPrice:     cmd.UnitPrice,
		DailyEarnings: cmd.DailyEarnings,
		DurationDays:  cmd.DurationDays,
		TotalRevenue:  cmd.TotalRevenue,
		MinVipLevel:   cmd.MinVipLevel,
		IsActive:      cmd.IsActive,
	}
	if plan.TotalRevenue.IsZero() {
		plan.TotalRevenue = plan.ExpectedTotalRevenue()
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}

	dto := toPlanDTO(plan)
	return &dto, nil
}

// Update 更新套餐，只影响后续购买
func (s *Service) Update(ctx context.Context, cmd UpsertPlanCommand) (*PlanDTO, error) {
	if err := validatePlan(cmd); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByCode(ctx, cmd.Code)
	if err != nil {
		return nil, err
	}

	plan.Name = cmd.Name
	plan.UnitPrice = cmd.UnitPrice
	plan.DailyEarnings = cmd.DailyEarnings
	plan.DurationDays = cmd.DurationDays
	plan.TotalRevenue = cmd.TotalRevenue
	plan.MinVipLevel = cmd.MinVipLevel
	plan.IsActive = cmd.IsActive
	if plan.TotalRevenue.IsZero() {
		plan.TotalRevenue = plan.ExpectedTotalRevenue()
	}
	if err := s.plans.Save(ctx, plan); err != nil {
		return nil, err
	}

	dto := toPlanDTO(plan)
	return &dto, nil
}

func validatePlan(cmd UpsertPlanCommand) error {
	if cmd.Code == "" || cmd.Name == "" {
		return fmt.Errorf("plan code and name are required: %w", domain.ErrInvalidPlan)
	}
	if !cmd.UnitPrice.IsPositive() {
		return fmt.Errorf("unit price must be positive: %w", domain.ErrInvalidPlan)
	}
	if cmd.DailyEarnings.IsNegative() {
		return fmt.Errorf("daily earnings must not be negative: %w", domain.ErrInvalidPlan)
	}
	if cmd.DurationDays <= 0 {
		return fmt.Errorf("duration days must be positive: %w", domain.ErrInvalidPlan)
	}
	if cmd.TotalRevenue.IsNegative() {
		return fmt.Errorf("total revenue must not be negative: %w", domain.ErrInvalidPlan)
	}
	if cmd.MinVipLevel < 0 {
		return fmt.Errorf("min vip level must not be negative: %w", domain.ErrInvalidPlan)
	}
	return nil
}

// SeedDefaults 首次启动时灌入缺省套餐，已有数据则跳过
func (s *Service) SeedDefaults(ctx context.Context) error {
	existing, err := s.plans.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := []UpsertPlanCommand{
		{Name: "新手体验", Code: "VIP0", UnitPrice: decimal.NewFromInt(20), DailyEarnings: decimal.NewFromFloat(0.5), DurationDays: 46, TotalRevenue: decimal.NewFromInt(43), MinVipLevel: 0, IsActive: true},
		{Name: "进阶计划", Code: "VIP1", UnitPrice: decimal.NewFromInt(290), DailyEarnings: decimal.NewFromFloat(234.9), DurationDays: 46, TotalRevenue: decimal.NewFromFloat(10805.4), MinVipLevel: 0, IsActive: true},
		{Name: "精英计划", Code: "VIP2", UnitPrice: decimal.NewFromInt(1990), DailyEarnings: decimal.NewFromFloat(1631.8), DurationDays: 46, TotalRevenue: decimal.NewFromFloat(75062.8), MinVipLevel: 1, IsActive: true},
		{Name: "至尊计划", Code: "VIP3", UnitPrice: decimal.NewFromInt(3990), DailyEarnings: decimal.NewFromFloat(3311.7), DurationDays: 46, TotalRevenue: decimal.NewFromFloat(152338.2), MinVipLevel: 2, IsActive: true},
	}
	for _, cmd := range defaults {
		if _, err := s.Create(ctx, cmd); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", cmd.Code, err)
		}
	}
	logger.Info(ctx, "seeded default investment plans", "count", len(defaults))
	return nil
}
