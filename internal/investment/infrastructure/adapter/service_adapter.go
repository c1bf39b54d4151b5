// 包 adapter 把其他上下文的服务适配成投资上下文声明的依赖接口
package adapter

import (
	"context"

	"github.com/wyfcoding/investplan/internal/investment/domain"
	plandomain "github.com/wyfcoding/investplan/internal/plan/domain"
	userapp "github.com/wyfcoding/investplan/internal/user/application"
)

// PlanCatalogAdapter 套餐目录适配器
type PlanCatalogAdapter struct {
	plans plandomain.PlanRepository
}

// NewPlanCatalogAdapter 创建套餐目录适配器
func NewPlanCatalogAdapter(plans plandomain.PlanRepository) *PlanCatalogAdapter {
	return &PlanCatalogAdapter{plans: plans}
}

// PlanTerms 读取套餐并换算成购买时需要快照的条款
func (a *PlanCatalogAdapter) PlanTerms(ctx context.Context, code string) (*domain.PlanTerms, error) {
	plan, err := a.plans.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &domain.PlanTerms{
		Code:             plan.Code,
		Name:             plan.Name,
		UnitPrice:        plan.UnitPrice,
		DailyEarnings:    plan.DailyEarnings,
		DurationDays:     plan.DurationDays,
		RequiredVipLevel: plan.RequiredVipLevel(),
		IsActive:         plan.IsActive,
	}, nil
}

// ProfileAdapter 用户等级查询适配器
type ProfileAdapter struct {
	users *userapp.Service
}

// NewProfileAdapter 创建用户等级适配器
func NewProfileAdapter(users *userapp.Service) *ProfileAdapter {
	return &ProfileAdapter{users: users}
}

func (a *ProfileAdapter) VipLevel(ctx context.Context, userID string) (int, error) {
	return a.users.VipLevel(ctx, userID)
}
