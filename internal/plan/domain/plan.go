// 包 domain 投资套餐目录的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound   = errors.New("plan not found")
	ErrPlanCodeExists = errors.New("plan code already exists")
	ErrPlanInactive   = errors.New("plan is not active")
	ErrInvalidPlan    = errors.New("invalid plan definition")
)

// Plan 投资套餐聚合根
// 购买价、日收益与期限在购买时快照到投资单，之后改动套餐不影响存量投资
type Plan struct {
	gorm.Model
	Name          string          `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Code          string          `gorm:"column:code;type:varchar(32);uniqueIndex;not null" json:"code"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(32,18);not null" json:"unit_price"`
	DailyEarnings decimal.Decimal `gorm:"column:daily_earnings;type:decimal(32,18);not null" json:"daily_earnings"`
	DurationDays  int             `gorm:"column:duration_days;not null" json:"duration_days"`
	TotalRevenue  decimal.Decimal `gorm:"column:total_revenue;type:decimal(32,18);not null" json:"total_revenue"`
	MinVipLevel   int             `gorm:"column:min_vip_level;not null;default:0" json:"min_vip_level"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

func (Plan) TableName() string {
	return "plans"
}

// RequiredVipLevel 购买该套餐所需的最低 VIP 等级
// VIP2 / VIP3 两档历史上按套餐名硬性定级，高于配置值时以硬性定级为准
func (p *Plan) RequiredVipLevel() int {
	required := p.MinVipLevel
	switch p.Code {
	case "VIP2":
		if required < 2 {
			required = 2
		}
	case "VIP3":
		if required < 3 {
			required = 3
		}
	}
	return required
}

// ExpectedTotalRevenue 未显式给定总回报时的缺省口径：本金 + 日收益 × 期限
func (p *Plan) ExpectedTotalRevenue() decimal.Decimal {
	return p.UnitPrice.Add(p.DailyEarnings.Mul(decimal.NewFromInt(int64(p.DurationDays))))
}

// PlanRepository 套餐仓储接口
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	Save(ctx context.Context, plan *Plan) error
	GetByCode(ctx context.Context, code string) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
	ListAll(ctx context.Context) ([]*Plan, error)
}
