// 包 domain 投资单与结算的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvestmentNotFound = errors.New("investment not found")
	ErrPlanNotPurchasable = errors.New("plan is not available for purchase")
	ErrVipLevelTooLow     = errors.New("vip level too low for this plan")
)

// InvestmentStatus 投资单状态
type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "ACTIVE"
	InvestmentStatusCompleted InvestmentStatus = "COMPLETED"
	InvestmentStatusCancelled InvestmentStatus = "CANCELLED"
)

const accrualDay = 24 * time.Hour

// Investment 投资单聚合根
// 日收益与期限在购买时从套餐快照，之后套餐变更不影响本单的结算口径
type Investment struct {
	gorm.Model
	InvestmentID  string          `gorm:"column:investment_id;type:varchar(32);uniqueIndex;not null" json:"investment_id"`
	UserID        string          `gorm:"column:user_id;type:varchar(64);index;not null" json:"user_id"`
	PlanCode      string          `gorm:"column:plan_code;type:varchar(32);index;not null" json:"plan_code"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	DailyEarnings decimal.Decimal `gorm:"column:daily_earnings;type:decimal(32,18);not null" json:"daily_earnings"`
	DurationDays  int             `gorm:"column:duration_days;not null" json:"duration_days"`
	StartDate     time.Time       `gorm:"column:start_date;not null" json:"start_date"`
	EndDate       time.Time       `gorm:"column:end_date;not null;index" json:"end_date"`
	// 结算水位：已计息到的时刻，首次结算前为空
	LastCreditDate *time.Time       `gorm:"column:last_credit_date" json:"last_credit_date"`
	Status         InvestmentStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
}

func (Investment) TableName() string {
	return "investments"
}

// NewInvestment 按套餐快照创建投资单
func NewInvestment(investmentID, userID, planCode string, amount, dailyEarnings decimal.Decimal, durationDays int, startDate time.Time) *Investment {
	return &Investment{
		InvestmentID:  investmentID,
		UserID:        userID,
		PlanCode:      planCode,
		Amount:        amount,
		DailyEarnings: dailyEarnings,
		DurationDays:  durationDays,
		StartDate:     startDate,
		EndDate:       startDate.Add(time.Duration(durationDays) * accrualDay),
		Status:        InvestmentStatusActive,
	}
}

// Accrual 一次结算的计算结果
type Accrual struct {
	Days           int
	Amount         decimal.Decimal
	NextCheckpoint time.Time
	Completed      bool
}

// Applicable 本次结算是否需要落库
func (a Accrual) Applicable() bool {
	return a.Days > 0 || a.Completed
}

// Checkpoint 当前结算水位，未结算过则为起始时刻
func (i *Investment) Checkpoint() *time.Time {
	return i.LastCreditDate
}

// Accrue 计算截至 now 应补记的整天收益，纯函数不落库
// 天数锚定 StartDate 计算，水位推进到 now，保证每个整天恰好计息一次
func (i *Investment) Accrue(now time.Time) Accrual {
	if i.Status != InvestmentStatusActive {
		return Accrual{}
	}

	checkpoint := i.StartDate
	if i.LastCreditDate != nil {
		checkpoint = *i.LastCreditDate
	}
	// 时钟回拨或同刻重入，直接跳过
	if !now.After(checkpoint) {
		return Accrual{}
	}

	horizon := now
	if horizon.After(i.EndDate) {
		horizon = i.EndDate
	}

	daysElapsed := wholeDays(i.StartDate, horizon)
	daysCredited := wholeDays(i.StartDate, checkpoint)
	days := daysElapsed - daysCredited
	if days < 0 {
		days = 0
	}

	return Accrual{
		Days:           days,
		Amount:         i.DailyEarnings.Mul(decimal.NewFromInt(int64(days))),
		NextCheckpoint: now,
		Completed:      !now.Before(i.EndDate),
	}
}

// Matured 是否已过计息终点
func (i *Investment) Matured(now time.Time) bool {
	return !now.Before(i.EndDate)
}

func wholeDays(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / accrualDay)
}

// InvestmentRepository 投资单仓储接口
type InvestmentRepository interface {
	Create(ctx context.Context, investment *Investment) error
	GetByID(ctx context.Context, investmentID string) (*Investment, error)
	ListByUser(ctx context.Context, userID string) ([]*Investment, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*Investment, error)
	// AdvanceCheckpoint 以旧水位做条件更新，作为并发结算的提交令牌；
	// 返回 false 表示另一个结算者已经推进过水位，本单应整体跳过
	AdvanceCheckpoint(ctx context.Context, investmentID string, prev *time.Time, next time.Time, completed bool) (bool, error)
}

// LedgerService 结算与购买依赖的账本操作（钱包上下文实现）
// 所有方法运行在调用方的事务 context 内
type LedgerService interface {
	DebitForInvestment(ctx context.Context, userID string, amount decimal.Decimal, planCode, investmentID string) error
	CreditEarnings(ctx context.Context, userID string, amount decimal.Decimal, investmentID string, days int) error
	ReleasePrincipal(ctx context.Context, userID string, amount decimal.Decimal, investmentID string) error
}

// PlanTerms 购买时从套餐目录读取并快照的条款
type PlanTerms struct {
	Code             string
	Name             string
	UnitPrice        decimal.Decimal
	DailyEarnings    decimal.Decimal
	DurationDays     int
	RequiredVipLevel int
	IsActive         bool
}

// PlanCatalog 套餐条款查询（套餐上下文实现）
type PlanCatalog interface {
	PlanTerms(ctx context.Context, code string) (*PlanTerms, error)
}

// ProfileDirectory 用户等级查询（用户上下文实现）
type ProfileDirectory interface {
	VipLevel(ctx context.Context, userID string) (int, error)
}

// EventPublisher 集成事件发布
type EventPublisher interface {
	SendMessage(ctx context.Context, topic string, key string, value any) error
}
