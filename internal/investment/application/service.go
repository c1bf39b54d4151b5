package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/investplan/internal/investment/domain"
	"github.com/wyfcoding/investplan/pkg/db"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/metrics"
	"github.com/wyfcoding/investplan/pkg/utils"
)

// PurchaseCommand 购买投资命令
type PurchaseCommand struct {
	UserID   string
	PlanCode string
}

// InvestmentDTO 投资单视图
type InvestmentDTO struct {
	InvestmentID   string `json:"investment_id"`
	PlanCode       string `json:"plan_code"`
	Amount         string `json:"amount"`
	DailyEarnings  string `json:"daily_earnings"`
	DurationDays   int    `json:"duration_days"`
	StartDate      int64  `json:"start_date"`
	EndDate        int64  `json:"end_date"`
	LastCreditDate int64  `json:"last_credit_date,omitempty"`
	Status         string `json:"status"`
}

func toInvestmentDTO(inv *domain.Investment) InvestmentDTO {
	dto := InvestmentDTO{
		InvestmentID:  inv.InvestmentID,
		PlanCode:      inv.PlanCode,
		Amount:        inv.Amount.String(),
		DailyEarnings: inv.DailyEarnings.String(),
		DurationDays:  inv.DurationDays,
		StartDate:     inv.StartDate.Unix(),
		EndDate:       inv.EndDate.Unix(),
		Status:        string(inv.Status),
	}
	if inv.LastCreditDate != nil {
		dto.LastCreditDate = inv.LastCreditDate.Unix()
	}
	return dto
}

func toInvestmentDTOs(invs []*domain.Investment) []InvestmentDTO {
	out := make([]InvestmentDTO, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvestmentDTO(inv))
	}
	return out
}

// Service 投资应用服务：购买与惰性结算
type Service struct {
	investments domain.InvestmentRepository
	ledger      domain.LedgerService
	catalog     domain.PlanCatalog
	profiles    domain.ProfileDirectory
	txm         db.TxManager
	events      domain.EventPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewService 创建投资应用服务
func NewService(
	investments domain.InvestmentRepository,
	ledger domain.LedgerService,
	catalog domain.PlanCatalog,
	profiles domain.ProfileDirectory,
	txm db.TxManager,
	events domain.EventPublisher,
	m *metrics.Metrics,
) *Service {
	return &Service{
		investments: investments,
		ledger:      ledger,
		catalog:     catalog,
		profiles:    profiles,
		txm:         txm,
		events:      events,
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock 注入时钟，测试用
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Purchase 购买套餐：校验上架与 VIP 门槛，锁定本金并创建投资单
// 扣款前先补记存量投资的收益，未入账的收益也可用于本次购买
func (s *Service) Purchase(ctx context.Context, cmd PurchaseCommand) (*InvestmentDTO, error) {
	if err := s.SettleEarnings(ctx, cmd.UserID); err != nil {
		logger.Error(ctx, "settle earnings on purchase failed", "user_id", cmd.UserID, "error", err)
	}

	terms, err := s.catalog.PlanTerms(ctx, cmd.PlanCode)
	if err != nil {
		return nil, err
	}
	if !terms.IsActive {
		return nil, domain.ErrPlanNotPurchasable
	}

	vipLevel, err := s.profiles.VipLevel(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if vipLevel < terms.RequiredVipLevel {
		return nil, fmt.Errorf("plan %s requires VIP level %d, current level is %d: %w",
			terms.Code, terms.RequiredVipLevel, vipLevel, domain.ErrVipLevelTooLow)
	}

	investment := domain.NewInvestment(
		fmt.Sprintf("INV-%d", utils.GenID()),
		cmd.UserID,
		terms.Code,
		terms.UnitPrice,
		terms.DailyEarnings,
		terms.DurationDays,
		s.now(),
	)

	err = s.txm.InTx(ctx, func(txCtx context.Context) error {
		if err := s.investments.Create(txCtx, investment); err != nil {
			return err
		}
		return s.ledger.DebitForInvestment(txCtx, cmd.UserID, investment.Amount, investment.PlanCode, investment.InvestmentID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "investment.purchased", cmd.UserID, map[string]any{
		"user_id": cmd.UserID, "investment_id": investment.InvestmentID,
		"plan_code": investment.PlanCode, "amount": investment.Amount.String(),
	})

	dto := toInvestmentDTO(investment)
	return &dto, nil
}

// List 用户投资单列表
func (s *Service) List(ctx context.Context, userID string) ([]InvestmentDTO, error) {
	invs, err := s.investments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toInvestmentDTOs(invs), nil
}

// settledEvent 结算成功后待发布的事件
type settledEvent struct {
	topic   string
	payload map[string]any
}

// SettleEarnings 惰性结算：补记用户每个 ACTIVE 投资单截至当前的整天收益
// 幂等且可任意频率调用；单个投资单的失败不影响其余投资单
func (s *Service) SettleEarnings(ctx context.Context, userID string) error {
	invs, err := s.investments.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(invs) == 0 {
		return nil
	}

	if s.metrics != nil {
		s.metrics.SettleRunsTotal.Inc()
	}

	now := s.now()
	var (
		firstErr error
		pending  []settledEvent
	)
	for _, inv := range invs {
		events, err := s.settleOne(ctx, inv, now)
		if err != nil {
			logger.Error(ctx, "failed to settle investment",
				"user_id", userID, "investment_id", inv.InvestmentID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("settle investment %s: %w", inv.InvestmentID, err)
			}
			continue
		}
		pending = append(pending, events...)
	}

	for _, ev := range pending {
		s.publish(ctx, ev.topic, userID, ev.payload)
	}
	return firstErr
}

// settleOne 结算单个投资单：CAS 推进水位 + 入账 + 本金回归，整体一个事务
func (s *Service) settleOne(ctx context.Context, inv *domain.Investment, now time.Time) ([]settledEvent, error) {
	accrual := inv.Accrue(now)
	if !accrual.Applicable() {
		return nil, nil
	}

	var events []settledEvent
	err := s.txm.InTx(ctx, func(txCtx context.Context) error {
		ok, err := s.investments.AdvanceCheckpoint(txCtx, inv.InvestmentID, inv.Checkpoint(), accrual.NextCheckpoint, accrual.Completed)
		if err != nil {
			return err
		}
		if !ok {
			// 另一个并发结算者已经推进过水位，本单整体放弃
			if s.metrics != nil {
				s.metrics.SettleConflictsTotal.Inc()
			}
			logger.Info(txCtx, "settle checkpoint lost to concurrent settler", "investment_id", inv.InvestmentID)
			return nil
		}

		if accrual.Days > 0 {
			if err := s.ledger.CreditEarnings(txCtx, inv.UserID, accrual.Amount, inv.InvestmentID, accrual.Days); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.DaysCreditedTotal.Add(float64(accrual.Days))
			}
			events = append(events, settledEvent{
				topic: "investment.settled",
				payload: map[string]any{
					"user_id": inv.UserID, "investment_id": inv.InvestmentID,
					"days": accrual.Days, "amount": accrual.Amount.String(),
				},
			})
		}

		if accrual.Completed {
			if err := s.ledger.ReleasePrincipal(txCtx, inv.UserID, inv.Amount, inv.InvestmentID); err != nil {
				return err
			}
			events = append(events, settledEvent{
				topic: "investment.completed",
				payload: map[string]any{
					"user_id": inv.UserID, "investment_id": inv.InvestmentID,
					"principal": inv.Amount.String(),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Get 投资单详情
func (s *Service) Get(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	inv, err := s.investments.GetByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	dto := toInvestmentDTO(inv)
	return &dto, nil
}

func (s *Service) publish(ctx context.Context, topic, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.SendMessage(ctx, topic, key, payload); err != nil {
		logger.Error(ctx, "failed to publish investment event", "topic", topic, "error", err)
	}
}
