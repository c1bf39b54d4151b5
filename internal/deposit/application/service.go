package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/deposit/domain"
	"github.com/wyfcoding/investplan/pkg/db"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/utils"
)

// Config 充值业务参数
type Config struct {
	Currency        string
	MinDeposit      decimal.Decimal
	CollectionUpiID string
}

// CreateDepositCommand 提交充值申请命令
type CreateDepositCommand struct {
	UserID string
	Amount decimal.Decimal
	TxnRef string
}

// DecisionCommand 充值审核命令
type DecisionCommand struct {
	DepositID string
	AdminID   string
	Note      string
}

// CreditDepositCommand 审核通过后的入账参数（钱包上下文实现）
type CreditDepositCommand struct {
	UserID    string
	Amount    decimal.Decimal
	Currency  string
	DepositID string
	UpiID     string
	TxnRef    string
	AdminID   string
	Note      string
}

// Ledger 入账依赖，运行在调用方事务 context 内
type Ledger interface {
	CreditDeposit(ctx context.Context, cmd CreditDepositCommand) error
}

// DepositDTO 充值申请视图
type DepositDTO struct {
	DepositID string `json:"deposit_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	UpiID     string `json:"upi_id"`
	TxnRef    string `json:"txn_ref"`
	Status    string `json:"status"`
	HandledBy string `json:"handled_by,omitempty"`
	HandledAt int64  `json:"handled_at,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func toDepositDTO(d *domain.DepositRequest) DepositDTO {
	dto := DepositDTO{
		DepositID: d.DepositID,
		UserID:    d.UserID,
		Amount:    d.Amount.String(),
		Currency:  d.Currency,
		UpiID:     d.UpiID,
		TxnRef:    d.TxnRef,
		Status:    string(d.Status),
		HandledBy: d.HandledBy,
		Note:      d.Note,
		CreatedAt: d.CreatedAt.Unix(),
	}
	if d.HandledAt != nil {
		dto.HandledAt = d.HandledAt.Unix()
	}
	return dto
}

func toDepositDTOs(deposits []*domain.DepositRequest) []DepositDTO {
	out := make([]DepositDTO, 0, len(deposits))
	for _, d := range deposits {
		out = append(out, toDepositDTO(d))
	}
	return out
}

// PublicConfigDTO 前台展示的充值配置
type PublicConfigDTO struct {
	Currency        string `json:"currency"`
	MinDeposit      string `json:"min_deposit"`
	CollectionUpiID string `json:"collection_upi_id"`
}

// Service 充值申请应用服务
type Service struct {
	deposits domain.DepositRepository
	ledger   Ledger
	txm      db.TxManager
	cfg      Config
	now      func() time.Time
}

// NewService 创建充值申请服务
func NewService(deposits domain.DepositRepository, ledger Ledger, txm db.TxManager, cfg Config) *Service {
	return &Service{
		deposits: deposits,
		ledger:   ledger,
		txm:      txm,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock 注入时钟，测试用
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PublicConfig 前台充值配置
func (s *Service) PublicConfig() PublicConfigDTO {
	return PublicConfigDTO{
		Currency:        s.cfg.Currency,
		MinDeposit:      s.cfg.MinDeposit.String(),
		CollectionUpiID: s.cfg.CollectionUpiID,
	}
}

// Create 提交充值申请，金额不得低于最低充值额
func (s *Service) Create(ctx context.Context, cmd CreateDepositCommand) (*DepositDTO, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if cmd.Amount.LessThan(s.cfg.MinDeposit) {
		return nil, fmt.Errorf("minimum deposit amount is %s: %w", s.cfg.MinDeposit, domain.ErrBelowMinDeposit)
	}
	if cmd.TxnRef == "" {
		return nil, domain.ErrTxnRefRequired
	}

	deposit := domain.NewDepositRequest(
		fmt.Sprintf("DEP-%d", utils.GenID()),
		cmd.UserID,
		cmd.Amount,
		s.cfg.Currency,
		s.cfg.CollectionUpiID,
		cmd.TxnRef,
	)
	if err := s.deposits.Create(ctx, deposit); err != nil {
		return nil, err
	}

	logger.Info(ctx, "deposit request submitted",
		"deposit_id", deposit.DepositID, "user_id", cmd.UserID, "amount", cmd.Amount.String())
	dto := toDepositDTO(deposit)
	return &dto, nil
}

// ListByUser 用户充值记录
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]DepositDTO, error) {
	deposits, err := s.deposits.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return toDepositDTOs(deposits), nil
}

// List 管理端充值申请列表
func (s *Service) List(ctx context.Context, status string, limit int) ([]DepositDTO, error) {
	deposits, err := s.deposits.List(ctx, domain.DepositStatus(status), limit)
	if err != nil {
		return nil, err
	}
	return toDepositDTOs(deposits), nil
}

// Approve 审核通过：定案 + 钱包入账在同一个事务内完成
func (s *Service) Approve(ctx context.Context, cmd DecisionCommand) (*DepositDTO, error) {
	note := cmd.Note
	if note == "" {
		note = "deposit_approved"
	}

	var dto DepositDTO
	err := s.txm.InTx(ctx, func(txCtx context.Context) error {
		deposit, err := s.deposits.GetByID(txCtx, cmd.DepositID)
		if err != nil {
			return err
		}

		handledAt := s.now()
		ok, err := s.deposits.MarkHandledIfPending(txCtx, deposit.DepositID, domain.DepositStatusApproved, cmd.AdminID, note, handledAt)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyHandled
		}

		if err := s.ledger.CreditDeposit(txCtx, CreditDepositCommand{
			UserID:    deposit.UserID,
			Amount:    deposit.Amount,
			Currency:  deposit.Currency,
			DepositID: deposit.DepositID,
			UpiID:     deposit.UpiID,
			TxnRef:    deposit.TxnRef,
			AdminID:   cmd.AdminID,
			Note:      note,
		}); err != nil {
			return err
		}

		deposit.Status = domain.DepositStatusApproved
		deposit.HandledBy = cmd.AdminID
		deposit.HandledAt = &handledAt
		deposit.Note = note
		dto = toDepositDTO(deposit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "deposit approved", "deposit_id", cmd.DepositID, "admin_id", cmd.AdminID)
	return &dto, nil
}

// Reject 审核驳回，不动余额
func (s *Service) Reject(ctx context.Context, cmd DecisionCommand) (*DepositDTO, error) {
	note := cmd.Note
	if note == "" {
		note = "deposit_rejected"
	}

	deposit, err := s.deposits.GetByID(ctx, cmd.DepositID)
	if err != nil {
		return nil, err
	}

	handledAt := s.now()
	ok, err := s.deposits.MarkHandledIfPending(ctx, deposit.DepositID, domain.DepositStatusRejected, cmd.AdminID, note, handledAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyHandled
	}

	deposit.Status = domain.DepositStatusRejected
	deposit.HandledBy = cmd.AdminID
	deposit.HandledAt = &handledAt
	deposit.Note = note
	dto := toDepositDTO(deposit)
	return &dto, nil
}
