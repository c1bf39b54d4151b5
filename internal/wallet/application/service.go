package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/wallet/domain"
	"github.com/wyfcoding/investplan/pkg/db"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/metrics"
	"github.com/wyfcoding/investplan/pkg/utils"
)

// Config 钱包业务参数，显式注入而非全局变量
type Config struct {
	Currency       string
	MinWithdraw    decimal.Decimal
	SummaryTxLimit int
}

// Settler 收益结算接口（由投资上下文实现）
// 每次读取钱包前先行补记收益
type Settler interface {
	SettleEarnings(ctx context.Context, userID string) error
}

// PayoutDirectory 提现收款账户查询接口（由用户上下文实现）
type PayoutDirectory interface {
	PayoutAccount(ctx context.Context, userID string) (method, account string, err error)
}

// Service 钱包操作服务
// 每个操作都是「校验前置条件 → 余额变更 + 配对流水」的单事务单元
type Service struct {
	wallets domain.WalletRepository
	txns    domain.TransactionRepository
	txm     db.TxManager
	settler Settler
	payouts PayoutDirectory
	events  domain.EventPublisher
	metrics *metrics.Metrics
	cfg     Config
}

// NewService 创建钱包操作服务
func NewService(
	wallets domain.WalletRepository,
	txns domain.TransactionRepository,
	txm db.TxManager,
	settler Settler,
	payouts PayoutDirectory,
	events domain.EventPublisher,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.SummaryTxLimit <= 0 {
		cfg.SummaryTxLimit = 50
	}
	return &Service{
		wallets: wallets,
		txns:    txns,
		txm:     txm,
		settler: settler,
		payouts: payouts,
		events:  events,
		metrics: m,
		cfg:     cfg,
	}
}

// SetSettler 回填结算器；结算依赖钱包入账，双向依赖在装配时打断
func (s *Service) SetSettler(settler Settler) {
	s.settler = settler
}

// CreateWallet 注册钩子：为用户创建零余额钱包，已存在则幂等返回
func (s *Service) CreateWallet(ctx context.Context, userID string) (*WalletDTO, error) {
	existing, err := s.wallets.GetByUser(ctx, userID)
	if err == nil {
		dto := toWalletDTO(existing)
		return &dto, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	wallet := domain.NewWallet(userID, s.cfg.Currency)
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	dto := toWalletDTO(wallet)
	return &dto, nil
}

// Summary 钱包摘要：先补记收益，再返回余额与最近流水
func (s *Service) Summary(ctx context.Context, userID string) (*SummaryDTO, error) {
	if s.settler != nil {
		if err := s.settler.SettleEarnings(ctx, userID); err != nil {
			// 结算失败不阻塞余额读取，单笔投资的失败已在引擎内隔离
			logger.Error(ctx, "settle earnings on summary failed", "user_id", userID, "error", err)
		}
	}

	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	txns, err := s.txns.ListByUser(ctx, userID, s.cfg.SummaryTxLimit)
	if err != nil {
		return nil, err
	}

	return &SummaryDTO{
		Wallet:       toWalletDTO(wallet),
		Transactions: toTransactionDTOs(txns),
	}, nil
}

// RequestWithdraw 提现申请：扣减可用余额并创建 PENDING 流水
func (s *Service) RequestWithdraw(ctx context.Context, cmd RequestWithdrawCommand) (*TransactionDTO, *WalletDTO, error) {
	if !cmd.Amount.IsPositive() {
		return nil, nil, domain.ErrInvalidAmount
	}
	if cmd.Amount.LessThan(s.cfg.MinWithdraw) {
		return nil, nil, fmt.Errorf("minimum withdrawal amount is %s: %w", s.cfg.MinWithdraw, domain.ErrBelowMinWithdraw)
	}

	method, account := cmd.Method, cmd.Account
	if account == "" && s.payouts != nil {
		m, a, err := s.payouts.PayoutAccount(ctx, cmd.UserID)
		if err != nil {
			return nil, nil, err
		}
		if method == "" {
			method = m
		}
		account = a
	}
	if account == "" {
		return nil, nil, domain.ErrPayoutAccountMissing
	}
	if method == "" {
		method = "UPI"
	}

	// 扣款前先补记收益，未入账的收益也计入可提现余额
	if s.settler != nil {
		if err := s.settler.SettleEarnings(ctx, cmd.UserID); err != nil {
			logger.Error(ctx, "settle earnings on withdraw failed", "user_id", cmd.UserID, "error", err)
		}
	}

	var (
		walletDTO WalletDTO
		txnDTO    TransactionDTO
	)
	err := s.txm.InTx(ctx, func(txCtx context.Context) error {
		wallet, err := s.wallets.GetByUser(txCtx, cmd.UserID)
		if err != nil {
			return err
		}
		if err := wallet.DebitForWithdraw(cmd.Amount); err != nil {
			return err
		}
		if err := s.wallets.Save(txCtx, wallet); err != nil {
			return err
		}

		txn := domain.NewTransaction(
			fmt.Sprintf("TXN-%d", utils.GenID()),
			cmd.UserID,
			domain.TransactionTypeWithdrawRequest,
			cmd.Amount,
			s.cfg.Currency,
			domain.TransactionStatusPending,
			domain.WithdrawMeta{Method: method, Account: account},
		)
		if err := s.txns.Save(txCtx, txn); err != nil {
			return err
		}

		walletDTO = toWalletDTO(wallet)
		txnDTO = toTransactionDTO(txn)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.countOp("request_withdraw")
	s.publish(ctx, "wallet.debited", cmd.UserID, map[string]any{
		"user_id": cmd.UserID, "amount": cmd.Amount.String(), "reason": "withdraw_request", "transaction_id": txnDTO.TransactionID,
	})
	return &txnDTO, &walletDTO, nil
}

// ApproveWithdraw 提现审核通过：仅翻转状态，扣款在申请时已完成
func (s *Service) ApproveWithdraw(ctx context.Context, cmd WithdrawDecisionCommand) (*TransactionDTO, error) {
	var txnDTO TransactionDTO
	err := s.txm.InTx(ctx, func(txCtx context.Context) error {
		txn, err := s.getWithdrawRequest(txCtx, cmd.TransactionID)
		if err != nil {
			return err
		}

		ok, err := s.txns.UpdateStatusIfPending(txCtx, txn.TransactionID, domain.TransactionStatusSuccess)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyProcessed
		}

		if err := s.stampDecision(txCtx, txn, cmd, "withdraw_approved"); err != nil {
			return err
		}
		txn.Status = domain.TransactionStatusSuccess
		txnDTO = toTransactionDTO(txn)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.countOp("approve_withdraw")
	s.publish(ctx, "withdraw.approved", txnDTO.UserID, map[string]any{
		"user_id": txnDTO.UserID, "transaction_id": txnDTO.TransactionID, "amount": txnDTO.Amount, "admin_id": cmd.AdminID,
	})
	return &txnDTO, nil
}

// RejectWithdraw 提现驳回：恢复申请时的扣款并翻转状态为 FAILED
func (s *Service) RejectWithdraw(ctx context.Context, cmd WithdrawDecisionCommand) (*TransactionDTO, *WalletDTO, error) {
	var (
		txnDTO    TransactionDTO
		walletDTO WalletDTO
	)
	err := s.txm.InTx(ctx, func(txCtx context.Context) error {
		txn, err := s.getWithdrawRequest(txCtx, cmd.TransactionID)
		if err != nil {
			return err
		}

		ok, err := s.txns.UpdateStatusIfPending(txCtx, txn.TransactionID, domain.TransactionStatusFailed)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyProcessed
		}

		wallet, err := s.wallets.GetByUser(txCtx, txn.UserID)
		if err != nil {
			return err
		}
		wallet.RevertWithdraw(txn.Amount)
		if err := s.wallets.Save(txCtx, wallet); err != nil {
			return err
		}

		if err := s.stampDecision(txCtx, txn, cmd, "withdraw_rejected"); err != nil {
			return err
		}
		txn.Status = domain.TransactionStatusFailed
		txnDTO = toTransactionDTO(txn)
		walletDTO = toWalletDTO(wallet)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.countOp("reject_withdraw")
	s.publish(ctx, "wallet.credited", txnDTO.UserID, map[string]any{
		"user_id": txnDTO.UserID, "amount": txnDTO.Amount, "reason": "withdraw_rejected", "transaction_id": txnDTO.TransactionID,
	})
	return &txnDTO, &walletDTO, nil
}

// ManualRecharge 管理员手工充值
func (s *Service) ManualRecharge(ctx context.Context, cmd ManualRechargeCommand) (*TransactionDTO, *WalletDTO, error) {
	if !cmd.Amount.IsPositive() {
		return nil, nil, domain.ErrInvalidAmount
	}

	note := cmd.Note
	if note == "" {
		note = "manual_recharge"
	}

	var (
		txnDTO    TransactionDTO
		walletDTO WalletDTO
	)
	err := s.txm.InTx(ctx, func(txCtx context.Context) error {
		wallet, err := s.wallets.GetByUser(txCtx, cmd.UserID)
		if err != nil {
			return err
		}
		wallet.Credit(cmd.Amount)
		if err := s.wallets.Save(txCtx, wallet); err != nil {
			return err
		}

		txn := domain.NewTransaction(
			fmt.Sprintf("TXN-%d", utils.GenID()),
			cmd.UserID,
			domain.TransactionTypeRecharge,
			cmd.Amount,
			s.cfg.Currency,
			domain.TransactionStatusSuccess,
			domain.RechargeMeta{AdminID: cmd.AdminID, Note: note},
		)
		if err := s.txns.Save(txCtx, txn); err != nil {
			return err
		}

		txnDTO = toTransactionDTO(txn)
		walletDTO = toWalletDTO(wallet)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.countOp("manual_recharge")
	s.publish(ctx, "wallet.credited", cmd.UserID, map[string]any{
		"user_id": cmd.UserID, "amount": cmd.Amount.String(), "reason": "manual_recharge", "admin_id": cmd.AdminID,
	})
	return &txnDTO, &walletDTO, nil
}

// ListWithdrawRequests 管理端提现申请列表
func (s *Service) ListWithdrawRequests(ctx context.Context, status string, limit int) ([]TransactionDTO, error) {
	txns, err := s.txns.ListWithdrawRequests(ctx, domain.TransactionStatus(status), limit)
	if err != nil {
		return nil, err
	}
	return toTransactionDTOs(txns), nil
}

// --- 账本服务契约：以下操作运行在调用方的事务 context 内，本身不开事务 ---

// CreditDeposit 充值入账；钱包缺失时补建（老用户数据兼容）
func (s *Service) CreditDeposit(ctx context.Context, cmd CreditDepositCommand) error {
	wallet, err := s.wallets.GetByUser(ctx, cmd.UserID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		wallet = domain.NewWallet(cmd.UserID, s.cfg.Currency)
		if err := s.wallets.Create(ctx, wallet); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	wallet.Credit(cmd.Amount)
	if err := s.wallets.Save(ctx, wallet); err != nil {
		return err
	}

	currency := cmd.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	txn := domain.NewTransaction(
		fmt.Sprintf("TXN-%d", utils.GenID()),
		cmd.UserID,
		domain.TransactionTypeRecharge,
		cmd.Amount,
		currency,
		domain.TransactionStatusSuccess,
		domain.DepositMeta{
			DepositID: cmd.DepositID,
			UpiID:     cmd.UpiID,
			TxnRef:    cmd.TxnRef,
			AdminID:   cmd.AdminID,
			Note:      cmd.Note,
		},
	)
	if err := s.txns.Save(ctx, txn); err != nil {
		return err
	}

	s.countOp("credit_deposit")
	return nil
}

// DebitForInvestment 购买投资：锁定本金并记 INVEST 流水
func (s *Service) DebitForInvestment(ctx context.Context, userID string, amount decimal.Decimal, planCode, investmentID string) error {
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := wallet.LockForInvest(amount); err != nil {
		return err
	}
	if err := s.wallets.Save(ctx, wallet); err != nil {
		return err
	}

	txn := domain.NewTransaction(
		fmt.Sprintf("TXN-%d", utils.GenID()),
		userID,
		domain.TransactionTypeInvest,
		amount,
		s.cfg.Currency,
		domain.TransactionStatusSuccess,
		domain.InvestMeta{InvestmentID: investmentID, PlanCode: planCode},
	)
	if err := s.txns.Save(ctx, txn); err != nil {
		return err
	}

	s.countOp("invest")
	return nil
}

// CreditEarnings 收益入账并记 DAILY_EARNING 流水
func (s *Service) CreditEarnings(ctx context.Context, userID string, amount decimal.Decimal, investmentID string, days int) error {
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	wallet.CreditEarnings(amount)
	if err := s.wallets.Save(ctx, wallet); err != nil {
		return err
	}

	txn := domain.NewTransaction(
		fmt.Sprintf("TXN-%d", utils.GenID()),
		userID,
		domain.TransactionTypeDailyEarning,
		amount,
		s.cfg.Currency,
		domain.TransactionStatusSuccess,
		domain.EarningMeta{InvestmentID: investmentID, DaysCredited: days},
	)
	if err := s.txns.Save(ctx, txn); err != nil {
		return err
	}

	s.countOp("daily_earning")
	return nil
}

// ReleasePrincipal 投资到期本金回归并记 PRINCIPAL_RETURN 流水
func (s *Service) ReleasePrincipal(ctx context.Context, userID string, amount decimal.Decimal, investmentID string) error {
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := wallet.ReleasePrincipal(amount); err != nil {
		return err
	}
	if err := s.wallets.Save(ctx, wallet); err != nil {
		return err
	}

	txn := domain.NewTransaction(
		fmt.Sprintf("TXN-%d", utils.GenID()),
		userID,
		domain.TransactionTypePrincipalReturn,
		amount,
		s.cfg.Currency,
		domain.TransactionStatusSuccess,
		domain.InvestMeta{InvestmentID: investmentID},
	)
	if err := s.txns.Save(ctx, txn); err != nil {
		return err
	}

	s.countOp("principal_return")
	return nil
}

func (s *Service) getWithdrawRequest(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txns.Get(ctx, transactionID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, domain.ErrWithdrawRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if txn.Type != domain.TransactionTypeWithdrawRequest {
		return nil, domain.ErrWithdrawRequestNotFound
	}
	return txn, nil
}

// stampDecision 把审核人信息并入提现流水的元数据
func (s *Service) stampDecision(ctx context.Context, txn *domain.Transaction, cmd WithdrawDecisionCommand, defaultNote string) error {
	var meta domain.WithdrawMeta
	if err := txn.Meta.Decode(&meta); err != nil {
		logger.Warn(ctx, "failed to decode withdraw meta", "transaction_id", txn.TransactionID, "error", err)
	}
	meta.AdminID = cmd.AdminID
	meta.Note = cmd.Note
	if meta.Note == "" {
		meta.Note = defaultNote
	}
	txn.Meta = domain.MetaOf(meta)
	return s.txns.SaveMeta(ctx, txn.TransactionID, txn.Meta)
}

func (s *Service) countOp(op string) {
	if s.metrics != nil {
		s.metrics.WalletOpsTotal.WithLabelValues(op).Inc()
	}
}

func (s *Service) publish(ctx context.Context, topic, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.SendMessage(ctx, topic, key, payload); err != nil {
		logger.Error(ctx, "failed to publish ledger event", "topic", topic, "error", err)
	}
}
