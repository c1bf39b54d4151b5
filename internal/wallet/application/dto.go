package application

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/wallet/domain"
)

// RequestWithdrawCommand 提现申请命令
type RequestWithdrawCommand struct {
	UserID  string
	Amount  decimal.Decimal
	Method  string
	Account string
}

// WithdrawDecisionCommand 提现审核命令
type WithdrawDecisionCommand struct {
	TransactionID string
	AdminID       string
	Note          string
}

// ManualRechargeCommand 管理员手工充值命令
type ManualRechargeCommand struct {
	UserID  string
	Amount  decimal.Decimal
	AdminID string
	Note    string
}

// CreditDepositCommand 充值审核入账命令（由充值上下文在其事务内调用）
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

// WalletDTO 钱包传输对象
type WalletDTO struct {
	UserID           string `json:"user_id"`
	AvailableBalance string `json:"available_balance"`
	LockedBalance    string `json:"locked_balance"`
	TotalRecharge    string `json:"total_recharge"`
	TotalWithdraw    string `json:"total_withdraw"`
	Currency         string `json:"currency"`
	UpdatedAt        int64  `json:"updated_at"`
}

// TransactionDTO 流水传输对象
type TransactionDTO struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	Amount        string          `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Meta          json.RawMessage `json:"meta,omitempty"`
	CreatedAt     int64           `json:"created_at"`
}

// SummaryDTO 钱包摘要
type SummaryDTO struct {
	Wallet       WalletDTO        `json:"wallet"`
	Transactions []TransactionDTO `json:"transactions"`
}

func toWalletDTO(w *domain.Wallet) WalletDTO {
	return WalletDTO{
		UserID:           w.UserID,
		AvailableBalance: w.AvailableBalance.String(),
		LockedBalance:    w.LockedBalance.String(),
		TotalRecharge:    w.TotalRecharge.String(),
		TotalWithdraw:    w.TotalWithdraw.String(),
		Currency:         w.Currency,
		UpdatedAt:        w.UpdatedAt.Unix(),
	}
}

func toTransactionDTO(t *domain.Transaction) TransactionDTO {
	return TransactionDTO{
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		Currency:      t.Currency,
		Status:        string(t.Status),
		Meta:          t.Meta.Raw,
		CreatedAt:     t.CreatedAt.Unix(),
	}
}

func toTransactionDTOs(txns []*domain.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txns))
	for _, t := range txns {
		dtos = append(dtos, toTransactionDTO(t))
	}
	return dtos
}
