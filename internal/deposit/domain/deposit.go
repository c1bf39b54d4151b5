// 包 domain 充值申请的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrDepositNotFound = errors.New("deposit request not found")
	ErrAlreadyHandled  = errors.New("deposit request already handled")
	ErrBelowMinDeposit = errors.New("amount below minimum deposit")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTxnRefRequired  = errors.New("transaction reference is required")
)

// DepositStatus 充值申请状态
type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "PENDING"
	DepositStatusApproved DepositStatus = "APPROVED"
	DepositStatusRejected DepositStatus = "REJECTED"
)

// DepositRequest 充值申请聚合根
// 用户线下 UPI 转账后提交凭证号，管理员人工核验入账
type DepositRequest struct {
	gorm.Model
	DepositID string          `gorm:"column:deposit_id;type:varchar(32);uniqueIndex;not null" json:"deposit_id"`
	UserID    string          `gorm:"column:user_id;type:varchar(64);index;not null" json:"user_id"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	Currency  string          `gorm:"column:currency;type:varchar(10);not null" json:"currency"`
	UpiID     string          `gorm:"column:upi_id;type:varchar(128)" json:"upi_id"`
	TxnRef    string          `gorm:"column:txn_ref;type:varchar(128);not null" json:"txn_ref"`
	Status    DepositStatus   `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	HandledBy string          `gorm:"column:handled_by;type:varchar(64)" json:"handled_by"`
	HandledAt *time.Time      `gorm:"column:handled_at" json:"handled_at"`
	Note      string          `gorm:"column:note;type:varchar(255)" json:"note"`
}

func (DepositRequest) TableName() string {
	return "deposit_requests"
}

// NewDepositRequest 创建待审核的充值申请
func NewDepositRequest(depositID, userID string, amount decimal.Decimal, currency, upiID, txnRef string) *DepositRequest {
	return &DepositRequest{
		DepositID: depositID,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		UpiID:     upiID,
		TxnRef:    txnRef,
		Status:    DepositStatusPending,
	}
}

// DepositRepository 充值申请仓储接口
type DepositRepository interface {
	Create(ctx context.Context, deposit *DepositRequest) error
	GetByID(ctx context.Context, depositID string) (*DepositRequest, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*DepositRequest, error)
	List(ctx context.Context, status DepositStatus, limit int) ([]*DepositRequest, error)
	// MarkHandledIfPending 条件更新：只有 PENDING 申请允许定案，返回 false 表示已被处理
	MarkHandledIfPending(ctx context.Context, depositID string, to DepositStatus, handledBy, note string, handledAt time.Time) (bool, error)
}
