package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType 流水类型
type TransactionType string

const (
	TransactionTypeRecharge        TransactionType = "RECHARGE"
	TransactionTypeWithdrawRequest TransactionType = "WITHDRAW_REQUEST"
	TransactionTypeWithdraw        TransactionType = "WITHDRAW"
	TransactionTypeDailyEarning    TransactionType = "DAILY_EARNING"
	TransactionTypeInvest          TransactionType = "INVEST"
	TransactionTypePrincipalReturn TransactionType = "PRINCIPAL_RETURN"
)

// TransactionStatus 流水状态
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// Transaction 账本流水，只追加不修改金额
// 每次余额变更必须恰好配对一条流水，流水重放可以还原余额
type Transaction struct {
	gorm.Model
	// 流水 ID（业务主键）
	TransactionID string `gorm:"column:transaction_id;type:varchar(32);uniqueIndex;not null" json:"transaction_id"`
	// 用户 ID
	UserID string `gorm:"column:user_id;type:varchar(64);index;not null" json:"user_id"`
	// 流水类型
	Type TransactionType `gorm:"column:type;type:varchar(20);index;not null" json:"type"`
	// 金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	// 货币
	Currency string `gorm:"column:currency;type:varchar(10);not null" json:"currency"`
	// 状态
	Status TransactionStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 审计元数据（按类型结构化）
	Meta MetaPayload `gorm:"column:meta;type:json" json:"meta"`
}

// TableName 表名
func (Transaction) TableName() string {
	return "transactions"
}

// TransactionMeta 按流水类型约束的审计元数据变体
type TransactionMeta interface {
	isTransactionMeta()
}

// DepositMeta 充值审核入账的元数据
type DepositMeta struct {
	DepositID string `json:"deposit_id"`
	UpiID     string `json:"upi_id,omitempty"`
	TxnRef    string `json:"txn_ref,omitempty"`
	AdminID   string `json:"admin_id,omitempty"`
	Note      string `json:"note,omitempty"`
}

func (DepositMeta) isTransactionMeta() {}

// RechargeMeta 管理员手工充值的元数据
type RechargeMeta struct {
	AdminID string `json:"admin_id"`
	Note    string `json:"note,omitempty"`
}

func (RechargeMeta) isTransactionMeta() {}

// WithdrawMeta 提现申请与审核的元数据
type WithdrawMeta struct {
	Method  string `json:"method"`
	Account string `json:"account"`
	AdminID string `json:"admin_id,omitempty"`
	Note    string `json:"note,omitempty"`
}

func (WithdrawMeta) isTransactionMeta() {}

// EarningMeta 每日收益入账的元数据
type EarningMeta struct {
	InvestmentID string `json:"investment_id"`
	DaysCredited int    `json:"days_credited"`
}

func (EarningMeta) isTransactionMeta() {}

// InvestMeta 购买投资与本金回归的元数据
type InvestMeta struct {
	InvestmentID string `json:"investment_id"`
	PlanCode     string `json:"plan_code,omitempty"`
}

func (InvestMeta) isTransactionMeta() {}

// MetaPayload 以 JSON 列持久化的元数据载体
type MetaPayload struct {
	Raw json.RawMessage
}

// MetaOf 序列化一个元数据变体
func MetaOf(m TransactionMeta) MetaPayload {
	data, err := json.Marshal(m)
	if err != nil {
		return MetaPayload{}
	}
	return MetaPayload{Raw: data}
}

// Value 实现 driver.Valuer
func (m MetaPayload) Value() (driver.Value, error) {
	if len(m.Raw) == 0 {
		return nil, nil
	}
	return []byte(m.Raw), nil
}

// Scan 实现 sql.Scanner
func (m *MetaPayload) Scan(v any) error {
	switch t := v.(type) {
	case nil:
		m.Raw = nil
	case []byte:
		m.Raw = append(json.RawMessage(nil), t...)
	case string:
		m.Raw = json.RawMessage(t)
	default:
		return fmt.Errorf("unsupported meta column type %T", v)
	}
	return nil
}

// MarshalJSON 直接透出原始 JSON
func (m MetaPayload) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("null"), nil
	}
	return m.Raw, nil
}

// UnmarshalJSON 保留原始 JSON
func (m *MetaPayload) UnmarshalJSON(data []byte) error {
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Decode 反序列化到具体变体
func (m MetaPayload) Decode(dst any) error {
	if len(m.Raw) == 0 {
		return nil
	}
	return json.Unmarshal(m.Raw, dst)
}

// NewTransaction 创建一条流水
func NewTransaction(transactionID, userID string, typ TransactionType, amount decimal.Decimal, currency string, status TransactionStatus, meta TransactionMeta) *Transaction {
	return &Transaction{
		TransactionID: transactionID,
		UserID:        userID,
		Type:          typ,
		Amount:        amount,
		Currency:      currency,
		Status:        status,
		Meta:          MetaOf(meta),
	}
}

// TransactionRepository 流水仓储接口
type TransactionRepository interface {
	Save(ctx context.Context, txn *Transaction) error
	// Get 不存在时返回 ErrTransactionNotFound
	Get(ctx context.Context, transactionID string) (*Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
	// ListWithdrawRequests status 为空串时不过滤状态
	ListWithdrawRequests(ctx context.Context, status TransactionStatus, limit int) ([]*Transaction, error)
	// UpdateStatusIfPending 原子条件更新，已处理过的申请返回 false
	UpdateStatusIfPending(ctx context.Context, transactionID string, to TransactionStatus) (bool, error)
	SaveMeta(ctx context.Context, transactionID string, meta MetaPayload) error
}
