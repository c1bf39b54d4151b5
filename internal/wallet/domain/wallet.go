// 包 domain 钱包与账本的领域模型
package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet 钱包聚合根
// 每个用户一条记录，注册时创建，余额只经由账本服务变更
type Wallet struct {
	gorm.Model
	// 用户 ID，全局唯一
	UserID string `gorm:"column:user_id;type:varchar(64);uniqueIndex;not null" json:"user_id"`
	// 可用余额（可消费、可提现）
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:decimal(32,18);default:0;not null" json:"available_balance"`
	// 锁定余额（在投本金）
	LockedBalance decimal.Decimal `gorm:"column:locked_balance;type:decimal(32,18);default:0;not null" json:"locked_balance"`
	// 累计充值
	TotalRecharge decimal.Decimal `gorm:"column:total_recharge;type:decimal(32,18);default:0;not null" json:"total_recharge"`
	// 累计提现（提现申请时增加，驳回时回退）
	TotalWithdraw decimal.Decimal `gorm:"column:total_withdraw;type:decimal(32,18);default:0;not null" json:"total_withdraw"`
	// 货币
	Currency string `gorm:"column:currency;type:varchar(10);not null" json:"currency"`
	// 乐观锁版本号，随每次余额写入递增
	Version int64 `gorm:"column:version;not null;default:0" json:"version"`
}

// TableName 表名
func (Wallet) TableName() string {
	return "wallets"
}

// NewWallet 创建零余额钱包
func NewWallet(userID, currency string) *Wallet {
	return &Wallet{
		UserID:           userID,
		AvailableBalance: decimal.Zero,
		LockedBalance:    decimal.Zero,
		TotalRecharge:    decimal.Zero,
		TotalWithdraw:    decimal.Zero,
		Currency:         currency,
	}
}

// Credit 入账充值：可用余额与累计充值同步增加
func (w *Wallet) Credit(amount decimal.Decimal) {
	w.AvailableBalance = w.AvailableBalance.Add(amount)
	w.TotalRecharge = w.TotalRecharge.Add(amount)
}

// CreditEarnings 入账收益：只增加可用余额
func (w *Wallet) CreditEarnings(amount decimal.Decimal) {
	w.AvailableBalance = w.AvailableBalance.Add(amount)
}

// DebitForWithdraw 提现申请扣款
func (w *Wallet) DebitForWithdraw(amount decimal.Decimal) error {
	if w.AvailableBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	w.AvailableBalance = w.AvailableBalance.Sub(amount)
	w.TotalWithdraw = w.TotalWithdraw.Add(amount)
	return nil
}

// RevertWithdraw 提现被驳回，恢复申请时的扣款
func (w *Wallet) RevertWithdraw(amount decimal.Decimal) {
	w.AvailableBalance = w.AvailableBalance.Add(amount)
	w.TotalWithdraw = w.TotalWithdraw.Sub(amount)
}

// LockForInvest 购买时锁定本金
func (w *Wallet) LockForInvest(amount decimal.Decimal) error {
	if w.AvailableBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	w.AvailableBalance = w.AvailableBalance.Sub(amount)
	w.LockedBalance = w.LockedBalance.Add(amount)
	return nil
}

// ReleasePrincipal 投资到期，锁定本金回归可用余额
func (w *Wallet) ReleasePrincipal(amount decimal.Decimal) error {
	if w.LockedBalance.LessThan(amount) {
		return ErrInsufficientLocked
	}
	w.LockedBalance = w.LockedBalance.Sub(amount)
	w.AvailableBalance = w.AvailableBalance.Add(amount)
	return nil
}

// WalletRepository 钱包仓储接口
type WalletRepository interface {
	Create(ctx context.Context, wallet *Wallet) error
	// GetByUser 不存在时返回 ErrWalletNotFound
	GetByUser(ctx context.Context, userID string) (*Wallet, error)
	Save(ctx context.Context, wallet *Wallet) error
}

// EventPublisher 账本集成事件发布接口
type EventPublisher interface {
	SendMessage(ctx context.Context, topic string, key string, value any) error
}
