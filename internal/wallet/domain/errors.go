package domain

import "errors"

var (
	// ErrWalletNotFound 钱包不存在
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrTransactionNotFound 流水不存在
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrWithdrawRequestNotFound 提现申请不存在
	ErrWithdrawRequestNotFound = errors.New("withdraw request not found")
	// ErrInsufficientBalance 可用余额不足
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientLocked 锁定余额不足以回归本金，账本已不一致
	ErrInsufficientLocked = errors.New("locked balance less than principal to release")
	// ErrInvalidAmount 金额非法
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrBelowMinWithdraw 低于最低提现金额
	ErrBelowMinWithdraw = errors.New("amount below minimum withdrawal")
	// ErrPayoutAccountMissing 未设置提现收款账户
	ErrPayoutAccountMissing = errors.New("payout account not configured")
	// ErrAlreadyProcessed 申请已被处理
	ErrAlreadyProcessed = errors.New("request already processed")
	// ErrWalletConflict 乐观锁冲突，钱包已被并发事务修改
	ErrWalletConflict = errors.New("wallet modified by concurrent transaction")
)
