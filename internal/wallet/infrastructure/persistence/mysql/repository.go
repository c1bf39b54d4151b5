package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/investplan/internal/wallet/domain"
	"github.com/wyfcoding/investplan/pkg/db"
)

// WalletRepository 钱包仓储的 MySQL 实现
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(database *gorm.DB) *WalletRepository {
	return &WalletRepository{db: database}
}

func (r *WalletRepository) getDB(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	if err := r.getDB(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := r.getDB(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// Save 保存钱包（带乐观锁）
// 版本不匹配说明另一个事务已改过余额，返回 ErrWalletConflict 让调用方整体回滚
func (r *WalletRepository) Save(ctx context.Context, wallet *domain.Wallet) error {
	if wallet.ID == 0 {
		return r.Create(ctx, wallet)
	}

	currentVersion := wallet.Version
	result := r.getDB(ctx).Model(&domain.Wallet{}).
		Where("user_id = ? AND version = ?", wallet.UserID, currentVersion).
		Updates(map[string]any{
			"available_balance": wallet.AvailableBalance,
			"locked_balance":    wallet.LockedBalance,
			"total_recharge":    wallet.TotalRecharge,
			"total_withdraw":    wallet.TotalWithdraw,
			"version":           currentVersion + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrWalletConflict
	}

	wallet.Version = currentVersion + 1
	return nil
}

// TransactionRepository 资金流水仓储的 MySQL 实现
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建流水仓储
func NewTransactionRepository(database *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: database}
}

func (r *TransactionRepository) getDB(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *TransactionRepository) Save(ctx context.Context, txn *domain.Transaction) error {
	if err := r.getDB(ctx).Save(txn).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := r.getDB(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	q := r.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func (r *TransactionRepository) ListWithdrawRequests(ctx context.Context, status domain.TransactionStatus, limit int) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	q := r.getDB(ctx).
		Where("type = ?", domain.TransactionTypeWithdrawRequest).
		Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdraw requests: %w", err)
	}
	return txns, nil
}

// UpdateStatusIfPending 条件更新作为幂等栅栏：只有 PENDING 流水才允许翻转状态
func (r *TransactionRepository) UpdateStatusIfPending(ctx context.Context, transactionID string, to domain.TransactionStatus) (bool, error) {
	result := r.getDB(ctx).Model(&domain.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, domain.TransactionStatusPending).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *TransactionRepository) SaveMeta(ctx context.Context, transactionID string, meta domain.MetaPayload) error {
	err := r.getDB(ctx).Model(&domain.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Update("meta", meta).Error
	if err != nil {
		return fmt.Errorf("failed to save transaction meta: %w", err)
	}
	return nil
}
