package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/investplan/internal/investment/domain"
	"github.com/wyfcoding/investplan/pkg/db"
)

// InvestmentRepository 投资单仓储的 MySQL 实现
type InvestmentRepository struct {
	db *gorm.DB
}

// NewInvestmentRepository 创建投资单仓储
func NewInvestmentRepository(database *gorm.DB) *InvestmentRepository {
	return &InvestmentRepository{db: database}
}

func (r *InvestmentRepository) getDB(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *InvestmentRepository) Create(ctx context.Context, investment *domain.Investment) error {
	if err := r.getDB(ctx).Create(investment).Error; err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (r *InvestmentRepository) GetByID(ctx context.Context, investmentID string) (*domain.Investment, error) {
	var inv domain.Investment
	err := r.getDB(ctx).Where("investment_id = ?", investmentID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return &inv, nil
}

func (r *InvestmentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Investment, error) {
	var invs []*domain.Investment
	err := r.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return invs, nil
}

func (r *InvestmentRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Investment, error) {
	var invs []*domain.Investment
	err := r.getDB(ctx).
		Where("user_id = ? AND status = ?", userID, domain.InvestmentStatusActive).
		Order("created_at ASC, id ASC").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active investments: %w", err)
	}
	return invs, nil
}

// AdvanceCheckpoint 条件更新结算水位；旧水位不匹配说明并发结算者已经提交
// MySQL 的 <=> 对 NULL 水位（从未结算）同样成立
func (r *InvestmentRepository) AdvanceCheckpoint(ctx context.Context, investmentID string, prev *time.Time, next time.Time, completed bool) (bool, error) {
	updates := map[string]any{"last_credit_date": next}
	if completed {
		updates["status"] = domain.InvestmentStatusCompleted
	}

	result := r.getDB(ctx).Model(&domain.Investment{}).
		Where("investment_id = ? AND status = ? AND last_credit_date <=> ?",
			investmentID, domain.InvestmentStatusActive, prev).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to advance checkpoint: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
