package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/investplan/internal/deposit/domain"
	"github.com/wyfcoding/investplan/pkg/db"
)

// DepositRepository 充值申请仓储的 MySQL 实现
type DepositRepository struct {
	db *gorm.DB
}

// NewDepositRepository 创建充值申请仓储
func NewDepositRepository(database *gorm.DB) *DepositRepository {
	return &DepositRepository{db: database}
}

func (r *DepositRepository) getDB(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *DepositRepository) Create(ctx context.Context, deposit *domain.DepositRequest) error {
	if err := r.getDB(ctx).Create(deposit).Error; err != nil {
		return fmt.Errorf("failed to create deposit request: %w", err)
	}
	return nil
}

func (r *DepositRepository) GetByID(ctx context.Context, depositID string) (*domain.DepositRequest, error) {
	var deposit domain.DepositRequest
	err := r.getDB(ctx).Where("deposit_id = ?", depositID).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDepositNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit request: %w", err)
	}
	return &deposit, nil
}

func (r *DepositRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.DepositRequest, error) {
	var deposits []*domain.DepositRequest
	q := r.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&deposits).Error; err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	return deposits, nil
}

func (r *DepositRepository) List(ctx context.Context, status domain.DepositStatus, limit int) ([]*domain.DepositRequest, error) {
	var deposits []*domain.DepositRequest
	q := r.getDB(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&deposits).Error; err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	return deposits, nil
}

// MarkHandledIfPending 条件更新作为审核幂等栅栏
func (r *DepositRepository) MarkHandledIfPending(ctx context.Context, depositID string, to domain.DepositStatus, handledBy, note string, handledAt time.Time) (bool, error) {
	result := r.getDB(ctx).Model(&domain.DepositRequest{}).
		Where("deposit_id = ? AND status = ?", depositID, domain.DepositStatusPending).
		Updates(map[string]any{
			"status":     to,
			"handled_by": handledBy,
			"handled_at": handledAt,
			"note":       note,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark deposit handled: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
