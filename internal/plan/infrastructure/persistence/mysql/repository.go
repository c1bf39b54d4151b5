package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/investplan/internal/plan/domain"
	"github.com/wyfcoding/investplan/pkg/db"
)

// PlanRepository 套餐仓储的 MySQL 实现
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository 创建套餐仓储
func NewPlanRepository(database *gorm.DB) *PlanRepository {
	return &PlanRepository{db: database}
}

func (r *PlanRepository) getDB(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *PlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	if err := r.getDB(ctx).Create(plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrPlanCodeExists
		}
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) Save(ctx context.Context, plan *domain.Plan) error {
	if err := r.getDB(ctx).Save(plan).Error; err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) GetByCode(ctx context.Context, code string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.getDB(ctx).Where("code = ?", code).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	err := r.getDB(ctx).Where("is_active = ?", true).Order("unit_price ASC").Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active plans: %w", err)
	}
	return plans, nil
}

func (r *PlanRepository) ListAll(ctx context.Context) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	if err := r.getDB(ctx).Order("unit_price ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
