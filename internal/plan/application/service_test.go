package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/plan/domain"
)

type fakePlanRepo struct {
	plans map[string]*domain.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[string]*domain.Plan)}
}

func (r *fakePlanRepo) Create(_ context.Context, p *domain.Plan) error {
	if _, ok := r.plans[p.Code]; ok {
		return domain.ErrPlanCodeExists
	}
	cp := *p
	r.plans[p.Code] = &cp
	return nil
}

func (r *fakePlanRepo) Save(_ context.Context, p *domain.Plan) error {
	cp := *p
	r.plans[p.Code] = &cp
	return nil
}

func (r *fakePlanRepo) GetByCode(_ context.Context, code string) (*domain.Plan, error) {
	p, ok := r.plans[code]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlanRepo) ListActive(_ context.Context) ([]*domain.Plan, error) {
	var out []*domain.Plan
	for _, p := range r.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) ListAll(_ context.Context) ([]*domain.Plan, error) {
	var out []*domain.Plan
	for _, p := range r.plans {
		out = append(out, p)
	}
	return out, nil
}

func validCommand(code string) UpsertPlanCommand {
	return UpsertPlanCommand{
		Name:          "测试套餐",
		Code:          code,
		UnitPrice:     decimal.NewFromInt(290),
		DailyEarnings: decimal.NewFromFloat(234.9),
		DurationDays:  46,
		IsActive:      true,
	}
}

func TestCreateDerivesTotalRevenueWhenAbsent(t *testing.T) {
	svc := NewService(newFakePlanRepo())

	// 缺省口径：本金 290 + 日收益 234.9 × 46 天
	plan, err := svc.Create(context.Background(), validCommand("VIP1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if plan.TotalRevenue != "11095.4" {
		t.Fatalf("expected derived total revenue 11095.4, got %s", plan.TotalRevenue)
	}
}

func TestCreateKeepsExplicitTotalRevenue(t *testing.T) {
	svc := NewService(newFakePlanRepo())

	cmd := validCommand("VIP1")
	cmd.TotalRevenue = decimal.NewFromFloat(10805.4)
	plan, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if plan.TotalRevenue != "10805.4" {
		t.Fatalf("expected explicit total revenue kept, got %s", plan.TotalRevenue)
	}
}

func TestUpdateKeepsExplicitTotalRevenue(t *testing.T) {
	svc := NewService(newFakePlanRepo())

	if _, err := svc.Create(context.Background(), validCommand("VIP1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	cmd := validCommand("VIP1")
	cmd.TotalRevenue = decimal.NewFromInt(9999)
	plan, err := svc.Update(context.Background(), cmd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if plan.TotalRevenue != "9999" {
		t.Fatalf("expected explicit total revenue kept on update, got %s", plan.TotalRevenue)
	}

	// 不带总回报的更新回落到缺省口径
	plan, err = svc.Update(context.Background(), validCommand("VIP1"))
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if plan.TotalRevenue != "11095.4" {
		t.Fatalf("expected derived total revenue on update, got %s", plan.TotalRevenue)
	}
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newFakePlanRepo())

	if _, err := svc.Create(context.Background(), validCommand("VIP1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(context.Background(), validCommand("VIP1"))
	if !errors.Is(err, domain.ErrPlanCodeExists) {
		t.Fatalf("expected ErrPlanCodeExists, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakePlanRepo())

	cmd := validCommand("VIP1")
	cmd.UnitPrice = decimal.Zero
	if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan for zero price, got %v", err)
	}

	cmd = validCommand("VIP1")
	cmd.DurationDays = 0
	if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan for zero duration, got %v", err)
	}
}

func TestUpdateDoesNotTouchMissingPlan(t *testing.T) {
	svc := NewService(newFakePlanRepo())

	_, err := svc.Update(context.Background(), validCommand("GHOST"))
	if !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestRequiredVipLevelOverrides(t *testing.T) {
	cases := []struct {
		code     string
		minVip   int
		expected int
	}{
		{"VIP0", 0, 0},
		{"VIP1", 0, 0},
		{"VIP2", 1, 2},
		{"VIP2", 3, 3},
		{"VIP3", 2, 3},
		{"CUSTOM", 5, 5},
	}
	for _, tc := range cases {
		p := &domain.Plan{Code: tc.code, MinVipLevel: tc.minVip}
		if got := p.RequiredVipLevel(); got != tc.expected {
			t.Errorf("code=%s minVip=%d: expected %d, got %d", tc.code, tc.minVip, tc.expected, got)
		}
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	repo := newFakePlanRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(repo.plans) != 4 {
		t.Fatalf("expected 4 seeded plans, got %d", len(repo.plans))
	}

	vip2, err := repo.GetByCode(ctx, "VIP2")
	if err != nil {
		t.Fatalf("get VIP2: %v", err)
	}
	if got := vip2.RequiredVipLevel(); got != 2 {
		t.Fatalf("expected VIP2 required level 2, got %d", got)
	}
	if !vip2.TotalRevenue.Equal(decimal.NewFromFloat(75062.8)) {
		t.Fatalf("expected seeded total revenue 75062.8, got %s", vip2.TotalRevenue)
	}

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if len(repo.plans) != 4 {
		t.Fatalf("expected seeding to be skipped, got %d plans", len(repo.plans))
	}
}
