package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/investment/domain"
)

var day0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeInvestmentRepo struct {
	invs map[string]*domain.Investment
}

func newFakeInvestmentRepo() *fakeInvestmentRepo {
	return &fakeInvestmentRepo{invs: make(map[string]*domain.Investment)}
}

func (r *fakeInvestmentRepo) Create(_ context.Context, inv *domain.Investment) error {
	cp := *inv
	r.invs[inv.InvestmentID] = &cp
	return nil
}

func (r *fakeInvestmentRepo) GetByID(_ context.Context, id string) (*domain.Investment, error) {
	inv, ok := r.invs[id]
	if !ok {
		return nil, domain.ErrInvestmentNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvestmentRepo) ListByUser(_ context.Context, userID string) ([]*domain.Investment, error) {
	var out []*domain.Investment
	for _, inv := range r.invs {
		if inv.UserID == userID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeInvestmentRepo) ListActiveByUser(_ context.Context, userID string) ([]*domain.Investment, error) {
	var out []*domain.Investment
	for _, inv := range r.invs {
		if inv.UserID == userID && inv.Status == domain.InvestmentStatusActive {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func sameCheckpoint(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (r *fakeInvestmentRepo) AdvanceCheckpoint(_ context.Context, id string, prev *time.Time, next time.Time, completed bool) (bool, error) {
	inv, ok := r.invs[id]
	if !ok || inv.Status != domain.InvestmentStatusActive {
		return false, nil
	}
	if !sameCheckpoint(inv.LastCreditDate, prev) {
		return false, nil
	}
	cp := next
	inv.LastCreditDate = &cp
	if completed {
		inv.Status = domain.InvestmentStatusCompleted
	}
	return true, nil
}

type ledgerCall struct {
	op     string
	userID string
	amount decimal.Decimal
	invID  string
	days   int
}

type fakeLedger struct {
	calls   []ledgerCall
	failFor map[string]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{failFor: make(map[string]error)}
}

func (l *fakeLedger) DebitForInvestment(_ context.Context, userID string, amount decimal.Decimal, planCode, invID string) error {
	if err := l.failFor[invID]; err != nil {
		return err
	}
	l.calls = append(l.calls, ledgerCall{op: "invest", userID: userID, amount: amount, invID: invID})
	return nil
}

func (l *fakeLedger) CreditEarnings(_ context.Context, userID string, amount decimal.Decimal, invID string, days int) error {
	if err := l.failFor[invID]; err != nil {
		return err
	}
	l.calls = append(l.calls, ledgerCall{op: "earning", userID: userID, amount: amount, invID: invID, days: days})
	return nil
}

func (l *fakeLedger) ReleasePrincipal(_ context.Context, userID string, amount decimal.Decimal, invID string) error {
	if err := l.failFor[invID]; err != nil {
		return err
	}
	l.calls = append(l.calls, ledgerCall{op: "principal", userID: userID, amount: amount, invID: invID})
	return nil
}

func (l *fakeLedger) callsOf(op string) []ledgerCall {
	var out []ledgerCall
	for _, c := range l.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fakeCatalog struct {
	terms map[string]*domain.PlanTerms
}

func (c *fakeCatalog) PlanTerms(_ context.Context, code string) (*domain.PlanTerms, error) {
	t, ok := c.terms[code]
	if !ok {
		return nil, errors.New("plan not found")
	}
	return t, nil
}

type fakeProfiles struct {
	levels map[string]int
}

func (p *fakeProfiles) VipLevel(_ context.Context, userID string) (int, error) {
	return p.levels[userID], nil
}

type fakeTxManager struct{}

func (fakeTxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *fakeInvestmentRepo, ledger *fakeLedger, catalog *fakeCatalog, profiles *fakeProfiles, now time.Time) *Service {
	if catalog == nil {
		catalog = &fakeCatalog{terms: map[string]*domain.PlanTerms{}}
	}
	if profiles == nil {
		profiles = &fakeProfiles{levels: map[string]int{}}
	}
	svc := NewService(repo, ledger, catalog, profiles, fakeTxManager{}, nil, nil)
	return svc.WithClock(func() time.Time { return now })
}

func seedInvestment(repo *fakeInvestmentRepo, id, userID, daily string, durationDays int) *domain.Investment {
	inv := domain.NewInvestment(id, userID, "VIP1",
		mustDec("290"), mustDec(daily), durationDays, day0)
	repo.invs[id] = inv
	return inv
}

func TestSettleCatchUpCreditsOnce(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	seedInvestment(repo, "INV-1", "u1", "5", 46)
	now := day0.Add(10 * 24 * time.Hour)
	svc := newTestService(repo, ledger, nil, nil, now)

	if err := svc.SettleEarnings(context.Background(), "u1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	earnings := ledger.callsOf("earning")
	if len(earnings) != 1 {
		t.Fatalf("expected one earning credit, got %d", len(earnings))
	}
	if !earnings[0].amount.Equal(mustDec("50")) || earnings[0].days != 10 {
		t.Fatalf("expected 50 over 10 days, got %s over %d", earnings[0].amount, earnings[0].days)
	}
	if inv := repo.invs["INV-1"]; inv.LastCreditDate == nil || !inv.LastCreditDate.Equal(now) {
		t.Fatalf("expected checkpoint advanced to now, got %v", inv.LastCreditDate)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	seedInvestment(repo, "INV-1", "u1", "5", 46)
	now := day0.Add(10 * 24 * time.Hour)
	svc := newTestService(repo, ledger, nil, nil, now)

	if err := svc.SettleEarnings(context.Background(), "u1"); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if err := svc.SettleEarnings(context.Background(), "u1"); err != nil {
		t.Fatalf("second settle: %v", err)
	}

	if got := len(ledger.callsOf("earning")); got != 1 {
		t.Fatalf("expected exactly one credit across both calls, got %d", got)
	}
}

func TestSettleHorizonCapCompletesAndReleasesPrincipal(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	seedInvestment(repo, "INV-1", "u1", "7", 5)
	now := day0.Add(20 * 24 * time.Hour)
	svc := newTestService(repo, ledger, nil, nil, now)

	if err := svc.SettleEarnings(context.Background(), "u1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	earnings := ledger.callsOf("earning")
	if len(earnings) != 1 || !earnings[0].amount.Equal(mustDec("35")) {
		t.Fatalf("expected single credit of 35, got %+v", earnings)
	}
	principals := ledger.callsOf("principal")
	if len(principals) != 1 || !principals[0].amount.Equal(mustDec("290")) {
		t.Fatalf("expected principal 290 released, got %+v", principals)
	}
	if inv := repo.invs["INV-1"]; inv.Status != domain.InvestmentStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", inv.Status)
	}

	// 再次结算不应有任何动作
	if err := svc.SettleEarnings(context.Background(), "u1"); err != nil {
		t.Fatalf("resettle: %v", err)
	}
	if got := len(ledger.calls); got != 2 {
		t.Fatalf("expected no further ledger calls, got %d total", got)
	}
}

func TestSettleSkipsOnCheckpointConflict(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	inv := seedInvestment(repo, "INV-1", "u1", "5", 46)
	now := day0.Add(10 * 24 * time.Hour)
	svc := newTestService(repo, ledger, nil, nil, now)

	// 模拟并发结算者在 List 与提交之间抢先推进了水位
	stolen := now.Add(-time.Minute)
	stale := *inv
	repo.invs["INV-1"].LastCreditDate = &stolen

	events, err := svc.settleOne(context.Background(), &stale, now)
	if err != nil {
		t.Fatalf("settle one: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events on conflict, got %d", len(events))
	}
	if len(ledger.calls) != 0 {
		t.Fatalf("expected no ledger calls on conflict, got %d", len(ledger.calls))
	}
}

func TestSettleIsolatesPerInvestmentFailure(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	seedInvestment(repo, "INV-1", "u1", "5", 46)
	seedInvestment(repo, "INV-2", "u1", "3", 46)
	ledger.failFor["INV-1"] = errors.New("ledger unavailable")

	now := day0.Add(2 * 24 * time.Hour)
	svc := newTestService(repo, ledger, nil, nil, now)

	err := svc.SettleEarnings(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected failure to surface")
	}

	earnings := ledger.callsOf("earning")
	if len(earnings) != 1 || earnings[0].invID != "INV-2" {
		t.Fatalf("expected the healthy investment settled, got %+v", earnings)
	}
	if !earnings[0].amount.Equal(mustDec("6")) {
		t.Fatalf("expected 6 credited for INV-2, got %s", earnings[0].amount)
	}
}

func TestPurchaseEnforcesVipGate(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	catalog := &fakeCatalog{terms: map[string]*domain.PlanTerms{
		"VIP2": {
			Code: "VIP2", UnitPrice: mustDec("1990"), DailyEarnings: mustDec("1631.8"),
			DurationDays: 46, RequiredVipLevel: 2, IsActive: true,
		},
	}}
	profiles := &fakeProfiles{levels: map[string]int{"low": 1, "high": 2}}
	svc := newTestService(repo, ledger, catalog, profiles, day0)

	_, err := svc.Purchase(context.Background(), PurchaseCommand{UserID: "low", PlanCode: "VIP2"})
	if !errors.Is(err, domain.ErrVipLevelTooLow) {
		t.Fatalf("expected ErrVipLevelTooLow, got %v", err)
	}
	if !strings.Contains(err.Error(), "VIP level 2") {
		t.Fatalf("expected tier-specific message, got %q", err.Error())
	}
	if len(ledger.calls) != 0 {
		t.Fatal("expected no debit on rejected purchase")
	}

	inv, err := svc.Purchase(context.Background(), PurchaseCommand{UserID: "high", PlanCode: "VIP2"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if inv.Amount != "1990" || inv.DailyEarnings != "1631.8" || inv.DurationDays != 46 {
		t.Fatalf("expected snapshotted terms, got %+v", inv)
	}

	debits := ledger.callsOf("invest")
	if len(debits) != 1 || !debits[0].amount.Equal(mustDec("1990")) {
		t.Fatalf("expected principal debit of 1990, got %+v", debits)
	}
}

func TestPurchaseSettlesExistingInvestmentsFirst(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	seedInvestment(repo, "INV-1", "u1", "5", 46)
	catalog := &fakeCatalog{terms: map[string]*domain.PlanTerms{
		"VIP1": {Code: "VIP1", UnitPrice: mustDec("290"), DailyEarnings: mustDec("234.9"), DurationDays: 46, IsActive: true},
	}}
	now := day0.Add(10 * 24 * time.Hour)
	svc := newTestService(repo, ledger, catalog, &fakeProfiles{levels: map[string]int{"u1": 0}}, now)

	if _, err := svc.Purchase(context.Background(), PurchaseCommand{UserID: "u1", PlanCode: "VIP1"}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// 存量投资的待入账收益先结算，再扣购买本金
	if len(ledger.calls) != 2 {
		t.Fatalf("expected settle then debit, got %d calls", len(ledger.calls))
	}
	if ledger.calls[0].op != "earning" || !ledger.calls[0].amount.Equal(mustDec("50")) {
		t.Fatalf("expected earnings of 50 credited first, got %+v", ledger.calls[0])
	}
	if ledger.calls[1].op != "invest" || !ledger.calls[1].amount.Equal(mustDec("290")) {
		t.Fatalf("expected principal debit of 290 second, got %+v", ledger.calls[1])
	}
}

func TestPurchaseRejectsInactivePlan(t *testing.T) {
	catalog := &fakeCatalog{terms: map[string]*domain.PlanTerms{
		"VIP1": {Code: "VIP1", UnitPrice: mustDec("290"), DurationDays: 46, IsActive: false},
	}}
	svc := newTestService(newFakeInvestmentRepo(), newFakeLedger(), catalog, &fakeProfiles{levels: map[string]int{"u1": 3}}, day0)

	_, err := svc.Purchase(context.Background(), PurchaseCommand{UserID: "u1", PlanCode: "VIP1"})
	if !errors.Is(err, domain.ErrPlanNotPurchasable) {
		t.Fatalf("expected ErrPlanNotPurchasable, got %v", err)
	}
}

func TestPurchaseSnapshotSurvivesPlanEdit(t *testing.T) {
	repo := newFakeInvestmentRepo()
	ledger := newFakeLedger()
	terms := &domain.PlanTerms{
		Code: "VIP1", UnitPrice: mustDec("290"), DailyEarnings: mustDec("234.9"),
		DurationDays: 46, IsActive: true,
	}
	catalog := &fakeCatalog{terms: map[string]*domain.PlanTerms{"VIP1": terms}}
	svc := newTestService(repo, ledger, catalog, &fakeProfiles{levels: map[string]int{"u1": 0}}, day0)

	inv, err := svc.Purchase(context.Background(), PurchaseCommand{UserID: "u1", PlanCode: "VIP1"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// 套餐改价后，存量投资单仍按快照结算
	terms.DailyEarnings = mustDec("999")
	now := day0.Add(3 * 24 * time.Hour)
	svc.WithClock(func() time.Time { return now })
	if err := svc.SettleEarnings(context.Background(), "u1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	earnings := ledger.callsOf("earning")
	if len(earnings) != 1 || !earnings[0].amount.Equal(mustDec("704.7")) {
		t.Fatalf("expected 704.7 from snapshotted terms, got %+v", earnings)
	}
	if earnings[0].invID != inv.InvestmentID {
		t.Fatalf("expected earning against %s, got %s", inv.InvestmentID, earnings[0].invID)
	}
}
