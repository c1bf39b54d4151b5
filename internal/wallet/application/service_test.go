package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/investplan/internal/wallet/domain"
)

type fakeWalletRepo struct {
	wallets map[string]*domain.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[string]*domain.Wallet)}
}

func (r *fakeWalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

func (r *fakeWalletRepo) GetByUser(_ context.Context, userID string) (*domain.Wallet, error) {
	w, ok := r.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

// Save 复刻 MySQL 仓储的乐观锁语义：版本不匹配返回 ErrWalletConflict
func (r *fakeWalletRepo) Save(_ context.Context, w *domain.Wallet) error {
	if stored, ok := r.wallets[w.UserID]; ok && stored.Version != w.Version {
		return domain.ErrWalletConflict
	}
	w.Version++
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

type fakeTxnRepo struct {
	txns []*domain.Transaction
}

func (r *fakeTxnRepo) Save(_ context.Context, t *domain.Transaction) error {
	for i, existing := range r.txns {
		if existing.TransactionID == t.TransactionID {
			cp := *t
			r.txns[i] = &cp
			return nil
		}
	}
	cp := *t
	r.txns = append(r.txns, &cp)
	return nil
}

func (r *fakeTxnRepo) Get(_ context.Context, transactionID string) (*domain.Transaction, error) {
	for _, t := range r.txns {
		if t.TransactionID == transactionID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *fakeTxnRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].UserID == userID {
			out = append(out, r.txns[i])
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) ListWithdrawRequests(_ context.Context, status domain.TransactionStatus, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range r.txns {
		if t.Type != domain.TransactionTypeWithdrawRequest {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) UpdateStatusIfPending(_ context.Context, transactionID string, to domain.TransactionStatus) (bool, error) {
	for _, t := range r.txns {
		if t.TransactionID == transactionID {
			if t.Status != domain.TransactionStatusPending {
				return false, nil
			}
			t.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTxnRepo) SaveMeta(_ context.Context, transactionID string, meta domain.MetaPayload) error {
	for _, t := range r.txns {
		if t.TransactionID == transactionID {
			t.Meta = meta
			return nil
		}
	}
	return domain.ErrTransactionNotFound
}

func (r *fakeTxnRepo) lastOfType(typ domain.TransactionType) *domain.Transaction {
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].Type == typ {
			return r.txns[i]
		}
	}
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSettler struct {
	called int
	err    error
}

func (s *fakeSettler) SettleEarnings(_ context.Context, _ string) error {
	s.called++
	return s.err
}

// creditingSettler 结算时把待入账收益写进钱包，模拟投资上下文的惰性结算
type creditingSettler struct {
	wallets *fakeWalletRepo
	amount  decimal.Decimal
	called  int
}

func (s *creditingSettler) SettleEarnings(ctx context.Context, userID string) error {
	s.called++
	if s.amount.IsZero() {
		return nil
	}
	w, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	w.CreditEarnings(s.amount)
	s.amount = decimal.Zero
	return s.wallets.Save(ctx, w)
}

type fakePayouts struct {
	method  string
	account string
	err     error
}

func (p *fakePayouts) PayoutAccount(_ context.Context, _ string) (string, string, error) {
	return p.method, p.account, p.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(wallets *fakeWalletRepo, txns *fakeTxnRepo, settler Settler, payouts PayoutDirectory) *Service {
	return NewService(wallets, txns, fakeTxManager{}, settler, payouts, nil, nil, Config{
		Currency:       "INR",
		MinWithdraw:    dec("500"),
		SummaryTxLimit: 50,
	})
}

func seedWallet(r *fakeWalletRepo, userID, available string) {
	w := domain.NewWallet(userID, "INR")
	w.Credit(dec(available))
	r.wallets[userID] = w
}

func TestCreateWalletIdempotent(t *testing.T) {
	wallets := newFakeWalletRepo()
	svc := newTestService(wallets, &fakeTxnRepo{}, nil, nil)

	first, err := svc.CreateWallet(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if first.AvailableBalance != "0" {
		t.Fatalf("expected zero balance, got %s", first.AvailableBalance)
	}

	wallets.wallets["u1"].Credit(dec("100"))
	second, err := svc.CreateWallet(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.AvailableBalance != "100" {
		t.Fatalf("expected existing wallet returned, got balance %s", second.AvailableBalance)
	}
}

func TestSummarySettlesFirstAndSurvivesSettleError(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "300")
	settler := &fakeSettler{err: errors.New("db gone")}
	svc := newTestService(wallets, &fakeTxnRepo{}, settler, nil)

	summary, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if settler.called != 1 {
		t.Fatalf("expected settler called once, got %d", settler.called)
	}
	if summary.Wallet.AvailableBalance != "300" {
		t.Fatalf("unexpected balance %s", summary.Wallet.AvailableBalance)
	}
}

func TestRequestWithdrawValidation(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "1000")
	svc := newTestService(wallets, &fakeTxnRepo{}, nil, nil)

	_, _, err := svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("-5"), Account: "user@upi",
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, _, err = svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("499"), Account: "user@upi",
	})
	if !errors.Is(err, domain.ErrBelowMinWithdraw) {
		t.Fatalf("expected ErrBelowMinWithdraw, got %v", err)
	}

	_, _, err = svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("600"),
	})
	if !errors.Is(err, domain.ErrPayoutAccountMissing) {
		t.Fatalf("expected ErrPayoutAccountMissing, got %v", err)
	}

	_, _, err = svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("2000"), Account: "user@upi",
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestRequestWithdrawSettlesEarningsFirst(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "400")
	settler := &creditingSettler{wallets: wallets, amount: dec("200")}
	svc := newTestService(wallets, &fakeTxnRepo{}, settler, nil)

	// 可用 400 + 待入账收益 200，结算后足以覆盖 500 的提现
	txn, wallet, err := svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("500"), Account: "user@upi",
	})
	if err != nil {
		t.Fatalf("request withdraw: %v", err)
	}
	if settler.called != 1 {
		t.Fatalf("expected settler called once before debit, got %d", settler.called)
	}
	if wallet.AvailableBalance != "100" {
		t.Fatalf("expected available 100 after settle and debit, got %s", wallet.AvailableBalance)
	}
	if txn.Status != string(domain.TransactionStatusPending) {
		t.Fatalf("expected PENDING, got %s", txn.Status)
	}
}

func TestStaleWalletSaveIsRejected(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "1000")
	ctx := context.Background()

	// 两个写入方基于同一快照工作，后提交者必须失败而非覆盖前者的变更
	settleView, _ := wallets.GetByUser(ctx, "u1")
	withdrawView, _ := wallets.GetByUser(ctx, "u1")

	if err := withdrawView.DebitForWithdraw(dec("600")); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := wallets.Save(ctx, withdrawView); err != nil {
		t.Fatalf("first save: %v", err)
	}

	settleView.CreditEarnings(dec("50"))
	if err := wallets.Save(ctx, settleView); !errors.Is(err, domain.ErrWalletConflict) {
		t.Fatalf("expected ErrWalletConflict on stale save, got %v", err)
	}

	w, _ := wallets.GetByUser(ctx, "u1")
	if !w.AvailableBalance.Equal(dec("400")) {
		t.Fatalf("expected the withdraw debit preserved, got %s", w.AvailableBalance)
	}
	if !w.TotalWithdraw.Equal(dec("600")) {
		t.Fatalf("expected total withdraw 600, got %s", w.TotalWithdraw)
	}
}

func TestRequestWithdrawDebitsAndRecordsPending(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "1000")
	txns := &fakeTxnRepo{}
	payouts := &fakePayouts{method: "UPI", account: "saved@upi"}
	svc := newTestService(wallets, txns, nil, payouts)

	txn, wallet, err := svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("600"),
	})
	if err != nil {
		t.Fatalf("request withdraw: %v", err)
	}
	if wallet.AvailableBalance != "400" {
		t.Fatalf("expected available 400, got %s", wallet.AvailableBalance)
	}
	if txn.Status != string(domain.TransactionStatusPending) {
		t.Fatalf("expected PENDING, got %s", txn.Status)
	}

	saved := txns.lastOfType(domain.TransactionTypeWithdrawRequest)
	if saved == nil {
		t.Fatal("expected withdraw request transaction saved")
	}
	var meta domain.WithdrawMeta
	if err := saved.Meta.Decode(&meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Account != "saved@upi" {
		t.Fatalf("expected payout account from directory, got %q", meta.Account)
	}
}

func TestApproveWithdrawOnceOnly(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "1000")
	txns := &fakeTxnRepo{}
	svc := newTestService(wallets, txns, nil, nil)

	pending, _, err := svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("600"), Account: "user@upi",
	})
	if err != nil {
		t.Fatalf("request withdraw: %v", err)
	}

	approved, err := svc.ApproveWithdraw(context.Background(), WithdrawDecisionCommand{
		TransactionID: pending.TransactionID, AdminID: "admin-1",
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != string(domain.TransactionStatusSuccess) {
		t.Fatalf("expected SUCCESS, got %s", approved.Status)
	}

	var meta domain.WithdrawMeta
	saved := txns.lastOfType(domain.TransactionTypeWithdrawRequest)
	if err := saved.Meta.Decode(&meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.AdminID != "admin-1" || meta.Note != "withdraw_approved" {
		t.Fatalf("unexpected decision meta %+v", meta)
	}

	_, err = svc.ApproveWithdraw(context.Background(), WithdrawDecisionCommand{
		TransactionID: pending.TransactionID, AdminID: "admin-2",
	})
	if !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestApproveWithdrawRejectsNonWithdrawTransaction(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "1000")
	txns := &fakeTxnRepo{}
	svc := newTestService(wallets, txns, nil, nil)

	_, _, err := svc.ManualRecharge(context.Background(), ManualRechargeCommand{
		UserID: "u1", Amount: dec("50"), AdminID: "admin-1",
	})
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	recharge := txns.lastOfType(domain.TransactionTypeRecharge)

	_, err = svc.ApproveWithdraw(context.Background(), WithdrawDecisionCommand{
		TransactionID: recharge.TransactionID, AdminID: "admin-1",
	})
	if !errors.Is(err, domain.ErrWithdrawRequestNotFound) {
		t.Fatalf("expected ErrWithdrawRequestNotFound, got %v", err)
	}
}

func TestRejectWithdrawRestoresBalance(t *testing.T) {
	wallets := newFakeWalletRepo()
	seedWallet(wallets, "u1", "1000")
	txns := &fakeTxnRepo{}
	svc := newTestService(wallets, txns, nil, nil)

	pending, _, err := svc.RequestWithdraw(context.Background(), RequestWithdrawCommand{
		UserID: "u1", Amount: dec("600"), Account: "user@upi",
	})
	if err != nil {
		t.Fatalf("request withdraw: %v", err)
	}

	rejected, wallet, err := svc.RejectWithdraw(context.Background(), WithdrawDecisionCommand{
		TransactionID: pending.TransactionID, AdminID: "admin-1", Note: "suspicious",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != string(domain.TransactionStatusFailed) {
		t.Fatalf("expected FAILED, got %s", rejected.Status)
	}
	if wallet.AvailableBalance != "1000" {
		t.Fatalf("expected balance restored to 1000, got %s", wallet.AvailableBalance)
	}
	if wallet.TotalWithdraw != "0" {
		t.Fatalf("expected total withdraw reverted, got %s", wallet.TotalWithdraw)
	}
}

func TestManualRechargeRequiresWallet(t *testing.T) {
	svc := newTestService(newFakeWalletRepo(), &fakeTxnRepo{}, nil, nil)

	_, _, err := svc.ManualRecharge(context.Background(), ManualRechargeCommand{
		UserID: "ghost", Amount: dec("100"), AdminID: "admin-1",
	})
	if !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestCreditDepositCreatesWalletWhenMissing(t *testing.T) {
	wallets := newFakeWalletRepo()
	txns := &fakeTxnRepo{}
	svc := newTestService(wallets, txns, nil, nil)

	err := svc.CreditDeposit(context.Background(), CreditDepositCommand{
		UserID: "u1", Amount: dec("150"), DepositID: "DEP-1", UpiID: "merchant@upi", TxnRef: "ref-1", AdminID: "admin-1",
	})
	if err != nil {
		t.Fatalf("credit deposit: %v", err)
	}

	w, err := wallets.GetByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.AvailableBalance.Equal(dec("150")) {
		t.Fatalf("expected 150 available, got %s", w.AvailableBalance)
	}
	if !w.TotalRecharge.Equal(dec("150")) {
		t.Fatalf("expected 150 total recharge, got %s", w.TotalRecharge)
	}

	saved := txns.lastOfType(domain.TransactionTypeRecharge)
	var meta domain.DepositMeta
	if err := saved.Meta.Decode(&meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.DepositID != "DEP-1" || meta.TxnRef != "ref-1" {
		t.Fatalf("unexpected deposit meta %+v", meta)
	}
}

func TestInvestAndEarningsLifecycleConservesFunds(t *testing.T) {
	wallets := newFakeWalletRepo()
	txns := &fakeTxnRepo{}
	svc := newTestService(wallets, txns, nil, nil)
	ctx := context.Background()

	seedWallet(wallets, "u1", "5000")

	if err := svc.DebitForInvestment(ctx, "u1", dec("1990"), "VIP2", "INV-1"); err != nil {
		t.Fatalf("debit for investment: %v", err)
	}
	w, _ := wallets.GetByUser(ctx, "u1")
	if !w.AvailableBalance.Equal(dec("3010")) || !w.LockedBalance.Equal(dec("1990")) {
		t.Fatalf("unexpected balances after invest: avail=%s locked=%s", w.AvailableBalance, w.LockedBalance)
	}

	if err := svc.CreditEarnings(ctx, "u1", dec("1631.8"), "INV-1", 1); err != nil {
		t.Fatalf("credit earnings: %v", err)
	}
	if err := svc.ReleasePrincipal(ctx, "u1", dec("1990"), "INV-1"); err != nil {
		t.Fatalf("release principal: %v", err)
	}

	w, _ = wallets.GetByUser(ctx, "u1")
	if !w.AvailableBalance.Equal(dec("6631.8")) {
		t.Fatalf("expected 6631.8 available, got %s", w.AvailableBalance)
	}
	if !w.LockedBalance.IsZero() {
		t.Fatalf("expected locked zero, got %s", w.LockedBalance)
	}

	earning := txns.lastOfType(domain.TransactionTypeDailyEarning)
	if earning == nil {
		t.Fatal("expected DAILY_EARNING transaction")
	}
	ret := txns.lastOfType(domain.TransactionTypePrincipalReturn)
	if ret == nil {
		t.Fatal("expected PRINCIPAL_RETURN transaction")
	}
}
