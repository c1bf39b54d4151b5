package db

import (
	"context"
	"testing"

	"gorm.io/gorm"
)

func TestInTransactionDetection(t *testing.T) {
	ctx := context.Background()
	if InTransaction(ctx) {
		t.Fatal("plain context must not report a transaction")
	}
	if !InTransaction(WithTx(ctx, &gorm.DB{})) {
		t.Fatal("context with tx handle must report a transaction")
	}
}

func TestOnCommitRunsImmediatelyOutsideTransaction(t *testing.T) {
	ran := false
	OnCommit(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Fatal("callback must run immediately outside a transaction")
	}
}

func TestOnCommitDefersInsideTransaction(t *testing.T) {
	hooks := &commitHooks{}
	ctx := context.WithValue(context.Background(), commitHooksKey{}, hooks)

	ran := false
	OnCommit(ctx, func(context.Context) { ran = true })
	if ran {
		t.Fatal("callback must not run before the transaction commits")
	}
	if len(hooks.fns) != 1 {
		t.Fatalf("expected one registered callback, got %d", len(hooks.fns))
	}

	hooks.run(context.Background())
	if !ran {
		t.Fatal("callback must run after commit")
	}
}
