package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nhle/deskalert/internal/ledger"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/testutil"
)

func newLedger(t *testing.T) (*ledger.Ledger, *testutil.Clock, ledger.KV) {
	t.Helper()
	s := testutil.NewTestStore(t)
	clock := testutil.NewClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	l := ledger.New(s, ledger.Options{Now: clock.Now})
	return l, clock, s
}

func TestMarkThenShouldShow(t *testing.T) {
	l, clock, _ := newLedger(t)
	ctx := context.Background()
	key := model.NewReminderKey(model.KeyTagAssignment, "42")

	if !l.ShouldShow(ctx, key) {
		t.Fatal("unseen key should show")
	}

	l.MarkShown(ctx, key)
	if l.ShouldShow(ctx, key) {
		t.Fatal("key marked just now should not show")
	}

	clock.Advance(4*time.Hour - time.Second)
	if l.ShouldShow(ctx, key) {
		t.Fatal("key should still be blocked inside cooldown")
	}

	clock.Advance(time.Second)
	if !l.ShouldShow(ctx, key) {
		t.Fatal("key should show again once the cooldown has elapsed")
	}
}

func TestRetentionPurgeOnUnrelatedWrite(t *testing.T) {
	l, clock, kv := newLedger(t)
	ctx := context.Background()
	old := model.NewReminderKey(model.KeyTagPayment, "7")

	l.MarkShown(ctx, old)
	clock.Advance(24*time.Hour + time.Minute)

	// Nothing purges until the next write.
	if n := l.Len(ctx); n != 1 {
		t.Fatalf("Len before write = %d, want 1", n)
	}

	l.MarkShown(ctx, model.NewReminderKey(model.KeyTagPayment, "8"))

	raw, err := kv.Get(ctx, ledger.StorageKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var records map[string]int64
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		t.Fatalf("stored ledger is not JSON: %v", err)
	}
	if _, ok := records[string(old)]; ok {
		t.Error("record older than retention should have been purged")
	}
	if len(records) != 1 {
		t.Errorf("records = %v, want only the fresh key", records)
	}
}

func TestCorruptStorageFailsOpen(t *testing.T) {
	l, _, kv := newLedger(t)
	ctx := context.Background()

	for _, raw := range []string{"{not json", "null", "[1,2,3]"} {
		if err := kv.Put(ctx, ledger.StorageKey, raw); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if !l.ShouldShow(ctx, "assignment-1") {
			t.Errorf("ShouldShow with stored %q = false, want true", raw)
		}
	}

	// A write over corrupt data starts a fresh ledger.
	l.MarkShown(ctx, "assignment-1")
	if l.ShouldShow(ctx, "assignment-1") {
		t.Error("key marked over corrupt data should be blocked")
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}

func (failingKV) Put(context.Context, string, string) error {
	return errors.New("disk on fire")
}

func TestStorageErrorsDoNotPropagate(t *testing.T) {
	l := ledger.New(failingKV{}, ledger.Options{})
	ctx := context.Background()

	l.MarkShown(ctx, "meeting-1")
	if !l.ShouldShow(ctx, "meeting-1") {
		t.Error("unreadable storage must fail open")
	}
}

func TestCustomWindows(t *testing.T) {
	s := testutil.NewTestStore(t)
	clock := testutil.NewClock(time.Unix(1_700_000_000, 0))
	l := ledger.New(s, ledger.Options{
		Cooldown:  time.Minute,
		Retention: time.Hour,
		Now:       clock.Now,
	})
	ctx := context.Background()

	l.MarkShown(ctx, "k")
	clock.Advance(time.Minute)
	if !l.ShouldShow(ctx, "k") {
		t.Error("custom cooldown not honored")
	}
}
