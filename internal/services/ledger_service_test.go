package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *fakePublisher) PublishSnapshotChanged(_ context.Context, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, userID+":"+reason)
	return p.err
}

func (p *fakePublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func expense(category, amount string) core.Transaction {
	return core.Transaction{
		Type:     core.Expense,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Date:     core.NewDate(2024, 3, 5),
	}
}

func addExpense(tx core.Transaction) func(*ledger.Store) error {
	return func(s *ledger.Store) error {
		_, err := s.AddTransaction(tx)
		return err
	}
}

func TestLedgerService_MutatePersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub, nil)

	if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "12.50"))); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	data, ok, err := repo.GetSnapshot(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("snapshot not stored: ok=%v err=%v", ok, err)
	}
	var doc core.Snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("stored snapshot is not JSON: %v", err)
	}
	if len(doc.Transactions) != 1 || doc.Transactions[0].Category != "Food" {
		t.Errorf("stored transactions = %+v", doc.Transactions)
	}

	if got := pub.Events(); len(got) != 1 || got[0] != "alice:"+amqp.ReasonMutation {
		t.Errorf("events = %v", got)
	}
}

func TestLedgerService_MutateErrorIsReturnedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub, nil)

	err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "0")))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Mutate() error = %v, want ErrInvalidAmount", err)
	}
	if _, ok, _ := repo.GetSnapshot(ctx, "alice"); ok {
		t.Error("failed mutation must not persist")
	}
	if len(pub.Events()) != 0 {
		t.Error("failed mutation must not publish")
	}
}

func TestLedgerService_PersistAndPublishFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewLedgerService(repo, pub, nil)

	if _, err := svc.Ledger(ctx, "alice"); err != nil {
		t.Fatalf("Ledger() error = %v", err)
	}
	repo.Fail(true)

	if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "3"))); err != nil {
		t.Fatalf("Mutate() error = %v, want nil", err)
	}
	store, err := svc.Ledger(ctx, "alice")
	if err != nil {
		t.Fatalf("Ledger() error = %v", err)
	}
	if n := len(store.Snapshot().Transactions); n != 1 {
		t.Errorf("in-memory state lost: %d transactions", n)
	}
}

func TestLedgerService_LoadsExistingSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	doc := `{"transactions":[{"id":"tx_1","type":"income","category":"Salary","amount":1000,"date":"2024-03-01"}],
		"settings":{"payday":"10","creditLimit":0,"currency":"$"}}`
	if err := repo.PutSnapshot(ctx, "bob", []byte(doc)); err != nil {
		t.Fatal(err)
	}

	svc := NewLedgerService(repo, nil, nil)
	store, err := svc.Ledger(ctx, "  bob ")
	if err != nil {
		t.Fatalf("Ledger() error = %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Transactions) != 1 || snap.Settings.Payday != 10 || snap.Settings.Currency != "$" {
		t.Errorf("loaded snapshot = %+v", snap)
	}
}

func TestLedgerService_LoadFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	repo.Fail(true)
	svc := NewLedgerService(repo, nil, nil)

	if _, err := svc.Ledger(ctx, "alice"); !errors.Is(err, ErrStorage) {
		t.Fatalf("Ledger() error = %v, want ErrStorage", err)
	}

	repo.Fail(false)
	if _, err := svc.Ledger(ctx, "alice"); err != nil {
		t.Fatalf("Ledger() after recovery error = %v", err)
	}
}

func TestLedgerService_InvalidUser(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil)
	if _, err := svc.Ledger(context.Background(), "  "); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("Ledger() error = %v, want ErrInvalidUser", err)
	}
	if _, err := svc.Download(context.Background(), ""); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("Download() error = %v, want ErrInvalidUser", err)
	}
}

func TestLedgerService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces session and stores document", func(t *testing.T) {
		repo := memory.New()
		pub := &fakePublisher{}
		svc := NewLedgerService(repo, pub, nil)
		if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "1"))); err != nil {
			t.Fatal(err)
		}

		raw := []byte(`{"budgets":[{"id":"bud_1","category":"Rent","amount":500}]}`)
		report, err := svc.Upload(ctx, "alice", raw)
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if report.Clean() {
			t.Error("missing collections should be reported as defaulted")
		}

		store, _ := svc.Ledger(ctx, "alice")
		snap := store.Snapshot()
		if len(snap.Transactions) != 0 || len(snap.Budgets) != 1 {
			t.Errorf("session not replaced: %+v", snap)
		}
		stored, err := svc.Download(ctx, "alice")
		if err != nil || string(stored) != string(raw) {
			t.Errorf("Download() = %s, %v", stored, err)
		}
		events := pub.Events()
		if events[len(events)-1] != "alice:"+amqp.ReasonUpload {
			t.Errorf("events = %v", events)
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		svc := NewLedgerService(memory.New(), nil, nil)
		if _, err := svc.Upload(ctx, "alice", []byte(`[1,2]`)); !errors.Is(err, ledger.ErrMalformedSnapshot) {
			t.Errorf("Upload() error = %v, want ErrMalformedSnapshot", err)
		}
	})

	t.Run("storage failure keeps session", func(t *testing.T) {
		repo := memory.New()
		svc := NewLedgerService(repo, nil, nil)
		if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "1"))); err != nil {
			t.Fatal(err)
		}
		repo.Fail(true)

		_, err := svc.Upload(ctx, "alice", []byte(`{}`))
		if !errors.Is(err, ErrStorage) {
			t.Fatalf("Upload() error = %v, want ErrStorage", err)
		}
		store, _ := svc.Ledger(ctx, "alice")
		if n := len(store.Snapshot().Transactions); n != 1 {
			t.Errorf("session replaced despite storage failure: %d transactions", n)
		}
	})
}

func TestLedgerService_Download(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := NewLedgerService(repo, nil, nil)

	data, err := svc.Download(ctx, "nobody")
	if err != nil || data != nil {
		t.Errorf("Download() = %s, %v; want nil, nil", data, err)
	}

	repo.Fail(true)
	if _, err := svc.Download(ctx, "nobody"); !errors.Is(err, ErrStorage) {
		t.Errorf("Download() error = %v, want ErrStorage", err)
	}
}

func TestLedgerService_Reset(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub, nil)
	if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "1"))); err != nil {
		t.Fatal(err)
	}

	if err := svc.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	store, _ := svc.Ledger(ctx, "alice")
	if n := len(store.Snapshot().Transactions); n != 0 {
		t.Errorf("Reset() left %d transactions", n)
	}
	if _, ok, _ := repo.GetSnapshot(ctx, "alice"); ok {
		t.Error("Reset() must delete the stored document")
	}
	events := pub.Events()
	if events[len(events)-1] != "alice:"+amqp.ReasonReset {
		t.Errorf("events = %v", events)
	}
}

func TestLedgerService_ForgetReloads(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := NewLedgerService(repo, nil, nil)
	if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "1"))); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteSnapshot(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	svc.Forget("alice")
	store, err := svc.Ledger(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(store.Snapshot().Transactions); n != 0 {
		t.Errorf("Forget() did not drop the session: %d transactions", n)
	}
}

func TestLedgerService_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "1")))
		}()
	}
	wg.Wait()

	store, _ := svc.Ledger(ctx, "alice")
	if n := len(store.Snapshot().Transactions); n != 20 {
		t.Errorf("got %d transactions, want 20", n)
	}
}

func TestLedgerService_Close(t *testing.T) {
	svc := NewLedgerService(memory.New(), &fakePublisher{}, nil)
	if err := svc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLedgerService_Version(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), nil, nil)

	seen := map[uint64]string{}
	record := func(step string) {
		t.Helper()
		v, err := svc.Version(ctx, "alice")
		if err != nil {
			t.Fatalf("Version() after %s error = %v", step, err)
		}
		if prev, ok := seen[v]; ok {
			t.Fatalf("Version() after %s = %d, already seen after %s", step, v, prev)
		}
		seen[v] = step
	}

	record("load")
	if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "1"))); err != nil {
		t.Fatal(err)
	}
	record("mutate")

	before, _ := svc.Version(ctx, "alice")
	_ = svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "0")))
	if after, _ := svc.Version(ctx, "alice"); after != before {
		t.Errorf("failed mutation changed version %d -> %d", before, after)
	}

	if _, err := svc.Upload(ctx, "alice", []byte(`{"transactions":[]}`)); err != nil {
		t.Fatal(err)
	}
	record("upload")
	if err := svc.Reset(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	record("reset")
	svc.Forget("alice")
	record("reload")

	if _, err := svc.Version(ctx, " "); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("Version() blank user error = %v, want ErrInvalidUser", err)
	}
}

func TestLedgerService_ViewMatchesVersion(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), nil, nil)

	if err := svc.Mutate(ctx, "alice", "create", addExpense(expense("Food", "3"))); err != nil {
		t.Fatal(err)
	}
	snap, v, err := svc.View(ctx, "alice")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(snap.Transactions) != 1 {
		t.Errorf("View() transactions = %d, want 1", len(snap.Transactions))
	}
	if cur, _ := svc.Version(ctx, "alice"); cur != v {
		t.Errorf("View() version = %d, Version() = %d", v, cur)
	}

	snap.Transactions = nil
	if again, _, _ := svc.View(ctx, "alice"); len(again.Transactions) != 1 {
		t.Error("View() must return a copy")
	}
}
