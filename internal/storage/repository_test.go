package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	data, ok, err := repo.GetSnapshot(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if ok || data != nil {
		t.Errorf("GetSnapshot() = %q, %v; want nothing", data, ok)
	}
}

func TestSQLiteRepository_PutGetLastWriteWins(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.PutSnapshot(ctx, "alice", []byte(`{"budgets":[]}`)); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	if err := repo.PutSnapshot(ctx, "alice", []byte(`{"settings":{"payday":10}}`)); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	if err := repo.PutSnapshot(ctx, "bob", []byte(`{}`)); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	data, ok, err := repo.GetSnapshot(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("GetSnapshot() = %v, %v", ok, err)
	}
	if string(data) != `{"settings":{"payday":10}}` {
		t.Errorf("GetSnapshot() = %s", data)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("ListUsers() = %v", users)
	}

	if _, ok, err := repo.UpdatedAt(ctx, "alice"); err != nil || !ok {
		t.Errorf("UpdatedAt() = %v, %v", ok, err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_ = repo.PutSnapshot(ctx, "alice", []byte(`{}`))
	if err := repo.DeleteSnapshot(ctx, "alice"); err != nil {
		t.Fatalf("DeleteSnapshot() error = %v", err)
	}
	if _, ok, _ := repo.GetSnapshot(ctx, "alice"); ok {
		t.Errorf("snapshot still present after delete")
	}
	if err := repo.DeleteSnapshot(ctx, "alice"); err != nil {
		t.Errorf("deleting a missing snapshot error = %v", err)
	}
}

func TestSQLiteRepository_EmptyUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, _, err := repo.GetSnapshot(ctx, ""); !errors.Is(err, ErrEmptyUser) {
		t.Errorf("GetSnapshot() error = %v", err)
	}
	if err := repo.PutSnapshot(ctx, "", []byte(`{}`)); !errors.Is(err, ErrEmptyUser) {
		t.Errorf("PutSnapshot() error = %v", err)
	}
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	if err := repo.PutSnapshot(ctx, "alice", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	data, ok, err := reopened.GetSnapshot(ctx, "alice")
	if err != nil || !ok || string(data) != `{"x":1}` {
		t.Errorf("GetSnapshot() after reopen = %s, %v, %v", data, ok, err)
	}
}

func TestSQLiteRepository_ConcurrentPuts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.PutSnapshot(ctx, fmt.Sprintf("user-%d", i%4), []byte(fmt.Sprintf(`{"n":%d}`, i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
	}

	users, _ := repo.ListUsers(ctx)
	if len(users) != 4 {
		t.Errorf("ListUsers() = %v, want 4 users", users)
	}
}
