package cart

import (
	"context"
	"testing"
	"time"
)

func TestSweeper_SweepOnce(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = repo.Save(ctx, Cart{SessionID: "old", CreatedAt: now.Add(-8 * 24 * time.Hour)})
	_ = repo.Save(ctx, Cart{SessionID: "new", CreatedAt: now.Add(-time.Hour)})

	s := NewSweeper(repo, DefaultTTL, time.Hour, nil)
	n, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || repo.Len() != 1 {
		t.Fatalf("expected only the old cart swept, removed %d, left %d", n, repo.Len())
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	s := NewSweeper(NewInMemoryRepository(), DefaultTTL, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop")
	}
}
