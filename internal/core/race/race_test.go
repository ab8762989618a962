package race

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeout_OpWins(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestWithTimeout_TimerWins(t *testing.T) {
	start := time.Now()
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(500 * time.Millisecond)
		return 42, nil
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("timeout must settle promptly, took %s", elapsed)
	}
}

func TestWithTimeout_OpError(t *testing.T) {
	wantErr := errors.New("backend error")
	_, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected op error, got %v", err)
	}
}

func TestWithTimeout_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithTimeout(ctx, time.Second, func(ctx context.Context) (int, error) {
		time.Sleep(500 * time.Millisecond)
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithTimeout_OpReceivesCallerContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	got, err := WithTimeout(ctx, time.Second, func(opCtx context.Context) (string, error) {
		v, _ := opCtx.Value(key{}).(string)
		return v, nil
	})
	if err != nil || got != "v" {
		t.Fatalf("op must receive the caller's context unmodified: %q %v", got, err)
	}
}

func TestWithTimeout_AbandonedOpKeepsRunning(t *testing.T) {
	finished := make(chan struct{})
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return 1, nil
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}

	// The loser is abandoned, not cancelled: it must run to completion.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("abandoned op should have kept running")
	}
}
