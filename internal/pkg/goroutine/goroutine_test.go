package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestManager_CollectsErrors(t *testing.T) {
	m := NewManager(4)
	errBoom := errors.New("boom")

	var ran atomic.Int32
	for i := range 3 {
		m.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			if i == 1 {
				return errBoom
			}
			return nil
		})
	}

	if err := m.Wait(); !errors.Is(err, errBoom) {
		t.Fatalf("Wait() error = %v, want boom", err)
	}
	if ran.Load() != 3 {
		t.Fatalf("ran %d jobs, want 3", ran.Load())
	}
}

func TestManager_RecoversPanic(t *testing.T) {
	m := NewManager(1)
	m.Go(context.Background(), func(context.Context) error {
		panic("kaboom")
	})

	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestManager_DropsAfterWait(t *testing.T) {
	m := NewManager(1)
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	var ran atomic.Bool
	m.Go(context.Background(), func(context.Context) error {
		ran.Store(true)
		return nil
	})
	if ran.Load() {
		t.Fatal("expected job to be dropped after Wait")
	}
}

func TestManager_SkipsCanceledContext(t *testing.T) {
	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	m.Go(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})

	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if ran.Load() {
		t.Fatal("expected canceled job not to run")
	}
}
