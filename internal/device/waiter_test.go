package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaiterResolvesOnce(t *testing.T) {
	w := NewWaiters()
	waiter, err := w.Register("op-1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := w.Register("op-1"); !errors.Is(err, ErrWaiterPending) {
		t.Errorf("Expected ErrWaiterPending, got %v", err)
	}

	if !w.Complete("op-1", true, "") {
		t.Fatal("Expected completion to be delivered")
	}
	if w.Complete("op-1", false, "late") {
		t.Error("Expected duplicate completion to be ignored")
	}

	msg, err := waiter.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if msg != "Success" {
		t.Errorf("Expected default message Success, got %q", msg)
	}

	if _, err := w.Register("op-1"); err != nil {
		t.Errorf("Expected id to be reusable after resolution, got %v", err)
	}
}

func TestWaiterFailure(t *testing.T) {
	w := NewWaiters()
	waiter, _ := w.Register("op-2")

	go w.Complete("op-2", false, "INSTALL_FAILED_INSUFFICIENT_STORAGE")

	_, err := waiter.Wait(context.Background(), time.Second)
	if !errors.Is(err, ErrInstallerFailed) {
		t.Fatalf("Expected ErrInstallerFailed, got %v", err)
	}
	if err.Error() != "package installer failed: INSTALL_FAILED_INSUFFICIENT_STORAGE" {
		t.Errorf("Unexpected message: %v", err)
	}
}

func TestWaiterTimeout(t *testing.T) {
	w := NewWaiters()
	waiter, _ := w.Register("op-3")

	_, err := waiter.Wait(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("Expected ErrWaitTimeout, got %v", err)
	}
	if w.Pending("op-3") {
		t.Error("Expected timed out waiter to be removed")
	}
	if w.Complete("op-3", true, "") {
		t.Error("Expected late completion to find nothing")
	}
}

func TestWaiterContextCancel(t *testing.T) {
	w := NewWaiters()
	waiter, _ := w.Register("op-4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := waiter.Wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if w.Pending("op-4") {
		t.Error("Expected cancelled waiter to be removed")
	}
}
