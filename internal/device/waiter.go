package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds every install and uninstall wait
const DefaultTimeout = 10 * time.Minute

var (
	ErrWaiterPending   = errors.New("a completion is already pending for this operation")
	ErrWaitTimeout     = errors.New("timed out waiting for package installer")
	ErrInstallerFailed = errors.New("package installer failed")
)

type result struct {
	message string
	err     error
}

// Waiters maps operation ids to one-shot completion handles.
// At most one handle is pending per id and it resolves exactly once.
type Waiters struct {
	mu      sync.Mutex
	pending map[string]chan result
}

// NewWaiters creates an empty waiter table
func NewWaiters() *Waiters {
	return &Waiters{pending: make(map[string]chan result)}
}

// Waiter is a registered pending completion
type Waiter struct {
	id string
	ch chan result
	w  *Waiters
}

// Register creates the pending handle for an operation
func (w *Waiters) Register(operationID string) (*Waiter, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[operationID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrWaiterPending, operationID)
	}
	ch := make(chan result, 1)
	w.pending[operationID] = ch
	return &Waiter{id: operationID, ch: ch, w: w}, nil
}

// Complete resolves the pending handle. It reports false when nothing was
// waiting, which is the case for late or duplicate callbacks.
func (w *Waiters) Complete(operationID string, success bool, message string) bool {
	w.mu.Lock()
	ch, ok := w.pending[operationID]
	if ok {
		delete(w.pending, operationID)
	}
	w.mu.Unlock()

	if !ok {
		return false
	}

	if success {
		if message == "" {
			message = "Success"
		}
		ch <- result{message: message}
	} else {
		if message == "" {
			message = ErrInstallerFailed.Error()
		}
		ch <- result{err: fmt.Errorf("%w: %s", ErrInstallerFailed, message)}
	}
	return true
}

// Pending reports whether an operation has an unresolved handle
func (w *Waiters) Pending(operationID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[operationID]
	return ok
}

func (w *Waiters) drop(operationID string, ch chan result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur, ok := w.pending[operationID]; ok && cur == ch {
		delete(w.pending, operationID)
	}
}

// Cancel withdraws the handle without resolving it
func (wt *Waiter) Cancel() {
	wt.w.drop(wt.id, wt.ch)
}

// Wait blocks until the handle resolves, ctx ends or timeout passes.
// A non-positive timeout uses DefaultTimeout.
func (wt *Waiter) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-wt.ch:
		return r.message, r.err
	case <-timer.C:
		wt.Cancel()
		return "", fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
	case <-ctx.Done():
		wt.Cancel()
		return "", ctx.Err()
	}
}
