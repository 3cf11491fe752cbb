package payment

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"meridia/models"
)

// Monitor states. A watch is born Opened, enters Verifying once the buyer
// returns from the hosted page, and ends in exactly one terminal state.
const (
	StateOpened    = "opened"
	StateVerifying = "verifying"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateTimedOut  = "timed_out"
)

// Result is delivered exactly once per watch, on the terminal transition.
type Result struct {
	TxRef   string
	OrderID models.PendingOrderID
	State   string
	Err     error
}

// Monitor polls the gateway for one hosted-checkout attempt at a time. Grace
// delays the first poll after the buyer returns so the provider has settled;
// Ceiling bounds the whole watch regardless of activity.
type Monitor struct {
	Gateway  Gateway
	Grace    time.Duration
	Poll     time.Duration
	Ceiling  time.Duration
	OnResult func(Result)
}

func NewMonitor(gw Gateway, onResult func(Result)) *Monitor {
	return &Monitor{
		Gateway:  gw,
		Grace:    2 * time.Second,
		Poll:     3 * time.Second,
		Ceiling:  15 * time.Minute,
		OnResult: onResult,
	}
}

// Watch runs the state machine for one session. It blocks until a terminal
// state is reached or ctx is cancelled; callers run it in its own goroutine.
// The returned channel fires when the buyer lands back on the app.
func (m *Monitor) Watch(ctx context.Context, txRef string, orderID models.PendingOrderID, returned <-chan struct{}) {
	deadline := time.NewTimer(m.Ceiling)
	defer deadline.Stop()

	finish := func(state string, err error) {
		if m.OnResult != nil {
			m.OnResult(Result{TxRef: txRef, OrderID: orderID, State: state, Err: err})
		}
	}

	// Opened: nothing to poll yet. The hosted page is in the buyer's hands.
	select {
	case <-ctx.Done():
		return
	case <-deadline.C:
		finish(StateTimedOut, nil)
		return
	case <-returned:
	}

	// Grace pause before the first poll.
	grace := time.NewTimer(m.Grace)
	select {
	case <-ctx.Done():
		grace.Stop()
		return
	case <-deadline.C:
		grace.Stop()
		finish(StateTimedOut, nil)
		return
	case <-grace.C:
	}

	// Verifying: poll until the gateway gives a terminal answer. A transport
	// or gateway error ends the watch; retrying a broken channel only delays
	// telling the buyer something went wrong.
	ticker := time.NewTicker(m.Poll)
	defer ticker.Stop()

	for {
		status, err := m.Gateway.Status(ctx, txRef)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			finish(StateFailed, fmt.Errorf("unable to verify payment status: %w", err))
			return
		}
		switch status {
		case StatusSuccess:
			finish(StateSucceeded, nil)
			return
		case StatusFailed:
			finish(StateFailed, nil)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			finish(StateTimedOut, nil)
			return
		case <-ticker.C:
		}
	}
}

// watchEntry tracks one live watch so HTTP handlers can signal or cancel it.
type watchEntry struct {
	cancel   context.CancelFunc
	returned chan struct{}
	once     sync.Once
}

// Registry indexes live watches by txRef.
type Registry struct {
	mu      sync.Mutex
	watches map[string]*watchEntry
}

func NewRegistry() *Registry {
	return &Registry{watches: map[string]*watchEntry{}}
}

// Start launches a watch goroutine for the session and registers it.
func (r *Registry) Start(m *Monitor, txRef string, orderID models.PendingOrderID) {
	ctx, cancel := context.WithCancel(context.Background())
	entry := &watchEntry{cancel: cancel, returned: make(chan struct{})}

	r.mu.Lock()
	if old, ok := r.watches[txRef]; ok {
		old.cancel()
	}
	r.watches[txRef] = entry
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			if r.watches[txRef] == entry {
				delete(r.watches, txRef)
			}
			r.mu.Unlock()
		}()
		m.Watch(ctx, txRef, orderID, entry.returned)
	}()
}

// SignalReturned tells a watch the buyer is back. Unknown refs are ignored;
// the watch may already have resolved.
func (r *Registry) SignalReturned(txRef string) bool {
	r.mu.Lock()
	entry, ok := r.watches[txRef]
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.once.Do(func() { close(entry.returned) })
	return true
}

// Cancel stops a watch without a result, used when the buyer abandons the
// attempt on purpose.
func (r *Registry) Cancel(txRef string) bool {
	r.mu.Lock()
	entry, ok := r.watches[txRef]
	if ok {
		delete(r.watches, txRef)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.cancel()
	return true
}

// CancelAll is called on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	for ref, entry := range r.watches {
		entry.cancel()
		delete(r.watches, ref)
	}
	r.mu.Unlock()
	log.Println("payment: all watches cancelled")
}
