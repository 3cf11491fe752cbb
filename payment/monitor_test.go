package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"meridia/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway replays a scripted sequence of status answers.
type fakeGateway struct {
	mu       sync.Mutex
	statuses []string
	errs     []error
	calls    int
}

func (f *fakeGateway) Initialize(context.Context, InitRequest) (InitResult, error) {
	return InitResult{}, errors.New("not used")
}

func (f *fakeGateway) Status(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.statuses) {
		return f.statuses[i], nil
	}
	return StatusPending, nil
}

func (f *fakeGateway) Verify(context.Context, string) (VerifyResult, error) {
	return VerifyResult{Status: StatusSuccess}, nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastMonitor(gw Gateway, onResult func(Result)) *Monitor {
	return &Monitor{
		Gateway:  gw,
		Grace:    5 * time.Millisecond,
		Poll:     5 * time.Millisecond,
		Ceiling:  500 * time.Millisecond,
		OnResult: onResult,
	}
}

func runWatch(t *testing.T, m *Monitor, signalReturn bool) <-chan Result {
	t.Helper()
	results := make(chan Result, 1)
	m.OnResult = func(r Result) { results <- r }

	returned := make(chan struct{})
	go m.Watch(context.Background(), "tx-1", models.PendingOrderID("draft-1"), returned)
	if signalReturn {
		close(returned)
	}
	return results
}

func TestWatchResolvesOnThirdPoll(t *testing.T) {
	gw := &fakeGateway{statuses: []string{StatusPending, StatusPending, StatusSuccess}}
	m := fastMonitor(gw, nil)

	results := runWatch(t, m, true)

	select {
	case res := <-results:
		assert.Equal(t, StateSucceeded, res.State)
		assert.NoError(t, res.Err)
		assert.Equal(t, 3, gw.callCount())
	case <-time.After(time.Second):
		t.Fatal("watch did not resolve")
	}
}

func TestWatchReportsGatewayFailure(t *testing.T) {
	gw := &fakeGateway{statuses: []string{StatusPending, StatusFailed}}
	m := fastMonitor(gw, nil)

	results := runWatch(t, m, true)

	select {
	case res := <-results:
		assert.Equal(t, StateFailed, res.State)
		assert.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("watch did not resolve")
	}
}

func TestWatchStopsOnHardError(t *testing.T) {
	boom := errors.New("gateway unreachable")
	gw := &fakeGateway{errs: []error{boom}}
	m := fastMonitor(gw, nil)

	results := runWatch(t, m, true)

	select {
	case res := <-results:
		assert.Equal(t, StateFailed, res.State)
		assert.ErrorIs(t, res.Err, boom)
		assert.Equal(t, 1, gw.callCount())
	case <-time.After(time.Second):
		t.Fatal("watch did not resolve")
	}
}

func TestWatchTimesOutWithoutReturn(t *testing.T) {
	gw := &fakeGateway{}
	m := fastMonitor(gw, nil)
	m.Ceiling = 20 * time.Millisecond

	results := runWatch(t, m, false)

	select {
	case res := <-results:
		assert.Equal(t, StateTimedOut, res.State)
		assert.Zero(t, gw.callCount(), "no polls before the buyer returns")
	case <-time.After(time.Second):
		t.Fatal("watch did not time out")
	}
}

func TestWatchNoPollingBeforeReturn(t *testing.T) {
	gw := &fakeGateway{statuses: []string{StatusSuccess}}
	m := fastMonitor(gw, nil)

	results := make(chan Result, 1)
	m.OnResult = func(r Result) { results <- r }
	returned := make(chan struct{})
	go m.Watch(context.Background(), "tx-1", "draft-1", returned)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, gw.callCount())

	close(returned)
	select {
	case res := <-results:
		assert.Equal(t, StateSucceeded, res.State)
	case <-time.After(time.Second):
		t.Fatal("watch did not resolve after return")
	}
}

func TestWatchCancelledDeliversNothing(t *testing.T) {
	gw := &fakeGateway{}
	m := fastMonitor(gw, nil)

	results := make(chan Result, 1)
	m.OnResult = func(r Result) { results <- r }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, "tx-1", "draft-1", make(chan struct{}))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not exit on cancel")
	}
	select {
	case res := <-results:
		t.Fatalf("unexpected result %v", res)
	default:
	}
}

func TestRegistrySignalAndCancel(t *testing.T) {
	gw := &fakeGateway{statuses: []string{StatusSuccess}}
	m := fastMonitor(gw, nil)
	results := make(chan Result, 1)
	m.OnResult = func(r Result) { results <- r }

	reg := NewRegistry()
	reg.Start(m, "tx-1", "draft-1")

	assert.False(t, reg.SignalReturned("tx-unknown"))
	require.True(t, reg.SignalReturned("tx-1"))
	// Duplicate signals are harmless.
	reg.SignalReturned("tx-1")

	select {
	case res := <-results:
		assert.Equal(t, StateSucceeded, res.State)
	case <-time.After(time.Second):
		t.Fatal("watch did not resolve")
	}

	// The watch unregisters itself on completion.
	assert.Eventually(t, func() bool {
		return !reg.Cancel("tx-1")
	}, time.Second, 10*time.Millisecond)
}

func TestRegistryCancelStopsWatch(t *testing.T) {
	gw := &fakeGateway{}
	m := fastMonitor(gw, nil)
	results := make(chan Result, 1)
	m.OnResult = func(r Result) { results <- r }

	reg := NewRegistry()
	reg.Start(m, "tx-1", "draft-1")
	require.True(t, reg.Cancel("tx-1"))

	select {
	case res := <-results:
		t.Fatalf("unexpected result %v", res)
	case <-time.After(50 * time.Millisecond):
	}
}
