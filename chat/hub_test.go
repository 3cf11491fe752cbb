package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := newClient(hub, nil, "order:1", "u1")
	b := newClient(hub, nil, "order:1", "u2")
	other := newClient(hub, nil, "order:2", "u3")
	hub.register <- a
	hub.register <- b
	hub.register <- other

	hub.Broadcast("order:1", []byte("hello"))

	assert.Equal(t, "hello", string(recv(t, a)))
	assert.Equal(t, "hello", string(recv(t, b)))

	select {
	case data := <-other.send:
		t.Fatalf("client in another room received %q", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := newClient(hub, nil, "order:1", "u1")
	hub.register <- c
	hub.unregister <- c

	select {
	case _, open := <-c.send:
		assert.False(t, open, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// Broadcasting into the now-empty room must not panic or block.
	hub.Broadcast("order:1", []byte("late"))
}

func TestHubStopDisconnectsEveryone(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newClient(hub, nil, "order:1", "u1")
	b := newClient(hub, nil, "appointment:7", "u2")
	hub.register <- a
	hub.register <- b

	hub.Stop()

	for _, c := range []*Client{a, b} {
		select {
		case _, open := <-c.send:
			require.False(t, open)
		case <-time.After(time.Second):
			t.Fatal("send channel not closed on stop")
		}
	}

	// Stop is idempotent and Broadcast after stop is a no-op.
	hub.Stop()
	hub.Broadcast("order:1", []byte("x"))
}

func TestDetachAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := newClient(hub, nil, "order:1", "u1")
	hub.register <- c

	hub.Stop()

	returned := make(chan struct{})
	go func() {
		c.detach()
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after hub stop")
	}
}
