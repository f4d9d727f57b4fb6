package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func TestPublisherDeliversLocallyWithoutRedis(t *testing.T) {
	hub := startHub(t)
	pub := NewPublisher(nil, hub, discard())

	alice := uuid.New()
	bob := uuid.New()
	aliceConn := &Client{ID: "a1", UserID: alice, Send: make(chan []byte, 4)}
	bobConn := &Client{ID: "b1", UserID: bob, Send: make(chan []byte, 4)}
	hub.RegisterClient(aliceConn)
	hub.RegisterClient(bobConn)
	require.Eventually(t, func() bool { return hub.Connected(alice) == 1 && hub.Connected(bob) == 1 }, time.Second, 10*time.Millisecond)

	pub.Notify(context.Background(), []uuid.UUID{alice, alice, uuid.Nil}, "job_card.status_changed", map[string]string{"status": "in-progress"})

	select {
	case raw := <-aliceConn.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		assert.Equal(t, "job_card.status_changed", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("alice did not receive the event")
	}

	assert.Empty(t, aliceConn.Send, "duplicate recipients must be collapsed")
	assert.Empty(t, bobConn.Send)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := &Client{ID: "c1", UserID: uuid.New(), Send: make(chan []byte, 1)}
	hub.RegisterClient(c)
	hub.UnregisterClient(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Zero(t, hub.Connected(c.UserID))
}

func TestSubscribeWithoutRedisReturnsOnCancel(t *testing.T) {
	pub := NewPublisher(nil, NewHub(discard()), discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, pub.Subscribe(ctx))
}

func TestRegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	c := &Client{ID: "late", UserID: uuid.New(), Send: make(chan []byte, 1)}
	assert.False(t, hub.RegisterClient(c))
	hub.UnregisterClient(c)
}
