package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/run-contest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestPublish_DeliversToContestRoomOnly(t *testing.T) {
	h, _ := newTestHub(t)

	a := NewClient(h, nil, RoomFor("0xa"))
	b := NewClient(h, nil, RoomFor("0xb"))
	h.Register(a)
	h.Register(b)
	require.Eventually(t, func() bool {
		return h.ClientCount(RoomFor("0xa")) == 1 && h.ClientCount(RoomFor("0xb")) == 1
	}, time.Second, 5*time.Millisecond)

	h.Publish(models.ContestEvent{
		Type:    models.EventContestStarted,
		Contest: "0xa",
	})

	select {
	case msg := <-a.Messages():
		var got models.ContestEvent
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, models.EventContestStarted, got.Type)
		assert.Equal(t, models.Address("0xa"), got.Contest)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	select {
	case <-b.Messages():
		t.Fatal("message leaked into another room")
	default:
	}
}

func TestUnregister_ClosesQueueAndDropsEmptyRoom(t *testing.T) {
	h, _ := newTestHub(t)

	c := NewClient(h, nil, RoomFor("0xa"))
	h.Register(c)
	h.Unregister(c)

	_, open := <-c.Messages()
	assert.False(t, open)
	assert.Eventually(t, func() bool { return h.ClientCount(RoomFor("0xa")) == 0 }, time.Second, 5*time.Millisecond)

	// Publishing to a room nobody listens to is a no-op.
	h.Publish(models.ContestEvent{Type: models.EventContestEnded, Contest: "0xa"})
}

func TestRun_ClosesClientsOnShutdown(t *testing.T) {
	h, cancel := newTestHub(t)

	c := NewClient(h, nil, RoomFor("0xa"))
	h.Register(c)
	cancel()

	select {
	case _, open := <-c.Messages():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
}

func TestRegisterAndUnregister_ReturnAfterShutdown(t *testing.T) {
	h, cancel := newTestHub(t)

	joined := NewClient(h, nil, RoomFor("0xa"))
	h.Register(joined)
	cancel()

	late := NewClient(h, nil, RoomFor("0xa"))
	returned := make(chan struct{})
	go func() {
		h.Unregister(joined)
		h.Register(late)
		h.Unregister(late)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
	_, open := <-late.Messages()
	assert.False(t, open)
	assert.Equal(t, 0, h.ClientCount(RoomFor("0xa")))
}
