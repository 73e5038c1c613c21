package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil, false
	}
}

func TestHub_PublishReachesRegisteredClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := &Client{hub: hub, Send: make(chan []byte, 4)}
	b := &Client{hub: hub, Send: make(chan []byte, 4)}
	hub.Register <- a
	hub.Register <- b

	hub.Publish([]byte(`{"action":"event"}`))

	msg, ok := receive(t, a.Send)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"event"}`, string(msg))
	msg, ok = receive(t, b.Send)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"event"}`, string(msg))
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := &Client{hub: hub, Send: make(chan []byte, 1)}
	hub.Register <- c
	hub.Unregister <- c

	_, ok := receive(t, c.Send)
	assert.False(t, ok)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := &Client{hub: hub, Send: make(chan []byte, 1)}
	hub.Register <- c
	hub.Stop()

	_, ok := receive(t, c.Send)
	assert.False(t, ok)
}

func TestHub_JoinAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	c := &Client{hub: hub, Send: make(chan []byte, 1)}
	require.True(t, hub.Join(c))
	hub.Stop()

	joined := make(chan bool, 1)
	go func() { joined <- hub.Join(&Client{hub: hub, Send: make(chan []byte, 1)}) }()
	select {
	case ok := <-joined:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Join blocked on a stopped hub")
	}
}

func TestHub_PublishNilIsIgnored(t *testing.T) {
	hub := NewHub()
	hub.Publish(nil)
	assert.Len(t, hub.Broadcast, 0)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.Broadcast)+10; i++ {
		hub.Publish([]byte("x"))
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}

func TestNewEventMessage(t *testing.T) {
	uid := "u-1"
	raw := NewEventMessage(models.Event{ID: "e-1", Type: models.EventUserSignup, Level: "info", Message: "hi", UserID: &uid})

	var decoded struct {
		Action  string       `json:"action"`
		Payload models.Event `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, ActionEvent, decoded.Action)
	assert.Equal(t, "e-1", decoded.Payload.ID)
	assert.Equal(t, models.EventUserSignup, decoded.Payload.Type)
	require.NotNil(t, decoded.Payload.UserID)
	assert.Equal(t, "u-1", *decoded.Payload.UserID)
}
