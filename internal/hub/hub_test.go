package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyTargetUser(t *testing.T) {
	h := NewHub()
	alice := make(Client, 1)
	bob := make(Client, 1)
	h.Subscribe(1, alice)
	h.Subscribe(2, bob)

	message, err := Encode(EventNotification, map[string]string{"type": "follow"})
	require.NoError(t, err)
	require.NoError(t, h.PublishUser(context.Background(), 1, message))

	select {
	case msg := <-alice:
		ev, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, EventNotification, ev.Type)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		assert.Equal(t, "follow", payload["type"])
	default:
		t.Fatal("alice did not receive the event")
	}
	assert.Empty(t, bob)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewHub()
	client := make(Client)
	h.Subscribe(1, client)

	h.SendRaw(1, []byte("dropped"))
	assert.Equal(t, 1, h.Connected(1))
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	a := make(Client, 1)
	b := make(Client, 1)
	h.Subscribe(1, a)
	h.Subscribe(1, b)
	assert.Equal(t, 2, h.Connected(1))

	h.Unsubscribe(1, a)
	_, open := <-a
	assert.False(t, open, "unsubscribe closes the channel")
	assert.Equal(t, 1, h.Connected(1))

	h.Unsubscribe(1, b)
	h.Unsubscribe(1, b)
	assert.Zero(t, h.Connected(1))
}
