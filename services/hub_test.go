package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(h *Hub, userID string, buffer int) *Client {
	c := &Client{userID: userID, hub: h, send: make(chan []byte, buffer)}
	h.addClient(c)
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case b := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(b, &ev))
		return ev
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestHubNotifyUser(t *testing.T) {
	h := NewHub()
	phone := testClient(h, "u1", 4)
	laptop := testClient(h, "u1", 4)
	other := testClient(h, "u2", 4)
	assert.Equal(t, 3, h.ClientCount())

	h.NotifyUser("u1", Event{Type: EventBalanceUpdated, Data: map[string]any{"balance": 10}})

	assert.Equal(t, EventBalanceUpdated, receive(t, phone).Type)
	assert.Equal(t, EventBalanceUpdated, receive(t, laptop).Type)
	assert.Len(t, other.send, 0)
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	a := testClient(h, "u1", 4)
	b := testClient(h, "u2", 4)

	h.Broadcast(Event{Type: EventPostCreated})
	assert.Equal(t, EventPostCreated, receive(t, a).Type)
	assert.Equal(t, EventPostCreated, receive(t, b).Type)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub()
	slow := testClient(h, "u1", 1)

	h.NotifyUser("u1", Event{Type: EventBalanceUpdated})
	h.NotifyUser("u1", Event{Type: EventBalanceUpdated})

	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, slow.closed)
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	c := testClient(h, "u1", 1)
	h.Close()
	assert.Equal(t, 0, h.ClientCount())
	assert.False(t, c.enqueue([]byte("x")))
	c.Close()
}
