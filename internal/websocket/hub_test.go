package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id int64, role string, buffer int) *Client {
	return &Client{UserID: id, UserRole: role, send: make(chan []byte, buffer)}
}

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient(1, "admin", 4)
	h.register <- c
	require.Eventually(t, func() bool { return h.IsUserConnected(1) },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.GetClientCount())

	h.unregister <- c
	require.Eventually(t, func() bool { return !h.IsUserConnected(1) },
		time.Second, 5*time.Millisecond)

	_, open := <-c.send
	assert.False(t, open, "send channel closes on unregister")
}

func TestHubEvictsSlowClientDuringRoleBroadcasts(t *testing.T) {
	h := NewHub()
	go h.Run()

	slow := newTestClient(1, "admin", 1)
	h.register <- slow
	require.Eventually(t, func() bool { return h.IsUserConnected(1) },
		time.Second, 5*time.Millisecond)

	// Fill the buffer so the next targeted delivery overflows and the hub
	// evicts the client while role broadcasts iterate the same map.
	slow.send <- []byte("backlog")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.BroadcastToRole("admin", TurnoEvent{Type: "turno_iniciado", TurnoID: 7})
			}
		}()
	}

	h.BroadcastToUser(1, TurnoEvent{Type: "punto_marcado", TurnoID: 7})
	wg.Wait()

	require.Eventually(t, func() bool { return !h.IsUserConnected(1) },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.GetClientCount())
}
