package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clients joining while the hub is broadcasting must still receive their
// catch-up payload first, and the catch-up write must never overlap a
// broadcast write on the same connection.
func TestWSHubRegisterSerializesWithBroadcast(t *testing.T) {
	hub := newWSHub()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.register(conn, []byte(`{"seq":0}`))
	}))
	defer srv.Close()

	// Broadcast continuously while clients connect.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.broadcast([]byte(`{"seq":1}`))
			}
		}
	}()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	for i := 0; i < 50; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)

		// The catch-up payload is written before the connection joins the
		// broadcast set, so it is always the first frame.
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"seq":0}`, string(msg))

		conn.Close()
	}

	close(stop)
	wg.Wait()
}

func TestWSHubRemove(t *testing.T) {
	hub := newWSHub()
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.register(conn, nil)
		hub.remove(conn)
		close(done)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	<-done
	hub.mu.Lock()
	assert.Empty(t, hub.conns)
	hub.mu.Unlock()
}
