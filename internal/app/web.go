// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gnss_computer/internal/config"
	"github.com/relabs-tech/gnss_computer/internal/gnss"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsHub fans fused-position updates out to the connected WebSocket clients.
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[*websocket.Conn]struct{})}
}

// register writes the optional catch-up payload and adds the connection while
// holding the hub lock. gorilla/websocket allows only one concurrent writer
// per connection, so the catch-up write must serialize with broadcast.
func (h *wsHub) register(conn *websocket.Conn, catchUp []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if catchUp != nil {
		if err := conn.WriteMessage(websocket.TextMessage, catchUp); err != nil {
			conn.Close()
			return
		}
	}
	h.conns[conn] = struct{}{}
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcast writes the payload to every client, dropping the ones that fail.
func (h *wsHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// RunWeb subscribes to the GNSS topics and serves the latest fused position
// and constellation snapshot over HTTP, plus a WebSocket stream of fused
// updates.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu           sync.RWMutex
		lastFused    gnss.FusedPosition
		haveFused    bool
		lastSnapshot gnss.Snapshot
		haveSnapshot bool
	)
	hub := newWSHub()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to fused positions; each update is kept for the REST API
	// and broadcast to WebSocket clients.
	token := client.Subscribe(cfg.TopicFused, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gnss.FusedPosition
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("MQTT fused payload unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastFused = f
		haveFused = true
		mu.Unlock()

		hub.broadcast(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicFused)

	token = client.Subscribe(cfg.TopicConstellations, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s gnss.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("MQTT snapshot payload unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastSnapshot = s
		haveSnapshot = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicConstellations)

	// 3) JSON API endpoints
	http.HandleFunc("/api/position", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveFused {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastFused); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})

	http.HandleFunc("/api/constellations", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveSnapshot {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastSnapshot); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})

	// 4) WebSocket stream of fused positions
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade error: %v", err)
			return
		}
		// Push the last known position immediately so a fresh client does
		// not wait for the next fusion cycle.
		var catchUp []byte
		mu.RLock()
		if haveFused {
			catchUp, _ = json.Marshal(lastFused)
		}
		mu.RUnlock()
		hub.register(conn, catchUp)

		// Drain client messages until close so we notice disconnects.
		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
