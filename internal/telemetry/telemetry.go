// Package telemetry is the fixed-capacity ring buffer of FacilityState
// snapshots, with an optional JSONL mirror and live websocket broadcast
// (spec.md §4.14, §4.20). The broadcaster is adapted from the teacher
// pack's dashboard Broadcaster (Kunal1522-GPU-Aware-Batch-Router
// pkg/router/broadcast.go), retargeted to push facility.State frames.
package telemetry

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gpudc/simulator/internal/facility"
)

// Buffer is a ring buffer of fixed capacity; the oldest snapshot is dropped
// on insert once full.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	states   []facility.State

	sink        *bufio.Writer
	sinkFile    *os.File
	broadcaster *Broadcaster
}

// New creates a Buffer with the given capacity. If sinkPath is non-empty,
// every appended state is also mirrored as one JSON line to that file,
// append-only, preserving insertion order.
func New(capacity int, sinkPath string) (*Buffer, error) {
	b := &Buffer{capacity: capacity, states: make([]facility.State, 0, capacity)}
	if sinkPath == "" {
		return b, nil
	}
	f, err := os.OpenFile(sinkPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	b.sinkFile = f
	b.sink = bufio.NewWriter(f)
	return b, nil
}

// AttachBroadcaster wires a live websocket feed: every appended state is
// also pushed as a JSON text frame to connected clients.
func (b *Buffer) AttachBroadcaster(br *Broadcaster) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcaster = br
}

// Append records one state, dropping the oldest if the buffer is full, then
// mirrors it to the JSONL sink and live feed if configured.
func (b *Buffer) Append(s facility.State) {
	b.mu.Lock()
	if len(b.states) >= b.capacity {
		b.states = b.states[1:]
	}
	b.states = append(b.states, s)
	sink := b.sink
	br := b.broadcaster
	b.mu.Unlock()

	if sink != nil {
		data, err := json.Marshal(s)
		if err == nil {
			sink.Write(data)
			sink.WriteByte('\n')
			sink.Flush()
		} else {
			logrus.Warnf("telemetry: failed to marshal state for sink: %v", err)
		}
	}
	if br != nil {
		br.Broadcast(s)
	}
}

// All returns a snapshot of every buffered state, oldest first.
func (b *Buffer) All() []facility.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]facility.State, len(b.states))
	copy(out, b.states)
	return out
}

// Latest returns the most recently appended state, or the zero value and
// false if the buffer is empty.
func (b *Buffer) Latest() (facility.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		return facility.State{}, false
	}
	return b.states[len(b.states)-1], true
}

// Reset clears the buffer, for Simulator.reset(). The JSONL sink and
// broadcaster are left attached across a reset.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = b.states[:0]
}

// Close flushes and closes the JSONL sink, if one is configured.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sink == nil {
		return nil
	}
	b.sink.Flush()
	return b.sinkFile.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Broadcaster pushes each tick's FacilityState to connected dashboard
// clients over WebSocket.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]bool)}
}

// HandleWS is the WebSocket upgrade handler for the live feed endpoint.
func (b *Broadcaster) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("telemetry: websocket upgrade failed: %v", err)
		return
	}

	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.clients, conn)
			b.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one state to every connected client, dropping any that
// error.
func (b *Broadcaster) Broadcast(s facility.State) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(b.clients, conn)
		}
	}
}
