package chattest

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Peer is one accepted client connection.
type Peer struct {
	Conn  *websocket.Conn
	Token string
}

// Hub tracks connected peers.
type Hub struct {
	peers map[*Peer]bool
	mu    sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		peers: make(map[*Peer]bool),
	}
}

// Register adds a peer to the hub.
func (h *Hub) Register(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = true
}

// Unregister removes a peer from the hub.
func (h *Hub) Unregister(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, p)
}

// PeerCount returns number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast writes data as a text frame to every peer. It returns the
// number of peers written to.
func (h *Hub) Broadcast(data []byte) int {
	n := 0
	for _, p := range h.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := p.Conn.Write(ctx, websocket.MessageText, data); err == nil {
			n++
		}
		cancel()
	}
	return n
}

// CloseAll closes every peer connection with status and waits for the
// close handshakes to finish.
func (h *Hub) CloseAll(status websocket.StatusCode, reason string) {
	var wg sync.WaitGroup
	for _, p := range h.snapshot() {
		wg.Add(1)
		go func(p *Peer) {
			defer wg.Done()
			_ = p.Conn.Close(status, reason)
		}(p)
	}
	wg.Wait()
}

func (h *Hub) snapshot() []*Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	peers := make([]*Peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	return peers
}
