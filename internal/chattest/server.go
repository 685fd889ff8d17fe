// Package chattest runs an in-process chat endpoint for tests. It accepts
// websocket connections on /ws/chat/, records the token each client
// presents and every frame it sends, and can broadcast to or drop clients.
package chattest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"nhooyr.io/websocket"

	"github.com/omochice/chatlink/pkg/protocol"
)

// Path is the websocket route served.
const Path = "/ws/chat/"

// Frame is one frame received from a client.
type Frame struct {
	Token string
	Data  []byte
}

// Server is a websocket chat endpoint backed by httptest.
type Server struct {
	srv    *httptest.Server
	hub    *Hub
	frames chan Frame

	mu     sync.Mutex
	tokens []string
	reject bool
	echo   bool
}

// NewServer starts a server. Call Close when done.
func NewServer() *Server {
	s := &Server{
		hub:    NewHub(),
		frames: make(chan Frame, 64),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWebSocket)
	s.srv = httptest.NewServer(mux)
	return s
}

// URL returns the ws:// endpoint without a token.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + Path
}

// Close drops every client and stops the server.
func (s *Server) Close() {
	s.hub.CloseAll(websocket.StatusGoingAway, "server shutdown")
	s.srv.Close()
}

// SetReject makes the server answer upgrades with 401 while on.
func (s *Server) SetReject(on bool) {
	s.mu.Lock()
	s.reject = on
	s.mu.Unlock()
}

// SetEcho makes the server reply to each envelope with
// {"message": <content>, "role": "assistant"}.
func (s *Server) SetEcho(on bool) {
	s.mu.Lock()
	s.echo = on
	s.mu.Unlock()
}

// Tokens returns the token of every accepted or rejected upgrade, in order.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// Received returns frames sent by clients. Frames beyond the buffer are dropped.
func (s *Server) Received() <-chan Frame {
	return s.frames
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.hub.PeerCount()
}

// Broadcast encodes v as JSON and sends it to every client.
func (s *Server) Broadcast(v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return s.hub.Broadcast(data), nil
}

// BroadcastRaw sends data unchanged to every client.
func (s *Server) BroadcastRaw(data []byte) int {
	return s.hub.Broadcast(data)
}

// DropAll closes every client connection from the server side.
func (s *Server) DropAll() {
	s.hub.CloseAll(websocket.StatusGoingAway, "dropped")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	reject := s.reject
	s.mu.Unlock()

	if reject {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	peer := &Peer{Conn: conn, Token: token}
	s.hub.Register(peer)
	defer s.hub.Unregister(peer)

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			return
		}

		select {
		case s.frames <- Frame{Token: token, Data: data}:
		default:
		}

		s.mu.Lock()
		echo := s.echo
		s.mu.Unlock()
		if echo {
			s.reply(conn, data)
		}
	}
}

func (s *Server) reply(conn *websocket.Conn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	out, err := json.Marshal(map[string]string{"message": env.Message, "role": "assistant"})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, out)
}
