package socket

import (
	"context"
	"fmt"

	"nhooyr.io/websocket"
)

// NhooyrDialer dials with nhooyr.io/websocket.
type NhooyrDialer struct {
	opts *websocket.DialOptions
}

// NewNhooyrDialer creates a dialer with default options.
func NewNhooyrDialer() *NhooyrDialer {
	return &NhooyrDialer{}
}

// Dial implements Dialer.
func (d *NhooyrDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, d.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	conn.SetReadLimit(MaxFrameSize)
	return &nhooyrSocket{conn: conn}, nil
}

type nhooyrSocket struct {
	conn *websocket.Conn
}

func (s *nhooyrSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *nhooyrSocket) Write(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *nhooyrSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
