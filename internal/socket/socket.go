// Package socket provides the duplex socket primitive the chat transport
// dials. Three websocket libraries are supported behind one interface.
package socket

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownDialer is returned by New for an unregistered dialer name.
var ErrUnknownDialer = errors.New("unknown dialer")

// Socket is one live duplex connection carrying text frames.
type Socket interface {
	// Read blocks until a whole frame arrives. A closed socket returns an error.
	Read(ctx context.Context) ([]byte, error)

	// Write sends data as a single text frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection. Pending reads return an error.
	Close() error
}

// Dialer opens a Socket to a ws:// or wss:// URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Socket, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, url string) (Socket, error) {
	return f(ctx, url)
}

const DefaultDialer = "nhooyr"

// MaxFrameSize caps a single inbound message on every dialer.
const MaxFrameSize = 1 << 20

var dialers = map[string]func() Dialer{
	"nhooyr":  func() Dialer { return NewNhooyrDialer() },
	"gobwas":  func() Dialer { return NewGobwasDialer() },
	"gorilla": func() Dialer { return NewGorillaDialer() },
}

// New returns the dialer registered under name. An empty name selects DefaultDialer.
func New(name string) (Dialer, error) {
	if name == "" {
		name = DefaultDialer
	}
	mk, ok := dialers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownDialer, name, Names())
	}
	return mk(), nil
}

// Names lists the registered dialer names in sorted order.
func Names() []string {
	names := make([]string, 0, len(dialers))
	for name := range dialers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
