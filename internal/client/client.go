// Package client implements the reconnecting chat transport.
package client

import "github.com/omochice/chatlink/pkg/protocol"

// Client defines the contract the chat view depends on.
// Transport is the only implementation; the view is tested against fakes.
type Client interface {
	Connect()
	Disconnect()
	Send(content string) error
	OnMessage(listener Listener)
	OnStateChange(hook StateHook)
	State() State
}

// Listener receives each decoded inbound frame.
type Listener func(msg protocol.Inbound)

// StateHook observes state transitions.
type StateHook func(state State)

var _ Client = (*Transport)(nil)
