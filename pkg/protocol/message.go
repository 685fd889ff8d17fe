// Package protocol defines the JSON wire format spoken with the chat endpoint.
package protocol

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

// ErrNotObject is returned when an inbound frame is valid JSON but not an object.
var ErrNotObject = errors.New("frame is not a JSON object")

// Kind classifies an inbound frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindChat
	KindError
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindChat:
		return "CHAT"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Envelope is the fixed wrapper around outbound content.
type Envelope struct {
	Message string `json:"message"`
}

// EncodeEnvelope wraps content into an Envelope and encodes it.
func EncodeEnvelope(content string) ([]byte, error) {
	data, err := json.Marshal(Envelope{Message: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// Inbound is a decoded inbound frame. Payload holds the raw mapping exactly
// as the server sent it; Kind is derived from the keys present.
type Inbound struct {
	Kind    Kind
	Payload map[string]any
}

// ChatMessage is the typed view of a KindChat frame.
type ChatMessage struct {
	Message string `mapstructure:"message"`
	ID      string `mapstructure:"id"`
	Role    string `mapstructure:"role"`
}

// ErrorMessage is the typed view of a KindError frame.
type ErrorMessage struct {
	Error string `mapstructure:"error"`
	Code  string `mapstructure:"code"`
}

// Decode decodes a JSON object frame.
func Decode(data []byte) (Inbound, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return Inbound{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if payload == nil {
		return Inbound{}, ErrNotObject
	}
	return Inbound{Kind: classify(payload), Payload: payload}, nil
}

// Chat returns the typed chat view. ok is false for other kinds.
func (in Inbound) Chat() (ChatMessage, bool) {
	var msg ChatMessage
	if in.Kind != KindChat {
		return msg, false
	}
	if err := weakDecode(in.Payload, &msg); err != nil {
		return msg, false
	}
	return msg, true
}

// Error returns the typed error view. ok is false for other kinds.
func (in Inbound) Error() (ErrorMessage, bool) {
	var msg ErrorMessage
	if in.Kind != KindError {
		return msg, false
	}
	if err := weakDecode(in.Payload, &msg); err != nil {
		return msg, false
	}
	return msg, true
}

func classify(payload map[string]any) Kind {
	if _, ok := payload["message"].(string); ok {
		return KindChat
	}
	if _, ok := payload["error"]; ok {
		return KindError
	}
	return KindUnknown
}

// weakDecode tolerates servers that send numeric ids or codes.
func weakDecode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
