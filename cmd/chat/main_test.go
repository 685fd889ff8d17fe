package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/chatlink/internal/client"
	"github.com/omochice/chatlink/internal/credential"
	"github.com/omochice/chatlink/internal/socket"
)

func newIdleTransport(t *testing.T) *client.Transport {
	t.Helper()
	offline := socket.DialerFunc(func(ctx context.Context, url string) (socket.Socket, error) {
		return nil, errors.New("offline")
	})
	tr := client.New(client.Config{Endpoint: "ws://127.0.0.1:1/ws/chat/"}, nil, offline)
	t.Cleanup(tr.Disconnect)
	return tr
}

func TestHandleLine_Quit(t *testing.T) {
	tr := newIdleTransport(t)
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "session.toml"))

	assert.True(t, handleLine(tr, store, "/quit"))
	assert.True(t, handleLine(tr, store, "/exit"))
	assert.False(t, handleLine(tr, store, ""))
	assert.False(t, handleLine(tr, store, "/status"))
}

func TestHandleLine_Token(t *testing.T) {
	tr := newIdleTransport(t)
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "session.toml"))

	assert.False(t, handleLine(tr, store, "/token fresh-token"))

	tok, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", tok)

	assert.False(t, handleLine(tr, store, "/logout"))
	_, ok = store.Token()
	assert.False(t, ok)
}

func TestHandleLine_SendWhileIdle(t *testing.T) {
	tr := newIdleTransport(t)
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "session.toml"))

	assert.NotPanics(t, func() {
		assert.False(t, handleLine(tr, store, "hello"))
	})
	assert.Equal(t, client.StateIdle, tr.State())
}
