// Package credential supplies the bearer token the chat transport embeds in
// its endpoint URL. Sources are read on every connection attempt, so a
// refreshed token is picked up on the next reconnect.
package credential

import "os"

// Source is a synchronous, read-only token lookup.
// ok is false when no token is stored; that is not an error.
type Source interface {
	Token() (token string, ok bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (string, bool)

// Token implements Source.
func (f SourceFunc) Token() (string, bool) {
	return f()
}

// Static always returns the same token. An empty Static has no token.
type Static string

// Token implements Source.
func (s Static) Token() (string, bool) {
	return string(s), s != ""
}

// Env reads the named environment variable.
type Env string

// DefaultEnv is the variable consulted by the chat CLI.
const DefaultEnv Env = "CHATLINK_TOKEN"

// Token implements Source.
func (e Env) Token() (string, bool) {
	v, ok := os.LookupEnv(string(e))
	return v, ok && v != ""
}

// Chain returns the first token found.
type Chain []Source

// Token implements Source.
func (c Chain) Token() (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if tok, ok := s.Token(); ok {
			return tok, true
		}
	}
	return "", false
}
