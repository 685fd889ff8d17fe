package client

import (
	"fmt"
	"net/url"
)

// TokenParam is the query parameter carrying the bearer token.
const TokenParam = "token"

// Endpoint returns base with the token query parameter set. Existing
// parameters are kept; an empty token still emits "token=".
func Endpoint(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing scheme or host", base)
	}

	q := u.Query()
	q.Set(TokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
