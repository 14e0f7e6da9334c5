package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when a source has no token to offer.
var ErrNoToken = errors.New("no access token")

// HeaderSource supplies headers to attach to a catalogue request.
type HeaderSource interface {
	Headers(ctx context.Context) (http.Header, error)
}

// HeaderFunc adapts a function to HeaderSource.
type HeaderFunc func(ctx context.Context) (http.Header, error)

// Headers implements HeaderSource.
func (f HeaderFunc) Headers(ctx context.Context) (http.Header, error) {
	return f(ctx)
}

// None adds no headers.
var None HeaderSource = HeaderFunc(func(context.Context) (http.Header, error) {
	return http.Header{}, nil
})

// Static always sends the given bearer token.
func Static(token string) HeaderSource {
	token = strings.TrimSpace(token)
	return HeaderFunc(func(context.Context) (http.Header, error) {
		if token == "" {
			return nil, ErrNoToken
		}
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		return h, nil
	})
}

// Bearer sends the token of src. The source is wrapped in
// oauth2.ReuseTokenSource so a valid token is not fetched twice.
func Bearer(src oauth2.TokenSource) HeaderSource {
	reuse := oauth2.ReuseTokenSource(nil, src)
	return HeaderFunc(func(context.Context) (http.Header, error) {
		tok, err := reuse.Token()
		if err != nil {
			return nil, fmt.Errorf("obtain access token: %w", err)
		}
		if tok.AccessToken == "" {
			return nil, ErrNoToken
		}
		h := http.Header{}
		h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
		return h, nil
	})
}
