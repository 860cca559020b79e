package common

import (
	"context"
	"net/http"
)

type contextKey int

// HttpClientKey overrides the *http.Client used for outgoing requests.
const HttpClientKey contextKey = iota

func HttpClient(ctx context.Context) *http.Client {
	if client, ok := ctx.Value(HttpClientKey).(*http.Client); ok && client != nil {
		return client
	}
	return http.DefaultClient
}
