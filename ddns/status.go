package ddns

import (
	"net/http"
	"sync/atomic"
)

// statusRecorder remembers the status of the last response that passed through it.
type statusRecorder struct {
	next http.RoundTripper
	last atomic.Int32
}

func (s *statusRecorder) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := s.next.RoundTrip(r)
	if resp != nil {
		s.last.Store(int32(resp.StatusCode))
	}
	return resp, err
}

func (s *statusRecorder) status() int {
	return int(s.last.Load())
}

func recordStatus(client *http.Client) (*http.Client, *statusRecorder) {
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	rec := &statusRecorder{next: next}
	clientCopy := *client
	clientCopy.Transport = rec
	return &clientCopy, rec
}
