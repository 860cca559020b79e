package sources

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"reflect"

	"curtsddns/common"
	"curtsddns/log"

	"go.uber.org/zap"
)

type transportDialer func(ctx context.Context, network, addr string) (net.Conn, error)

func wrapClientDialer(ctx context.Context, client *http.Client, wrapperBuilder func(upstream transportDialer) transportDialer) (*http.Client, error) {
	if client == nil {
		client = http.DefaultClient
	}

	transport := http.DefaultTransport.(*http.Transport)
	if client.Transport != nil {
		t, ok := client.Transport.(*http.Transport)
		if !ok {
			log.S(ctx).Errorw("found unknown custom http.Client.Transport",
				"transport_type", reflect.TypeOf(client.Transport).String())
			return nil, fmt.Errorf("unknown custom http.Client.Transport")
		}

		transport = t
	}

	transport = transport.Clone()
	transport.DialContext = wrapperBuilder(transport.DialContext)

	if transport.DialTLSContext != nil {
		transport.DialTLSContext = wrapperBuilder(transport.DialTLSContext)
	}

	clientCopy := *client
	clientCopy.Transport = transport
	return &clientCopy, nil
}

// familyDialer pins "tcp" and "udp" dials to the address family.
func familyDialer(family common.Family) func(upstream transportDialer) transportDialer {
	return func(upstream transportDialer) transportDialer {
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			switch family {
			case common.IPv4:
				network += "4"
			case common.IPv6:
				network += "6"
			}

			return upstream(ctx, network, addr)
		}
	}
}

// fetch performs a GET and returns at most limit bytes of a 2xx body.
func fetch(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.S(ctx).Errorw("new request failed", zap.Error(err))
		return nil, fmt.Errorf("new request failed: %w", err)
	}
	req.Header.Set("User-Agent", "curtsddns")
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.S(ctx).Warnw("connection failed", zap.Error(err))
		return nil, fmt.Errorf("%w: connection failed: %w", common.ErrNetwork, err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.S(ctx).Warnw("close body failed", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.S(ctx).Warnw("unexpected status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %s", common.ErrNetwork, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: failed receiving response: %w", common.ErrNetwork, err)
	}

	return data, nil
}

// checkAddr rejects zoned addresses and addresses of the wrong family.
func checkAddr(ctx context.Context, addr netip.Addr, family common.Family) (netip.Addr, error) {
	addr = addr.Unmap()

	switch {
	case addr.Zone() != "":
		log.S(ctx).Warnw("found zone in IP", log.Addr(addr), "zone", addr.Zone())
		return netip.Addr{}, fmt.Errorf("%w: unsupported: found zone in IP", common.ErrParse)
	case addr.Is4() && family == common.IPv4, addr.Is6() && family == common.IPv6:
		return addr, nil
	default:
		log.S(ctx).Warnw("mismatched IP family", log.Addr(addr), "family", family)
		return netip.Addr{}, fmt.Errorf("%w: got %s, want %s", common.ErrParse, addr, family)
	}
}
