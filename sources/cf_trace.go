package sources

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"curtsddns/common"
	"curtsddns/log"
)

const maxReadCloudflareTrace = 1024
const defaultCloudflareDomain = "www.cloudflare.com"

// cloudflareTrace reads the "ip=" line of /cdn-cgi/trace on any Cloudflare fronted host.
type cloudflareTrace struct {
	host         string
	forceAddress string
	scheme       string
	family       common.Family
	timeout      time.Duration
}

func (s *cloudflareTrace) Typename() string {
	return "cf-trace"
}

func (s *cloudflareTrace) wrapDialer(upstream transportDialer) transportDialer {
	pinned := familyDialer(s.family)(upstream)
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if s.forceAddress != "" {
			_, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			addr = net.JoinHostPort(s.forceAddress, port)
		}

		return pinned(ctx, network, addr)
	}
}

func (s *cloudflareTrace) Lookup(ctx context.Context) (result netip.Addr, err error) {
	ctx = log.SWith(ctx,
		"host", s.host,
		"family", s.family,
		"force_addr", s.forceAddress,
		"timeout", s.timeout)

	client, err := wrapClientDialer(ctx, common.HttpClient(ctx), s.wrapDialer)
	if err != nil {
		return netip.Addr{}, err
	}

	defer func() {
		if err == nil {
			log.S(ctx).Debugw("got ip", log.Addr(result))
		}
	}()

	if s.timeout > 0 {
		tCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		ctx = tCtx
	}

	data, err := fetch(ctx, client, fmt.Sprintf("%s://%s/cdn-cgi/trace", s.scheme, s.host), maxReadCloudflareTrace)
	if err != nil {
		return netip.Addr{}, err
	}

	ipString := parseTrace(data)
	if ipString == "" {
		log.S(ctx).Warnw("no IP found in response", log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("%w: no IP found in response", common.ErrParse)
	}

	nip, err := netip.ParseAddr(ipString)
	if err != nil {
		log.S(ctx).Warnw("found bad IP", "ip", ipString)
		return netip.Addr{}, fmt.Errorf("%w: found bad IP: %w", common.ErrParse, err)
	}

	return checkAddr(ctx, nip, s.family)
}

func parseTrace(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "ip="); ok {
			return v
		}
	}
	return ""
}

func newCloudflareTrace(ctx context.Context, spec Spec) (Interface, error) {
	host, isIP := common.DetectNormalizeAddr(spec.URL.Hostname())
	s := &cloudflareTrace{
		host:    host,
		scheme:  "https",
		family:  spec.Family,
		timeout: spec.Timeout,
	}

	// Cloudflare also answers plain HTTP, e.g. cftrace://1.1.1.1?scheme=http
	if spec.URL.Query().Get("scheme") == "http" {
		s.scheme = "http"
	}

	if isIP {
		s.forceAddress = s.host
		s.host = defaultCloudflareDomain
	}

	if port := spec.URL.Port(); port != "" {
		s.host = net.JoinHostPort(s.host, port)
	}

	return s, nil
}
