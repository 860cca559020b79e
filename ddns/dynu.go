package ddns

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"curtsddns/common"
	"curtsddns/config"
	"curtsddns/log"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const maxReadDynu = 1024
const dynuQueryTimeout = 5 * time.Second

// dynu speaks the dyndns2 update protocol: the API key and secret go in basic auth and the
// record is addressed by hostname.
type dynu struct {
	key        string
	secret     string
	hostname   string
	endpoint   string
	nameserver string
	family     common.Family
}

func (d *dynu) Typename() string {
	return "dynu"
}

// CurrentRecord asks Dynu's authoritative nameserver, the update API has no read call.
func (d *dynu) CurrentRecord(ctx context.Context) (netip.Addr, error) {
	ctx = log.SWith(ctx, "action", "find", "domain", d.hostname, "nameserver", d.nameserver)

	qtype := dns.TypeA
	if d.family == common.IPv6 {
		qtype = dns.TypeAAAA
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(d.hostname), qtype)

	c := &dns.Client{Timeout: dynuQueryTimeout}
	r, _, err := c.ExchangeContext(ctx, m, d.nameserver)
	if err != nil {
		log.S(ctx).Warnw("query failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("%w: dns query failed: %w", common.ErrNetwork, err)
	}

	switch r.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return netip.Addr{}, fmt.Errorf("%w: %s does not exist", common.ErrNoRecord, d.hostname)
	default:
		log.S(ctx).Warnw("query rejected", "rcode", dns.RcodeToString[r.Rcode])
		return netip.Addr{}, fmt.Errorf("%w: dns query rejected: %s", common.ErrNetwork, dns.RcodeToString[r.Rcode])
	}

	for _, rr := range r.Answer {
		var ip net.IP
		switch rr := rr.(type) {
		case *dns.A:
			ip = rr.A
		case *dns.AAAA:
			ip = rr.AAAA
		default:
			continue
		}

		if addr, ok := netip.AddrFromSlice(ip); ok {
			addr = addr.Unmap()
			log.S(ctx).Debugw("found record", log.Addr(addr))
			return addr, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("%w: no %s record for %s", common.ErrNoRecord, dns.TypeToString[qtype], d.hostname)
}

func (d *dynu) SetRecord(ctx context.Context, addr netip.Addr) error {
	ctx = log.SWith(ctx, "action", "write", "domain", d.hostname, "address", addr)

	u, err := url.Parse(d.endpoint)
	if err != nil {
		return fmt.Errorf("%w: bad endpoint: %w", common.ErrConfig, err)
	}

	q := u.Query()
	q.Set("hostname", d.hostname)
	if addr.Is4() {
		q.Set("myip", addr.String())
	} else {
		q.Set("myipv6", addr.String())
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		log.S(ctx).Errorw("new request failed", zap.Error(err))
		return fmt.Errorf("new request failed: %w", err)
	}
	req.SetBasicAuth(d.key, d.secret)
	req.Header.Set("User-Agent", "curtsddns")

	resp, err := common.HttpClient(ctx).Do(req)
	if err != nil {
		log.S(ctx).Warnw("connection failed", zap.Error(err))
		return fmt.Errorf("%w: connection failed: %w", common.ErrNetwork, err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.S(ctx).Warnw("close body failed", zap.Error(err))
		}
	}(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadDynu))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return fmt.Errorf("%w: failed receiving response: %w", common.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrAuth, resp.Status)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRateLimit, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.S(ctx).Warnw("unexpected status", "status", resp.StatusCode, log.ByteField("body", data))
		return fmt.Errorf("%w: unexpected status %s", common.ErrNetwork, resp.Status)
	}

	return d.checkAnswer(ctx, data)
}

// checkAnswer interprets the dyndns2 return code in the body.
func (d *dynu) checkAnswer(ctx context.Context, data []byte) error {
	fields := strings.Fields(string(data))
	code := ""
	if len(fields) > 0 {
		code = strings.ToLower(fields[0])
	}

	switch code {
	case "good", "nochg":
		log.S(ctx).Debugw("update accepted", "answer", code)
		return nil
	case "badauth", "nohost", "notfqdn", "!donator", "badagent":
		return fmt.Errorf("%w: provider answered %q", common.ErrAuth, code)
	case "abuse":
		return fmt.Errorf("%w: provider answered %q", common.ErrRateLimit, code)
	default:
		log.S(ctx).Warnw("unexpected answer", log.ByteField("body", data))
		return fmt.Errorf("%w: provider answered %q", common.ErrNetwork, strings.TrimSpace(string(data)))
	}
}

func newDynu(ctx context.Context, c *config.Config) (Interface, error) {
	d := c.Dynu

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultDynuEndpoint
	}

	nameserver := d.Nameserver
	if nameserver == "" {
		nameserver = config.DefaultDynuNS
	}
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}

	if _, err := url.Parse(endpoint); err != nil {
		log.S(ctx).Errorw("bad endpoint", "endpoint", endpoint, zap.Error(err))
		return nil, fmt.Errorf("%w: bad endpoint: %w", common.ErrConfig, err)
	}

	return &dynu{
		key:        d.APIKey,
		secret:     d.APISecret,
		hostname:   d.Hostname,
		endpoint:   endpoint,
		nameserver: nameserver,
		family:     c.Resolver.Family,
	}, nil
}
