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

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const defaultEchoName = "myip.opendns.com"

// dnsEcho asks a resolver that answers with the address the query came from,
// e.g. dns://resolver1.opendns.com/myip.opendns.com or
// dns://ns1.google.com/o-o.myaddr.l.google.com?type=TXT
type dnsEcho struct {
	server  string
	name    string
	qtype   uint16
	family  common.Family
	timeout time.Duration
}

func (s *dnsEcho) Typename() string {
	return "dns"
}

func (s *dnsEcho) Lookup(ctx context.Context) (result netip.Addr, err error) {
	ctx = log.SWith(ctx,
		"server", s.server,
		"name", s.name,
		"qtype", dns.TypeToString[s.qtype],
		"family", s.family)

	defer func() {
		if err == nil {
			log.S(ctx).Debugw("got ip", log.Addr(result))
		}
	}()

	c := &dns.Client{Net: "udp4", Timeout: s.timeout}
	if s.family == common.IPv6 {
		c.Net = "udp6"
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(s.name), s.qtype)

	r, _, err := c.ExchangeContext(ctx, m, s.server)
	if err != nil {
		log.S(ctx).Warnw("query failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("%w: dns query failed: %w", common.ErrNetwork, err)
	}

	if r.Rcode != dns.RcodeSuccess {
		log.S(ctx).Warnw("query rejected", "rcode", dns.RcodeToString[r.Rcode])
		return netip.Addr{}, fmt.Errorf("%w: dns query rejected: %s", common.ErrNetwork, dns.RcodeToString[r.Rcode])
	}

	for _, rr := range r.Answer {
		var text string
		switch rr := rr.(type) {
		case *dns.A:
			text = rr.A.String()
		case *dns.AAAA:
			text = rr.AAAA.String()
		case *dns.TXT:
			if len(rr.Txt) > 0 {
				text = rr.Txt[0]
			}
		default:
			continue
		}

		addr, err := netip.ParseAddr(text)
		if err != nil {
			log.S(ctx).Warnw("found bad IP", "answer", rr.String())
			continue
		}

		return checkAddr(ctx, addr, s.family)
	}

	log.S(ctx).Warnw("no IP found in answer", "answers", len(r.Answer))
	return netip.Addr{}, fmt.Errorf("%w: no IP found in dns answer", common.ErrParse)
}

func newDNS(ctx context.Context, spec Spec) (Interface, error) {
	server := spec.URL.Host
	if spec.URL.Port() == "" {
		server = net.JoinHostPort(spec.URL.Hostname(), "53")
	}

	s := &dnsEcho{
		server:  server,
		name:    strings.Trim(spec.URL.Path, "/"),
		qtype:   dns.TypeA,
		family:  spec.Family,
		timeout: spec.Timeout,
	}

	if s.name == "" {
		s.name = defaultEchoName
	}

	if spec.Family == common.IPv6 {
		s.qtype = dns.TypeAAAA
	}

	if t := spec.URL.Query().Get("type"); t != "" {
		qtype, ok := dns.StringToType[strings.ToUpper(t)]
		if !ok || (qtype != dns.TypeA && qtype != dns.TypeAAAA && qtype != dns.TypeTXT) {
			log.S(ctx).Errorw("unsupported query type", "type", t)
			return nil, fmt.Errorf("%w: unsupported dns query type %q", common.ErrConfig, t)
		}
		s.qtype = qtype
	}

	return s, nil
}
