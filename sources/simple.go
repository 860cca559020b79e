package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"curtsddns/common"
	"curtsddns/log"

	"github.com/goccy/go-json"
)

const maxReadSimple = 4 * 1024

// Keys that common JSON echo services put the address under.
var jsonAddrKeys = []string{"ip", "address", "ip_addr", "query"}

// simple is a plain HTTP "what is my IP" service.
type simple struct {
	url     string
	family  common.Family
	timeout time.Duration
}

func (s *simple) Typename() string {
	return "simple"
}

func (s *simple) Lookup(ctx context.Context) (result netip.Addr, err error) {
	ctx = log.SWith(ctx, "url", s.url, "family", s.family, "timeout", s.timeout)

	log.S(ctx).Debug("patching http.Client")
	client, err := wrapClientDialer(ctx, common.HttpClient(ctx), familyDialer(s.family))
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

	data, err := fetch(ctx, client, s.url, maxReadSimple)
	if err != nil {
		return netip.Addr{}, err
	}

	addr, err := parseEchoBody(data)
	if err != nil {
		log.S(ctx).Warnw("no IP found in response", log.ByteField("body", data))
		return netip.Addr{}, err
	}

	return checkAddr(ctx, addr, s.family)
}

// parseEchoBody accepts either a bare address (first token of the body) or a flat JSON object.
func parseEchoBody(data []byte) (netip.Addr, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: empty response", common.ErrParse)
	}

	var text string
	if data[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return netip.Addr{}, fmt.Errorf("%w: bad JSON response: %w", common.ErrParse, err)
		}

		for _, key := range jsonAddrKeys {
			if v, ok := obj[key].(string); ok {
				text = v
				break
			}
		}
	} else {
		text = strings.Fields(string(data))[0]
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(text))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: not an IP address: %w", common.ErrParse, err)
	}

	return addr, nil
}

func newSimple(ctx context.Context, spec Spec) (Interface, error) {
	return &simple{
		url:     spec.URL.String(),
		family:  spec.Family,
		timeout: spec.Timeout,
	}, nil
}
