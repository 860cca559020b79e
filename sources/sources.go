package sources

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"curtsddns/common"
	"curtsddns/log"

	"go.uber.org/zap"
)

type Interface interface {
	Lookup(ctx context.Context) (netip.Addr, error)
	Typename() string
}

// Spec is one entry of the resolver SOURCES list.
type Spec struct {
	URL     *url.URL
	Family  common.Family
	Timeout time.Duration
}

var Sources = map[string]func(ctx context.Context, spec Spec) (Interface, error){
	"http":    newSimple,
	"https":   newSimple,
	"cftrace": newCloudflareTrace,
	"dns":     newDNS,
	"iface":   newInterface,
}

// New picks the source implementation by URL scheme.
func New(ctx context.Context, source string, family common.Family, timeout time.Duration) (Interface, error) {
	ctx = log.SWith(ctx, "source", source)

	u, err := url.Parse(source)
	if err != nil {
		log.S(ctx).Errorw("bad source url", zap.Error(err))
		return nil, fmt.Errorf("%w: bad source url %q: %w", common.ErrConfig, source, err)
	}

	create, ok := Sources[strings.ToLower(u.Scheme)]
	if !ok {
		log.S(ctx).Errorw("unknown source type", "scheme", u.Scheme)
		return nil, fmt.Errorf("%w: unknown source type %q", common.ErrConfig, u.Scheme)
	}

	return create(ctx, Spec{URL: u, Family: family, Timeout: timeout})
}
