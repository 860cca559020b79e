package filters

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"curtsddns/common"
	"curtsddns/log"

	cfapi "github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

const cloudflareRangesTimeout = 10 * time.Second

// Published at https://www.cloudflare.com/ips/, used when the API cannot be reached.
var staticCloudflareRanges = []string{
	"173.245.48.0/20",
	"103.21.244.0/22",
	"103.22.200.0/22",
	"103.31.4.0/22",
	"141.101.64.0/18",
	"108.162.192.0/18",
	"190.93.240.0/20",
	"188.114.96.0/20",
	"197.234.240.0/22",
	"198.41.128.0/17",
	"162.158.0.0/15",
	"104.16.0.0/13",
	"104.24.0.0/14",
	"172.64.0.0/13",
	"131.0.72.0/22",
	"2400:cb00::/32",
	"2606:4700::/32",
	"2803:f800::/32",
	"2405:b500::/32",
	"2405:8100::/32",
	"2a06:98c0::/29",
	"2c0f:f248::/32",
}

// The public resolvers are not in the published list but are never a client address.
var extraCloudflareRanges = []string{
	"1.1.1.0/24",
	"1.0.0.0/24",
	"2606:4700:4700::/48",
}

// cloudflareRanges rejects Cloudflare edge addresses, as reported from behind WARP or by a
// proxied echo service.
type cloudflareRanges struct {
	prefixes []netip.Prefix
}

func (f *cloudflareRanges) Typename() string {
	return "cloudflare"
}

func (f *cloudflareRanges) Check(ctx context.Context, addr netip.Addr) error {
	for _, p := range f.prefixes {
		if p.Contains(addr) {
			log.S(ctx).Warnw("discard IP", log.Addr(addr), "reason", "cloudflare range", "cidr", p)
			return fmt.Errorf("%w: %s belongs to Cloudflare (%s)", common.ErrParse, addr, p)
		}
	}

	return nil
}

func fetchCloudflareRanges() ([]string, error) {
	ranges, err := cfapi.IPs()
	if err != nil {
		return nil, err
	}

	cidrs := append([]string{}, ranges.IPv4CIDRs...)
	return append(cidrs, ranges.IPv6CIDRs...), nil
}

func loadCloudflareRanges(ctx context.Context, fetch func() ([]string, error)) *cloudflareRanges {
	ctx = log.SWith(ctx, "type", "cloudflare")

	type result struct {
		cidrs []string
		err   error
	}

	// cfapi.IPs takes no context.
	done := make(chan result, 1)
	go func() {
		cidrs, err := fetch()
		done <- result{cidrs, err}
	}()

	var cidrs []string
	select {
	case r := <-done:
		if r.err != nil {
			log.S(ctx).Warnw("failed loading Cloudflare ranges, using static list", zap.Error(r.err))
		} else if len(r.cidrs) == 0 {
			log.S(ctx).Warnw("Cloudflare returned no ranges, using static list")
		} else {
			cidrs = r.cidrs
			log.S(ctx).Infow("loaded Cloudflare ranges", "count", len(cidrs))
		}
	case <-time.After(cloudflareRangesTimeout):
		log.S(ctx).Warnw("timeout loading Cloudflare ranges, using static list")
	case <-ctx.Done():
		log.S(ctx).Warnw("cancelled loading Cloudflare ranges, using static list", zap.Error(ctx.Err()))
	}

	if cidrs == nil {
		cidrs = staticCloudflareRanges
	}

	f := &cloudflareRanges{}
	for _, cidr := range append(append([]string{}, cidrs...), extraCloudflareRanges...) {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			log.S(ctx).Warnw("skip malformed range", "cidr", cidr, zap.Error(err))
			continue
		}
		f.prefixes = append(f.prefixes, p.Masked())
	}

	return f
}
