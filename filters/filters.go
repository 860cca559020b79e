package filters

import (
	"context"
	"net/netip"

	"curtsddns/config"
	"curtsddns/log"
)

// Interface vets a candidate address before it may be published.
type Interface interface {
	Check(ctx context.Context, addr netip.Addr) error
	Typename() string
}

// Build returns the filters enabled in the resolver section, in the order they run.
func Build(ctx context.Context, c config.Resolver) []Interface {
	ctx = log.SWith(ctx, log.Stage("init:filter"))

	list := []Interface{&public{allowPrivate: c.AllowPrivate}}

	if c.ExcludeCloudflare == nil || *c.ExcludeCloudflare {
		list = append(list, loadCloudflareRanges(ctx, fetchCloudflareRanges))
	}

	return list
}
