package curtsddns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"curtsddns/common"
	"curtsddns/config"
	"curtsddns/filters"
	"curtsddns/log"
	"curtsddns/sources"

	"go.uber.org/zap"
)

// ResolvedAddress is the public address found in one cycle.
type ResolvedAddress struct {
	Addr       netip.Addr
	ResolvedAt time.Time
	Source     string
}

type AddressResolver interface {
	Resolve(ctx context.Context) (ResolvedAddress, error)
}

// Resolver asks its sources in order and returns the first address every filter accepts.
type Resolver struct {
	sources []sources.Interface
	filters []filters.Interface
	now     func() time.Time
}

// Resolve fails with an error joining every source failure, so errors.Is reports
// common.ErrNetwork or common.ErrParse for whichever happened.
func (r *Resolver) Resolve(ctx context.Context) (ResolvedAddress, error) {
	ctx = log.SWith(ctx, log.Stage("resolve"))
	took := log.Elapsed("took")

	var errs []error
Next:
	for _, source := range r.sources {
		addr, err := source.Lookup(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source.Typename(), err))
			continue
		}

		for _, filter := range r.filters {
			if err := filter.Check(ctx, addr); err != nil {
				errs = append(errs, fmt.Errorf("%s: %s filter: %w", source.Typename(), filter.Typename(), err))
				continue Next
			}
		}

		log.S(ctx).Infow("resolved ip", log.Addr(addr), "source_type", source.Typename(), took)
		return ResolvedAddress{Addr: addr, ResolvedAt: r.now(), Source: source.Typename()}, nil
	}

	err := errors.Join(errs...)
	if err == nil {
		log.S(ctx).Errorw("no source configured", log.Internal)
		return ResolvedAddress{}, fmt.Errorf("%w: no source configured", common.ErrConfig)
	}

	log.S(ctx).Errorw("all source failed, unable to get ip", zap.Error(err), took)
	return ResolvedAddress{}, fmt.Errorf("all sources failed: %w", err)
}

func NewResolver(ctx context.Context, c config.Resolver) (*Resolver, error) {
	ctx = log.SWith(ctx, log.Stage("init:source"))

	var timeout time.Duration
	if c.Timeout != nil {
		timeout = time.Duration(*c.Timeout)
	}

	r := &Resolver{now: time.Now}
	for _, s := range c.Sources {
		source, err := sources.New(ctx, s, c.Family, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed creating source: %w", err)
		}
		r.sources = append(r.sources, source)
	}

	r.filters = filters.Build(ctx, c)

	return r, nil
}
