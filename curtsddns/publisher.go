package curtsddns

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"curtsddns/ddns"
	"curtsddns/log"

	"go.uber.org/zap"
)

// RecordState is the last address this process wrote successfully. It lives in memory only,
// so after a restart the first cycle always writes.
type RecordState struct {
	Addr      netip.Addr
	WrittenAt time.Time
}

func (s RecordState) Known() bool {
	return s.Addr.IsValid()
}

type recordPublisher struct {
	provider ddns.Interface
	state    RecordState
}

// inspect logs what the provider serves now. It never seeds the state.
func (p *recordPublisher) inspect(ctx context.Context) {
	ctx = log.SWith(ctx, log.Stage("init:publisher"), "provider", p.provider.Typename())

	addr, err := p.provider.CurrentRecord(ctx)
	if err != nil {
		log.S(ctx).Warnw("failed read record info", zap.Error(err))
		return
	}

	log.S(ctx).Infow("found record, first cycle will write regardless", "ip", addr)
}

// publish writes resolved when it differs from the state. The state only moves on success.
func (p *recordPublisher) publish(ctx context.Context, resolved ResolvedAddress) (bool, error) {
	ctx = log.SWith(ctx, log.Stage("update"), "provider", p.provider.Typename())

	if p.state.Known() && p.state.Addr == resolved.Addr {
		log.S(ctx).Infow("IP didn't change, skip update", log.Addr(resolved.Addr))
		return false, nil
	}

	if err := p.provider.SetRecord(ctx, resolved.Addr); err != nil {
		return false, fmt.Errorf("failed update domain: %w", err)
	}

	old := p.state
	p.state = RecordState{Addr: resolved.Addr, WrittenAt: resolved.ResolvedAt}

	if old.Known() {
		log.S(ctx).Infow("record updated", log.Addr(resolved.Addr), "old_ip", old.Addr)
	} else {
		log.S(ctx).Infow("record updated", log.Addr(resolved.Addr), "old_ip", "unknown")
	}

	return true, nil
}
