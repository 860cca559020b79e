package curtsddns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"curtsddns/common"
	"curtsddns/ddns"
	"curtsddns/log"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Outcome is how one reconciling pass ended.
type Outcome int

const (
	OutcomeResolveFailed Outcome = iota
	OutcomeUnchanged
	OutcomeUpdated
	OutcomeUpdateFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolveFailed:
		return "resolve-failed"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUpdateFailed:
		return "update-failed"
	default:
		return fmt.Sprintf("unknown<%d>", int(o))
	}
}

// Succeeded reports whether the record is known to hold the resolved address.
func (o Outcome) Succeeded() bool {
	return o == OutcomeUnchanged || o == OutcomeUpdated
}

// Reconciler alternates between waiting out the interval and one resolve, compare, write pass.
// It is not safe for concurrent use; Run is its only driver.
type Reconciler struct {
	resolver  AddressResolver
	publisher recordPublisher
	interval  time.Duration
	clock     Clock
	cycle     int
}

type Option func(*Reconciler)

func WithClock(c Clock) Option {
	return func(r *Reconciler) {
		r.clock = c
	}
}

func NewReconciler(resolver AddressResolver, provider ddns.Interface, interval time.Duration, opts ...Option) *Reconciler {
	r := &Reconciler{
		resolver:  resolver,
		publisher: recordPublisher{provider: provider},
		interval:  interval,
		clock:     realClock{},
	}

	for _, opt := range opts {
		opt(r)
	}

	if res, ok := resolver.(*Resolver); ok {
		res.now = r.clock.Now
	}

	return r
}

// State returns the last address written by this process.
func (r *Reconciler) State() RecordState {
	return r.publisher.state
}

// Inspect logs the record as the provider serves it before the first cycle.
func (r *Reconciler) Inspect(ctx context.Context) {
	r.publisher.inspect(ctx)
}

func (r *Reconciler) RunOnce(ctx context.Context) Outcome {
	r.cycle++
	ctx = log.With(ctx, zap.Int("cycle", r.cycle))
	start := time.Now()

	resolved, err := r.resolver.Resolve(ctx)
	if err != nil {
		log.S(ctx).Errorw("resolve failed, skip update", zap.Error(err))
		return OutcomeResolveFailed
	}

	changed, err := r.publisher.publish(ctx, resolved)
	switch {
	case errors.Is(err, common.ErrAuth):
		log.S(ctx).Errorw("provider rejected the credentials, fix the configuration and restart",
			zap.Error(err), log.Fatal)
		return OutcomeUpdateFailed
	case errors.Is(err, common.ErrRateLimit):
		log.S(ctx).Warnw("provider is throttling, retry next cycle", zap.Error(err))
		return OutcomeUpdateFailed
	case err != nil:
		log.S(ctx).Errorw("publish failed, retry next cycle", zap.Error(err))
		return OutcomeUpdateFailed
	}

	log.S(ctx).Debugw("cycle done", "changed", changed, log.Since("elapsed", start))

	if changed {
		return OutcomeUpdated
	}
	return OutcomeUnchanged
}

// Run reconciles immediately and then once per interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ctx = log.SWith(ctx, log.Stage("reconcile"))
	log.S(ctx).Infow("reconciler started", "interval", r.interval)

	if !r.publisher.state.Known() {
		log.S(ctx).Infow("record state is empty, first cycle will write")
	}

	for {
		r.RunOnce(ctx)

		select {
		case <-ctx.Done():
			log.S(ctx).Infow("reconciler stopped", zap.Error(ctx.Err()))
			return nil
		case <-r.clock.After(r.interval):
		}
	}
}
