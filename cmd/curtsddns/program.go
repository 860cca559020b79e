package main

import (
	"context"

	"curtsddns/curtsddns"
	"curtsddns/log"

	"github.com/judwhite/go-svc"
)

// program adapts the reconciler to the service lifecycle. svc.Run stops it on SIGINT or
// SIGTERM, or when the Windows service manager asks.
type program struct {
	initCtx context.Context

	ctx        context.Context
	cancel     context.CancelFunc
	reconciler *curtsddns.Reconciler
	done       chan struct{}
}

func (p *program) Init(env svc.Environment) error {
	ctx, reconciler, err := setup(p.initCtx)
	if err != nil {
		return err
	}

	if env.IsWindowsService() {
		log.S(ctx).Infow("running as windows service")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.reconciler = reconciler
	p.done = make(chan struct{})
	return nil
}

func (p *program) Start() error {
	go func() {
		defer close(p.done)
		p.reconciler.Inspect(p.ctx)
		_ = p.reconciler.Run(p.ctx)
	}()
	return nil
}

func (p *program) Stop() error {
	log.S(p.ctx).Infow("stopping")
	p.cancel()
	<-p.done
	_ = log.L(p.ctx).Sync()
	return nil
}
