// Package liveness exposes an application health flag fed by periodic checks,
// consumed by the k8s probe endpoint.
package liveness

import (
	"context"
	"sync/atomic"
	"time"
)

// Liver is anything able to report its own health.
type Liver interface {
	IsAlive(ctx context.Context) bool
}

type Prober interface {
	Watch(l Liver)
	IsAlive() bool
}

type Probe struct {
	ctx      context.Context
	interval time.Duration
	alive    atomic.Bool
}

func NewProbe(ctx context.Context, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = time.Second
	}
	p := &Probe{ctx: ctx, interval: interval}
	p.alive.Store(true)
	return p
}

// Watch polls the target until the probe's context is done. Does not block the
// caller.
func (p *Probe) Watch(l Liver) {
	go func() {
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-t.C:
				p.alive.Store(l.IsAlive(p.ctx))
			}
		}
	}()
}

func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}
