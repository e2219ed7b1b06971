package rate

import (
	"context"
	"time"
)

// Limiter hands out operation tokens at a fixed rate. The stress harness uses it
// to pace randomized cache traffic when a rate cap is configured.
type Limiter interface {
	Take(ctx context.Context) bool
	Chan() <-chan struct{}
}

type Limit struct {
	ctx context.Context
	q   chan struct{}
}

// NewLimiter allocates perSecond tokens per second; burst tokens are available
// immediately on start.
func NewLimiter(ctx context.Context, perSecond, burst int) *Limit {
	q := make(chan struct{}, perSecond)
	if burst > perSecond {
		burst = perSecond
	}
	for i := 0; i < burst; i++ {
		q <- struct{}{}
	}

	go func() {
		defer close(q)
		t := time.NewTicker(time.Duration(float64(time.Second) / float64(perSecond)))
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case q <- struct{}{}:
				default:
				}
			}
		}
	}()

	return &Limit{ctx: ctx, q: q}
}

func (rl *Limit) Chan() <-chan struct{} {
	return rl.q
}

// Take blocks until a token is available or ctx is done.
func (rl *Limit) Take(ctx context.Context) bool {
	if ctx == nil {
		ctx = rl.ctx
	}
	select {
	case <-ctx.Done():
		return false
	case <-rl.q:
		return true
	}
}
