package utils

import (
	"context"
	"time"
)

// NewTicker returns a tick channel bound to ctx: the backing ticker is stopped
// and the goroutine exits when ctx is done. Ticks are dropped, not queued, when
// the consumer is slow.
func NewTicker(ctx context.Context, interval time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tm := <-t.C:
				select {
				case ch <- tm:
				default:
				}
			}
		}
	}()
	return ch
}
