package network

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer caps the average number of request body bytes sent per second.
// A nil Pacer does not wait.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns nil when bytesPerSecond is not positive.
func NewPacer(bytesPerSecond int) *Pacer {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)}
}

// Wait blocks until n bytes may be sent.
func (p *Pacer) Wait(ctx context.Context, n int) error {
	if p == nil {
		return nil
	}

	burst := p.limiter.Burst()
	for n > 0 {
		step := n
		if step > burst {
			step = burst
		}
		if err := p.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
