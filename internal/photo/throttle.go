package photo

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Throttle spaces successive requests to one external service. Every adapter
// acquires its throttle before issuing a request. A nil Throttle never waits.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows one request per interval. A non-positive interval
// disables waiting.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return eris.Wrap(t.limiter.Wait(ctx), "photo: throttle wait")
}
