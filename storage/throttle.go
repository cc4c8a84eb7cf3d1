package storage

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/modify"
)

// ThrottledGateway limits how often the wrapped gateway is called.
type ThrottledGateway struct {
	next    modify.Gateway
	limiter *rate.Limiter
}

// Throttle wraps next with a limiter allowing perSecond calls and bursts of
// burst. A non-positive rate returns next unchanged.
func Throttle(next modify.Gateway, perSecond float64, burst int) modify.Gateway {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledGateway{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Apply waits for a slot, then forwards the request.
func (g *ThrottledGateway) Apply(ctx context.Context, req modify.Request) (modify.Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for transaction slot")
	}
	return g.next.Apply(ctx, req)
}
