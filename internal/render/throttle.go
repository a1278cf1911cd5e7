package render

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledRenderer limits how often the wrapped renderer is called.
type ThrottledRenderer struct {
	next    Renderer
	limiter *rate.Limiter
}

// NewThrottledRenderer allows at most perSecond renders per second with the
// given burst. A non-positive perSecond returns next unchanged.
func NewThrottledRenderer(next Renderer, perSecond float64, burst int) Renderer {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledRenderer{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Render waits for a token, then renders url.
func (t *ThrottledRenderer) Render(ctx context.Context, url string) Result {
	if err := t.limiter.Wait(ctx); err != nil {
		return failed(url, err)
	}
	return t.next.Render(ctx, url)
}
