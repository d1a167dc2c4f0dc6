package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobsift/jobsift/internal/utils"
)

// detailScrapeInterval is the minimum spacing between detail-page
// navigations against the same host.
const detailScrapeInterval = 2 * time.Second

// hostLimiter spaces requests per host so detail scraping does not hammer
// one careers site.
type hostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host's limiter admits another request or the context
// ends.
func (h *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := utils.Hostname(rawURL)
	if host == "" {
		return nil
	}

	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
