// internal/browser/network.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
)

// networkTracker follows in-flight requests of one target so navigation can
// wait for the network to go quiet.
type networkTracker struct {
	logger *zap.Logger

	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
	total        int
}

func newNetworkTracker(logger *zap.Logger) *networkTracker {
	return &networkTracker{
		logger:       logger.Named("network"),
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
}

// handle is registered with chromedp.ListenTarget.
func (n *networkTracker) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		n.mu.Lock()
		// A redirect reuses the request ID, so the count is unchanged.
		if _, ok := n.inflight[e.RequestID]; !ok {
			n.total++
		}
		n.inflight[e.RequestID] = struct{}{}
		n.lastActivity = time.Now()
		n.mu.Unlock()
	case *network.EventLoadingFinished:
		n.done(e.RequestID)
	case *network.EventLoadingFailed:
		n.done(e.RequestID)
	}
}

func (n *networkTracker) done(id network.RequestID) {
	n.mu.Lock()
	delete(n.inflight, id)
	n.lastActivity = time.Now()
	n.mu.Unlock()
}

// Inflight returns the number of requests still waiting for completion.
func (n *networkTracker) Inflight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.inflight)
}

// Total returns how many distinct requests the target has issued.
func (n *networkTracker) Total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.total
}

// WaitIdle polls until no request has been in flight for quietPeriod.
func (n *networkTracker) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	if quietPeriod <= 0 {
		return nil
	}
	ticker := time.NewTicker(quietPeriod / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.logger.Debug("Network idle wait aborted.", zap.Int("inflight_requests", n.Inflight()), zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			n.mu.Lock()
			inflight := len(n.inflight)
			since := time.Since(n.lastActivity)
			n.mu.Unlock()

			if inflight == 0 && since >= quietPeriod {
				return nil
			}
		}
	}
}
