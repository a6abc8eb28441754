package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestNetworkTracker(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("counts distinct requests", func(t *testing.T) {
		n := newNetworkTracker(zaptest.NewLogger(t))
		n.handle(&network.EventRequestWillBeSent{RequestID: "1"})
		n.handle(&network.EventRequestWillBeSent{RequestID: "2"})
		// Redirect hop under the same ID.
		n.handle(&network.EventRequestWillBeSent{RequestID: "2"})

		assert.Equal(t, 2, n.Inflight())
		assert.Equal(t, 2, n.Total())

		n.handle(&network.EventLoadingFinished{RequestID: "1"})
		n.handle(&network.EventLoadingFailed{RequestID: "2"})
		assert.Equal(t, 0, n.Inflight())
		assert.Equal(t, 2, n.Total())
	})

	t.Run("idle after quiet period", func(t *testing.T) {
		n := newNetworkTracker(zaptest.NewLogger(t))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		start := time.Now()
		require.NoError(t, n.WaitIdle(ctx, 40*time.Millisecond))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("zero quiet period returns immediately", func(t *testing.T) {
		n := newNetworkTracker(zaptest.NewLogger(t))
		n.handle(&network.EventRequestWillBeSent{RequestID: "stuck"})
		assert.NoError(t, n.WaitIdle(context.Background(), 0))
	})

	t.Run("stuck request times out", func(t *testing.T) {
		n := newNetworkTracker(zaptest.NewLogger(t))
		n.handle(&network.EventRequestWillBeSent{RequestID: "long-poll"})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		err := n.WaitIdle(ctx, 20*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("settles once the request finishes", func(t *testing.T) {
		n := newNetworkTracker(zaptest.NewLogger(t))
		n.handle(&network.EventRequestWillBeSent{RequestID: "slow"})

		go func() {
			time.Sleep(50 * time.Millisecond)
			n.handle(&network.EventLoadingFinished{RequestID: "slow"})
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, n.WaitIdle(ctx, 30*time.Millisecond))
		assert.Zero(t, n.Inflight())
	})
}
