package attack

import (
	"context"
	"time"

	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/reconcile"
	"github.com/muurk/starvectl/internal/session"
)

// startPollingLocked starts a new poll loop tagged with a fresh generation
func (c *Controller) startPollingLocked() {
	c.stopPollingLocked()
	c.generation++
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	go c.pollLoop(ctx, c.generation)
}

// stopPollingLocked cancels the poll loop. Responses of the old generation
// that are still in flight are dropped when they arrive.
func (c *Controller) stopPollingLocked() {
	if c.pollCancel == nil {
		return
	}
	c.generation++
	c.pollCancel()
	c.pollCancel = nil
}

// Polling reports whether the status poll is active
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCancel != nil
}

func (c *Controller) pollLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticks never overlap: the next one is read after this returns
			c.pollOnce(gen)
		}
	}
}

func (c *Controller) pollOnce(gen uint64) {
	if !c.current(gen) {
		return
	}

	// The request outlives a stop; only its result is discarded
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PollTimeout)
	start := time.Now()
	res, err := c.gw.Status(ctx)
	cancel()
	c.cfg.Metrics.PollObserved(err == nil, time.Since(start))

	if err != nil {
		logging.LogPollFailure(gen, err)
		return
	}

	c.mu.Lock()
	if gen != c.generation || c.disposed {
		c.mu.Unlock()
		return
	}
	c.applyStatusLocked(res)
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation && !c.disposed
}

// applyStatusLocked folds one authoritative status response into the
// session and the rendered table
func (c *Controller) applyStatusLocked(res *gateway.StatusResult) {
	if res.Network != nil && !res.Network.IsZero() {
		c.status.Network = c.status.Network.Merge(*res.Network)
	}

	if !res.Running && c.status.Phase == session.PhaseAttacking {
		c.leaveAttackingLocked("service reported completion", "Attack completed")
	}

	plan := reconcile.Diff(c.table.Reconciled(), res.Leases)
	c.applyPlanLocked(plan)
	c.cfg.Metrics.LeasesObserved(plan.Count)
}
