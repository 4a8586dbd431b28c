package attack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/present"
)

const (
	releaseSingle = "single"
	releaseAll    = "all"
)

// Release gives one address back to the DHCP server. The row's release
// control is disabled for the duration of the call. On success the row
// leaves the table and the counter takes the server-reported remaining
// count; on failure the control is re-enabled and the row stays.
func (c *Controller) Release(ctx context.Context, addr string) (err error) {
	addr = strings.TrimSpace(addr)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	iface, server := c.status.Interface, c.status.ServerAddress
	if verr := validateRelease(iface, server); verr != nil {
		c.mu.Unlock()
		c.notify(present.NoticeError, verr.Message)
		return verr
	}
	if addr == "" {
		c.mu.Unlock()
		err = gateway.NewValidationError("Please choose an IP address to release")
		c.notify(present.NoticeError, gateway.UserMessage(err, ""))
		return err
	}
	// A rendered row must have an enabled release control; an address that
	// is not rendered can still be released
	marked := false
	if c.table.Has(addr) {
		if !c.table.MarkReleasing(addr) {
			c.mu.Unlock()
			return ErrControlDisabled
		}
		marked = true
	}
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)

	var res *gateway.ReleaseResult
	defer func() {
		ok := err == nil && res != nil
		c.cfg.Metrics.ReleaseObserved(releaseSingle, ok)
		c.update(func() *present.Notice {
			if !ok {
				if marked {
					c.table.RestoreRelease(addr)
				}
				return errorNotice(err, "Failed to release IP")
			}
			// Keyed by address, so a poll that already removed the row
			// makes this a no-op
			c.table.Remove(addr, time.Now())
			c.table.SetCount(res.Remaining)
			if res.Remaining == 0 {
				c.table.Clear()
			}
			c.scheduleSweepLocked()
			logging.Info("Lease released",
				zap.String("ip", addr),
				zap.Int("remaining", res.Remaining),
			)
			return &present.Notice{Level: present.NoticeSuccess, Message: fmt.Sprintf("IP %s released successfully", addr)}
		})
	}()

	res, err = c.gw.Release(ctx, gateway.ReleaseRequest{Address: addr, Interface: iface, ServerAddress: server})
	return err
}

// ReleaseAll gives every acquired address back after confirm approves it.
// A nil confirm declines. On success the table is cleared; on failure it is
// left for the next poll to reconcile.
func (c *Controller) ReleaseAll(ctx context.Context, confirm Confirmer) (err error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.status.Controls.ReleaseAllBusy {
		c.mu.Unlock()
		return ErrControlDisabled
	}
	iface, server := c.status.Interface, c.status.ServerAddress
	c.mu.Unlock()

	if verr := validateRelease(iface, server); verr != nil {
		c.notify(present.NoticeError, verr.Message)
		return verr
	}

	if confirm == nil || !confirm(ReleaseAllPrompt) {
		return ErrCancelled
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.status.Controls.ReleaseAllBusy {
		c.mu.Unlock()
		return ErrControlDisabled
	}
	c.status.Controls.ReleaseAllBusy = true
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)

	var res *gateway.ReleaseAllResult
	defer func() {
		ok := err == nil && res != nil
		c.cfg.Metrics.ReleaseObserved(releaseAll, ok)
		c.update(func() *present.Notice {
			c.status.Controls.ReleaseAllBusy = false
			if !ok {
				return errorNotice(err, "Failed to release IPs", "Failed to release all IPs")
			}
			c.table.Clear()
			c.scheduleSweepLocked()
			logging.Info("All leases released", zap.Int("released", res.Released))
			return &present.Notice{Level: present.NoticeSuccess, Message: fmt.Sprintf("Released %d IP(s) successfully", res.Released)}
		})
	}()

	res, err = c.gw.ReleaseAll(ctx, gateway.ReleaseAllRequest{Interface: iface, ServerAddress: server})
	return err
}

func validateRelease(iface, server string) *gateway.Error {
	if iface == "" || server == "" {
		return gateway.NewValidationError("Missing interface or DHCP server information")
	}
	return validateServer(server)
}
