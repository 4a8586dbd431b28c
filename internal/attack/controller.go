package attack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/reconcile"
	"github.com/muurk/starvectl/internal/session"
)

const (
	// DefaultPollInterval is the status poll period while attacking
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultExitDelay is how long a row's entry or exit transition lasts
	DefaultExitDelay = 300 * time.Millisecond

	// DefaultPollTimeout bounds a single status request
	DefaultPollTimeout = 5 * time.Second

	// ReleaseAllPrompt is the bulk-release confirmation question
	ReleaseAllPrompt = "Are you sure you want to release all stolen IP addresses?"
)

var (
	// ErrCancelled is returned when the bulk-release confirmation is declined
	ErrCancelled = errors.New("release cancelled")

	// ErrControlDisabled is returned when the triggering control is disabled
	// in the current state, e.g. a second discover while one is in flight
	ErrControlDisabled = errors.New("control is disabled")

	// ErrDisposed is returned by every operation after Dispose
	ErrDisposed = errors.New("controller disposed")
)

// Gateway is the subset of the lab service API the controller uses.
// *gateway.Client implements it.
type Gateway interface {
	ListInterfaces(ctx context.Context) ([]session.Interface, error)
	Discover(ctx context.Context, iface string) (*gateway.DiscoverResult, error)
	StartAttack(ctx context.Context, iface, server string) error
	StopAttack(ctx context.Context) error
	Status(ctx context.Context) (*gateway.StatusResult, error)
	Release(ctx context.Context, req gateway.ReleaseRequest) (*gateway.ReleaseResult, error)
	ReleaseAll(ctx context.Context, req gateway.ReleaseAllRequest) (*gateway.ReleaseAllResult, error)
}

// Metrics receives controller events. *metrics.Recorder implements it.
type Metrics interface {
	PollObserved(ok bool, elapsed time.Duration)
	LeasesObserved(n int)
	ReleaseObserved(kind string, ok bool)
	PhaseChanged(p session.Phase)
}

// Confirmer is the yes/no gate in front of a bulk release
type Confirmer func(prompt string) bool

// AlwaysConfirm is a Confirmer for callers that already asked
func AlwaysConfirm(string) bool { return true }

// Config holds controller settings. Zero values take the defaults.
type Config struct {
	PollInterval time.Duration
	ExitDelay    time.Duration
	PollTimeout  time.Duration
	Renderer     present.Renderer
	Metrics      Metrics
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ExitDelay <= 0 {
		c.ExitDelay = DefaultExitDelay
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.Renderer == nil {
		c.Renderer = present.Discard{}
	}
	if c.Metrics == nil {
		c.Metrics = nopMetrics{}
	}
	return c
}

// Controller drives one attack session
type Controller struct {
	gw  Gateway
	cfg Config

	mu         sync.Mutex
	status     session.Status
	interfaces []session.Interface
	table      *present.Table
	seq        uint64
	generation uint64
	pollCancel context.CancelFunc
	sweepTimer *time.Timer
	disposed   bool
}

// New creates a controller in the Idle phase
func New(gw Gateway, cfg Config) *Controller {
	return &Controller{
		gw:     gw,
		cfg:    cfg.withDefaults(),
		status: session.NewStatus(),
		table:  present.NewTable(),
	}
}

// Snapshot returns the current state without publishing it
func (c *Controller) Snapshot() present.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildLocked()
}

// Refresh publishes the current state to the renderer
func (c *Controller) Refresh() {
	c.update(func() *present.Notice { return nil })
}

// LoadInterfaces fetches the interfaces the service can attack from
func (c *Controller) LoadInterfaces(ctx context.Context) ([]session.Interface, error) {
	if c.isDisposed() {
		return nil, ErrDisposed
	}

	ifaces, err := c.gw.ListInterfaces(ctx)
	if err != nil {
		c.notify(present.NoticeError, "Failed to load network interfaces")
		return nil, err
	}

	c.update(func() *present.Notice {
		c.interfaces = append([]session.Interface(nil), ifaces...)
		return nil
	})
	return ifaces, nil
}

// SelectInterface sets the target interface. It fails while inputs are
// locked or when name is not among the loaded interfaces.
func (c *Controller) SelectInterface(name string) error {
	name = strings.TrimSpace(name)
	var err error
	c.update(func() *present.Notice {
		if c.status.InputsLocked() {
			err = gateway.NewValidationError(lockedMessage("Interface", c.status.Phase))
			return errorNotice(err, "")
		}
		if name != "" && len(c.interfaces) > 0 && !hasInterface(c.interfaces, name) {
			err = gateway.NewValidationError(fmt.Sprintf("Unknown network interface %q", name))
			return errorNotice(err, "")
		}
		c.status.Interface = name
		return nil
	})
	return err
}

// SetServerAddress sets the DHCP server address. It fails while inputs are
// locked.
func (c *Controller) SetServerAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	var err error
	c.update(func() *present.Notice {
		if c.status.InputsLocked() {
			err = gateway.NewValidationError(lockedMessage("DHCP server", c.status.Phase))
			return errorNotice(err, "")
		}
		c.status.ServerAddress = addr
		return nil
	})
	return err
}

func lockedMessage(field string, phase session.Phase) string {
	if phase == session.PhaseAttacking {
		return field + " cannot change while an attack is running"
	}
	return field + " cannot change while a request is in progress"
}

// Discover asks the service to locate the DHCP server on the selected
// interface. On success the server address and network info are filled in.
func (c *Controller) Discover(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.status.CanDiscover() {
		c.mu.Unlock()
		return ErrControlDisabled
	}
	iface := c.status.Interface
	if iface == "" {
		c.mu.Unlock()
		err = gateway.NewValidationError("Please select a network interface first")
		c.notify(present.NoticeError, gateway.UserMessage(err, ""))
		return err
	}
	c.status.Controls.DiscoverBusy = true
	c.setPhaseLocked(session.PhaseDiscovering, "discover")
	c.status.Text = "Discovering DHCP server..."
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)

	var res *gateway.DiscoverResult
	defer func() {
		c.update(func() *present.Notice {
			c.status.Controls.DiscoverBusy = false
			if c.status.Phase == session.PhaseDiscovering {
				c.setPhaseLocked(session.PhaseIdle, "discover finished")
			}
			if err != nil || res == nil {
				c.status.Text = "Idle"
				return errorNotice(err, "DHCP server not found", "Failed to discover DHCP server")
			}
			c.status.ServerAddress = res.ServerAddress
			info := res.Network
			if info.ServerAddress == "" {
				info.ServerAddress = res.ServerAddress
			}
			c.status.Network = c.status.Network.Merge(info)
			c.status.Text = "Ready"
			logging.Info("DHCP server discovered",
				zap.String("interface", iface),
				zap.String("server", res.ServerAddress),
			)
			return &present.Notice{Level: present.NoticeSuccess, Message: "DHCP server discovered successfully"}
		})
	}()

	res, err = c.gw.Discover(ctx, iface)
	return err
}

// Start starts the attack and, on success, the status poll
func (c *Controller) Start(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.status.CanStart() {
		c.mu.Unlock()
		return ErrControlDisabled
	}
	iface, server := c.status.Interface, c.status.ServerAddress
	if verr := validateStart(iface, server); verr != nil {
		c.mu.Unlock()
		c.notify(present.NoticeError, verr.Message)
		return verr
	}
	c.status.Controls.AttackBusy = true
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)

	defer func() {
		c.update(func() *present.Notice {
			c.status.Controls.AttackBusy = false
			if err != nil {
				return errorNotice(err, "Failed to start attack")
			}
			if c.disposed {
				return nil
			}
			c.setPhaseLocked(session.PhaseAttacking, "start")
			c.status.Running = true
			c.status.Text = "Attack in progress..."
			c.startPollingLocked()
			return &present.Notice{Level: present.NoticeSuccess, Message: "Attack started"}
		})
	}()

	err = c.gw.StartAttack(ctx, iface, server)
	return err
}

// Stop stops the running attack. On failure the phase stays Attacking and
// polling continues.
func (c *Controller) Stop(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.status.Phase != session.PhaseAttacking {
		c.mu.Unlock()
		err = gateway.NewValidationError("No attack running")
		c.notify(present.NoticeError, gateway.UserMessage(err, ""))
		return err
	}
	if !c.status.CanStop() {
		c.mu.Unlock()
		return ErrControlDisabled
	}
	c.status.Controls.AttackBusy = true
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)

	defer func() {
		c.update(func() *present.Notice {
			c.status.Controls.AttackBusy = false
			if err != nil {
				return errorNotice(err, "Failed to stop attack")
			}
			if c.status.Phase == session.PhaseAttacking {
				c.leaveAttackingLocked("stop", "Attack stopped")
			}
			return &present.Notice{Level: present.NoticeSuccess, Message: "Attack stopped"}
		})
	}()

	err = c.gw.StopAttack(ctx)
	return err
}

// Toggle stops a running attack or starts one
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	attacking := c.status.Phase == session.PhaseAttacking
	c.mu.Unlock()
	if attacking {
		return c.Stop(ctx)
	}
	return c.Start(ctx)
}

// Dispose stops polling and pending transitions. The remote attack is left
// as it is. Every later operation returns ErrDisposed.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.stopPollingLocked()
	if c.sweepTimer != nil {
		c.sweepTimer.Stop()
		c.sweepTimer = nil
	}
}

func (c *Controller) setPhaseLocked(p session.Phase, reason string) {
	if c.status.Phase == p {
		return
	}
	logging.LogTransition(c.status.Phase.String(), p.String(), reason)
	c.status.Phase = p
	c.cfg.Metrics.PhaseChanged(p)
}

func (c *Controller) leaveAttackingLocked(reason, text string) {
	c.stopPollingLocked()
	c.setPhaseLocked(session.PhaseIdle, reason)
	c.status.Running = false
	c.status.Text = text
}

// update runs fn under the lock, then publishes a snapshot and the notice
// fn returned
func (c *Controller) update(fn func() *present.Notice) {
	c.mu.Lock()
	notice := fn()
	snap := c.publishLocked()
	c.mu.Unlock()

	c.cfg.Renderer.Render(snap)
	if notice != nil {
		c.cfg.Renderer.Notify(*notice)
	}
}

func (c *Controller) notify(level present.NoticeLevel, message string) {
	if message == "" {
		return
	}
	c.cfg.Renderer.Notify(present.Notice{Level: level, Message: message})
}

func (c *Controller) publishLocked() present.Snapshot {
	c.seq++
	return c.buildLocked()
}

func (c *Controller) buildLocked() present.Snapshot {
	return present.Snapshot{
		Seq:         c.seq,
		Status:      c.status,
		Interfaces:  append([]session.Interface(nil), c.interfaces...),
		Rows:        c.table.Rendered(),
		Placeholder: c.table.Placeholder(),
		Count:       c.table.Count(),
	}
}

func (c *Controller) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// applyPlanLocked applies a reconciliation plan and arms the sweep timer
func (c *Controller) applyPlanLocked(plan reconcile.Plan) {
	c.table.Apply(plan, time.Now())
	c.scheduleSweepLocked()
}

func (c *Controller) scheduleSweepLocked() {
	if c.disposed {
		return
	}
	next, ok := c.table.NextDeadline(c.cfg.ExitDelay)
	if c.sweepTimer != nil {
		c.sweepTimer.Stop()
		c.sweepTimer = nil
	}
	if !ok {
		return
	}
	wait := time.Until(next)
	if wait < 0 {
		wait = 0
	}
	c.sweepTimer = time.AfterFunc(wait, c.sweep)
}

func (c *Controller) sweep() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	changed := c.table.Sweep(time.Now(), c.cfg.ExitDelay)
	c.scheduleSweepLocked()
	if !changed {
		c.mu.Unlock()
		return
	}
	snap := c.publishLocked()
	c.mu.Unlock()
	c.cfg.Renderer.Render(snap)
}

func validateStart(iface, server string) *gateway.Error {
	if iface == "" {
		return gateway.NewValidationError("Please select a network interface")
	}
	if server == "" {
		return gateway.NewValidationError("Please enter DHCP server IP or use Discover")
	}
	return validateServer(server)
}

func validateServer(server string) *gateway.Error {
	ip := net.ParseIP(server)
	if ip == nil || ip.To4() == nil || strings.Contains(server, ":") {
		return gateway.NewValidationError(fmt.Sprintf("Invalid DHCP server IP address: %s", server))
	}
	return nil
}

func hasInterface(ifaces []session.Interface, name string) bool {
	for _, iface := range ifaces {
		if iface.Name == name {
			return true
		}
	}
	return false
}

// errorNotice builds the notice for a failed operation. The first fallback
// is used for gateway errors without a message, the second (if given) for
// transport errors.
func errorNotice(err error, fallbacks ...string) *present.Notice {
	fallback := ""
	if len(fallbacks) > 0 {
		fallback = fallbacks[0]
	}
	if len(fallbacks) > 1 && (err == nil || gateway.IsTransport(err)) {
		fallback = fallbacks[1]
	}
	msg := fallback
	if err != nil {
		msg = gateway.UserMessage(err, fallback)
	}
	if msg == "" {
		return nil
	}
	return &present.Notice{Level: present.NoticeError, Message: msg}
}

type nopMetrics struct{}

func (nopMetrics) PollObserved(bool, time.Duration) {}
func (nopMetrics) LeasesObserved(int)               {}
func (nopMetrics) ReleaseObserved(string, bool)     {}
func (nopMetrics) PhaseChanged(session.Phase)       {}
