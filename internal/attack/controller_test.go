package attack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
)

var ctx = context.Background()

func startAttacking(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.SetServerAddress("10.0.0.1"))
	require.NoError(t, c.Start(ctx))
	require.Equal(t, session.PhaseAttacking, c.Snapshot().Status.Phase)
}

func TestConcreteScenario(t *testing.T) {
	gw := newFakeGateway()
	gw.interfaces = []session.Interface{{Name: "eth0", Address: "10.0.0.2"}}
	gw.discover = func(iface string) (*gateway.DiscoverResult, error) {
		assert.Equal(t, "eth0", iface)
		return &gateway.DiscoverResult{
			ServerAddress: "10.0.0.1",
			Network:       session.NetworkInfo{RouterAddress: "10.0.0.1", SubnetMask: "255.255.255.0"},
		}, nil
	}
	gw.start = func(iface, server string) error {
		assert.Equal(t, "eth0", iface)
		assert.Equal(t, "10.0.0.1", server)
		return nil
	}
	gw.setStatus(func() (*gateway.StatusResult, error) {
		return &gateway.StatusResult{Running: true, Leases: []session.Lease{
			{Address: "10.0.0.50", HardwareAddress: "aa:bb:cc:dd:ee:ff", AcquiredAt: "12:00:01"},
		}}, nil
	})

	c, rec := newTestController(gw)
	defer c.Dispose()

	ifaces, err := c.LoadInterfaces(ctx)
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "eth0 (10.0.0.2)", ifaces[0].Label())

	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.Discover(ctx))

	snap := c.Snapshot()
	assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
	assert.Equal(t, "Ready", snap.Status.Text)
	assert.Equal(t, "10.0.0.1", snap.Status.ServerAddress)
	assert.Equal(t, "255.255.255.0", snap.Status.Network.SubnetMask)
	assert.Equal(t, "10.0.0.1", snap.Status.Network.RouterAddress)
	assert.Equal(t, "DHCP server discovered successfully", rec.lastNotice().Message)

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, "Attack in progress...", c.Snapshot().Status.Text)
	assert.True(t, c.Snapshot().Status.InputsLocked())
	assert.True(t, c.Polling())

	require.Eventually(t, func() bool { return len(c.Snapshot().Rows) == 1 }, waitFor, tick)

	snap = c.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "10.0.0.50", snap.Rows[0].Lease.Address)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", snap.Rows[0].Lease.HardwareAddress)
	assert.Equal(t, "12:00:01", snap.Rows[0].Lease.AcquiredAt)
	assert.Equal(t, "1 IP", snap.Counter())
	assert.False(t, snap.Placeholder)
	assert.True(t, snap.ShowReleaseAll())
}

func TestStartValidationShortCircuits(t *testing.T) {
	tests := []struct {
		name    string
		iface   string
		server  string
		message string
	}{
		{"no interface", "", "10.0.0.1", "Please select a network interface"},
		{"no server", "eth0", "", "Please enter DHCP server IP or use Discover"},
		{"bad server", "eth0", "dhcp.lab", "Invalid DHCP server IP address: dhcp.lab"},
		{"ipv6 server", "eth0", "fe80::1", "Invalid DHCP server IP address: fe80::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			c, rec := newTestController(gw)
			defer c.Dispose()

			require.NoError(t, c.SelectInterface(tt.iface))
			require.NoError(t, c.SetServerAddress(tt.server))

			err := c.Start(ctx)
			require.Error(t, err)
			assert.True(t, gateway.IsValidation(err))
			assert.Equal(t, tt.message, rec.lastNotice().Message)
			assert.Zero(t, gw.total(), "no gateway call may be issued")
			assert.Equal(t, session.PhaseIdle, c.Snapshot().Status.Phase)
			assert.False(t, c.Polling())
		})
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	gw := newFakeGateway()
	gw.start = func(string, string) error {
		return gateway.NewGatewayError("start", 400, "Attack already running")
	}
	c, rec := newTestController(gw)
	defer c.Dispose()

	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.SetServerAddress("10.0.0.1"))
	require.Error(t, c.Start(ctx))

	snap := c.Snapshot()
	assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
	assert.False(t, snap.Status.InputsLocked())
	assert.False(t, snap.Status.Controls.AttackBusy, "busy flag released on failure")
	assert.False(t, c.Polling())
	assert.Equal(t, present.Notice{Level: present.NoticeError, Message: "Attack already running"}, rec.lastNotice())
}

func TestStartTransportFailureUsesFallback(t *testing.T) {
	gw := newFakeGateway()
	gw.start = func(string, string) error {
		return gateway.NewTransportError("start", errors.New("connection reset"))
	}
	c, rec := newTestController(gw)
	defer c.Dispose()

	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.SetServerAddress("10.0.0.1"))
	require.Error(t, c.Start(ctx))
	assert.Equal(t, "Failed to start attack", rec.lastNotice().Message)
}

func TestDiscoverRequiresInterface(t *testing.T) {
	gw := newFakeGateway()
	c, rec := newTestController(gw)
	defer c.Dispose()

	err := c.Discover(ctx)
	assert.True(t, gateway.IsValidation(err))
	assert.Equal(t, "Please select a network interface first", rec.lastNotice().Message)
	assert.Zero(t, gw.count("discover"))
	assert.Equal(t, session.PhaseIdle, c.Snapshot().Status.Phase)
}

func TestDiscoverFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", gateway.NewGatewayError("discover", 404, "No DHCP server found"), "No DHCP server found"},
		{"no message", gateway.NewGatewayError("discover", 500, ""), "DHCP server not found"},
		{"transport", gateway.NewTransportError("discover", errors.New("reset")), "Failed to discover DHCP server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.discover = func(string) (*gateway.DiscoverResult, error) { return nil, tt.err }
			c, rec := newTestController(gw)
			defer c.Dispose()

			require.NoError(t, c.SelectInterface("eth0"))
			require.Error(t, c.Discover(ctx))

			snap := c.Snapshot()
			assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
			assert.Equal(t, "Idle", snap.Status.Text)
			assert.True(t, snap.Status.CanDiscover(), "discover control re-enabled")
			assert.Equal(t, tt.want, rec.lastNotice().Message)
		})
	}
}

func TestDiscoverIsNotReentrant(t *testing.T) {
	gw := newFakeGateway()
	entered := make(chan struct{})
	unblock := make(chan struct{})
	gw.discover = func(string) (*gateway.DiscoverResult, error) {
		close(entered)
		<-unblock
		return &gateway.DiscoverResult{ServerAddress: "10.0.0.1"}, nil
	}
	c, _ := newTestController(gw)
	defer c.Dispose()
	require.NoError(t, c.SelectInterface("eth0"))

	done := make(chan error, 1)
	go func() { done <- c.Discover(ctx) }()
	<-entered

	snap := c.Snapshot()
	assert.Equal(t, session.PhaseDiscovering, snap.Status.Phase)
	assert.True(t, snap.Status.Controls.DiscoverBusy)
	assert.ErrorIs(t, c.Discover(ctx), ErrControlDisabled)
	assert.ErrorIs(t, c.Start(ctx), ErrControlDisabled, "start is refused while discovering")

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.count("discover"))
	assert.Equal(t, session.PhaseIdle, c.Snapshot().Status.Phase)
}

func TestStartInFlightBlocksOtherLifecycleRequests(t *testing.T) {
	gw := newFakeGateway()
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var startedWith gateway.StartRequest
	gw.start = func(iface, server string) error {
		startedWith = gateway.StartRequest{Interface: iface, ServerAddress: server}
		close(entered)
		<-unblock
		return nil
	}
	c, rec := newTestController(gw)
	defer c.Dispose()
	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.SetServerAddress("10.0.0.1"))

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	<-entered

	snap := c.Snapshot()
	assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
	assert.True(t, snap.Status.InputsLocked())
	assert.False(t, snap.Status.CanDiscover())

	assert.ErrorIs(t, c.Discover(ctx), ErrControlDisabled)
	assert.ErrorIs(t, c.Start(ctx), ErrControlDisabled)
	assert.True(t, gateway.IsValidation(c.SetServerAddress("10.0.0.77")))
	assert.True(t, gateway.IsValidation(c.SelectInterface("eth9")))
	assert.Equal(t, "Interface cannot change while a request is in progress", rec.lastNotice().Message)

	close(unblock)
	require.NoError(t, <-done)

	snap = c.Snapshot()
	assert.Equal(t, session.PhaseAttacking, snap.Status.Phase)
	assert.Equal(t, startedWith.Interface, snap.Status.Interface)
	assert.Equal(t, startedWith.ServerAddress, snap.Status.ServerAddress)
	assert.Zero(t, gw.count("discover"))
	assert.NotContains(t, rec.phases(), session.PhaseDiscovering)
}

func TestDiscoverInFlightLocksInputs(t *testing.T) {
	gw := newFakeGateway()
	entered := make(chan struct{})
	unblock := make(chan struct{})
	gw.discover = func(string) (*gateway.DiscoverResult, error) {
		close(entered)
		<-unblock
		return &gateway.DiscoverResult{ServerAddress: "10.0.0.1"}, nil
	}
	c, _ := newTestController(gw)
	defer c.Dispose()
	require.NoError(t, c.SelectInterface("eth0"))

	done := make(chan error, 1)
	go func() { done <- c.Discover(ctx) }()
	<-entered

	assert.True(t, gateway.IsValidation(c.SelectInterface("eth9")))
	assert.True(t, gateway.IsValidation(c.SetServerAddress("10.0.0.77")))

	close(unblock)
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, "eth0", snap.Status.Interface)
	assert.Equal(t, "10.0.0.1", snap.Status.ServerAddress)
	assert.False(t, snap.Status.InputsLocked())
}

func TestDiscoverPanicReleasesBusyControl(t *testing.T) {
	gw := newFakeGateway()
	gw.discover = func(string) (*gateway.DiscoverResult, error) { panic("gateway bug") }
	c, _ := newTestController(gw)
	defer c.Dispose()
	require.NoError(t, c.SelectInterface("eth0"))

	func() {
		defer func() { _ = recover() }()
		_ = c.Discover(ctx)
	}()

	snap := c.Snapshot()
	assert.False(t, snap.Status.Controls.DiscoverBusy)
	assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
}

func TestInputsLockedWhileAttacking(t *testing.T) {
	gw := newFakeGateway()
	c, _ := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)

	assert.True(t, gateway.IsValidation(c.SelectInterface("wlan0")))
	assert.True(t, gateway.IsValidation(c.SetServerAddress("10.0.0.9")))
	assert.ErrorIs(t, c.Discover(ctx), ErrControlDisabled)

	snap := c.Snapshot()
	assert.Equal(t, "eth0", snap.Status.Interface)
	assert.Equal(t, "10.0.0.1", snap.Status.ServerAddress)
}

func TestSelectUnknownInterface(t *testing.T) {
	gw := newFakeGateway()
	gw.interfaces = []session.Interface{{Name: "eth0", Address: "10.0.0.2"}}
	c, _ := newTestController(gw)
	defer c.Dispose()

	_, err := c.LoadInterfaces(ctx)
	require.NoError(t, err)
	assert.True(t, gateway.IsValidation(c.SelectInterface("wlan9")))
	assert.NoError(t, c.SelectInterface("eth0"))
}

func TestStopSuccess(t *testing.T) {
	gw := newFakeGateway()
	c, rec := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)

	require.NoError(t, c.Stop(ctx))
	snap := c.Snapshot()
	assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
	assert.Equal(t, "Attack stopped", snap.Status.Text)
	assert.False(t, snap.Status.InputsLocked())
	assert.False(t, c.Polling())
	assert.Equal(t, "Attack stopped", rec.lastNotice().Message)

	after := gw.count("status")
	time.Sleep(5 * testPoll)
	assert.Equal(t, after, gw.count("status"), "no polls after stop")
}

func TestStopFailureKeepsAttacking(t *testing.T) {
	gw := newFakeGateway()
	gw.stop = func() error { return gateway.NewTransportError("stop", errors.New("reset")) }
	c, rec := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)

	require.Error(t, c.Stop(ctx))
	snap := c.Snapshot()
	assert.Equal(t, session.PhaseAttacking, snap.Status.Phase)
	assert.False(t, snap.Status.Controls.AttackBusy)
	assert.True(t, c.Polling())
	assert.Equal(t, "Failed to stop attack", rec.lastNotice().Message)
}

func TestStopWhenIdle(t *testing.T) {
	gw := newFakeGateway()
	c, _ := newTestController(gw)
	defer c.Dispose()

	assert.True(t, gateway.IsValidation(c.Stop(ctx)))
	assert.Zero(t, gw.count("stop"))
}

func TestToggle(t *testing.T) {
	gw := newFakeGateway()
	c, _ := newTestController(gw)
	defer c.Dispose()
	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.SetServerAddress("10.0.0.1"))

	require.NoError(t, c.Toggle(ctx))
	assert.Equal(t, session.PhaseAttacking, c.Snapshot().Status.Phase)
	require.NoError(t, c.Toggle(ctx))
	assert.Equal(t, session.PhaseIdle, c.Snapshot().Status.Phase)
	assert.Equal(t, 1, gw.count("start"))
	assert.Equal(t, 1, gw.count("stop"))
}

func TestRunningFalseEndsAttack(t *testing.T) {
	gw := newFakeGateway()
	gw.setStatus(func() (*gateway.StatusResult, error) {
		return &gateway.StatusResult{Running: false, Leases: leases("10.0.0.50", "10.0.0.51")}, nil
	})
	c, _ := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)

	require.Eventually(t, func() bool {
		return c.Snapshot().Status.Phase == session.PhaseIdle
	}, waitFor, tick)

	snap := c.Snapshot()
	assert.Equal(t, "Attack completed", snap.Status.Text)
	assert.False(t, snap.Status.Running)
	assert.False(t, snap.Status.InputsLocked())
	assert.False(t, c.Polling())
	assert.Equal(t, "2 IPs", snap.Counter(), "the final response is still reconciled")

	calls := gw.count("status")
	time.Sleep(5 * testPoll)
	assert.Equal(t, calls, gw.count("status"), "no further status calls after the loop stopped")
}

func TestPollFailuresAreSwallowed(t *testing.T) {
	gw := newFakeGateway()
	gw.setStatus(func() (*gateway.StatusResult, error) {
		return nil, gateway.NewTransportError("status", errors.New("reset"))
	})
	c, rec := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)
	notices := rec.noticeCount()

	require.Eventually(t, func() bool { return gw.count("status") >= 3 }, waitFor, tick)
	assert.Equal(t, session.PhaseAttacking, c.Snapshot().Status.Phase)
	assert.True(t, c.Polling())
	assert.Equal(t, notices, rec.noticeCount(), "poll failures are not shown to the user")
}

func TestStalePollResponseIsIgnored(t *testing.T) {
	gw := newFakeGateway()
	inFlight := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	gw.setStatus(func() (*gateway.StatusResult, error) {
		once.Do(func() { close(inFlight) })
		<-unblock
		return &gateway.StatusResult{Running: true, Leases: leases("10.0.0.50")}, nil
	})
	c, _ := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)

	<-inFlight
	require.NoError(t, c.Stop(ctx))
	close(unblock)

	time.Sleep(5 * testPoll)
	snap := c.Snapshot()
	assert.Equal(t, session.PhaseIdle, snap.Status.Phase)
	assert.False(t, c.Polling(), "a stale response must not restart polling")
	assert.Empty(t, snap.Rows, "a stale response must not touch the table")
	assert.Equal(t, 1, gw.count("status"))
}

func TestPollMergesNetworkInfo(t *testing.T) {
	gw := newFakeGateway()
	gw.setStatus(func() (*gateway.StatusResult, error) {
		return &gateway.StatusResult{Running: true, Network: &session.NetworkInfo{PoolStart: "10.0.0.100", PoolEnd: "10.0.0.200"}}, nil
	})
	c, _ := newTestController(gw)
	defer c.Dispose()
	require.NoError(t, c.SelectInterface("eth0"))
	require.NoError(t, c.Discover(ctx))
	require.NoError(t, c.Start(ctx))

	require.Eventually(t, func() bool {
		return c.Snapshot().Status.Network.PoolRange() == "10.0.0.100 - 10.0.0.200"
	}, waitFor, tick)
	assert.Equal(t, "10.0.0.1", c.Snapshot().Status.Network.ServerAddress, "discovered fields survive")
}

func TestEventualConsistency(t *testing.T) {
	gw := newFakeGateway()
	sequence := [][]string{
		{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		{"10.0.0.2", "10.0.0.4"},
		{"10.0.0.1", "10.0.0.4", "10.0.0.5"},
	}
	var mu sync.Mutex
	step := 0
	gw.setStatus(func() (*gateway.StatusResult, error) {
		mu.Lock()
		defer mu.Unlock()
		addrs := sequence[step]
		if step < len(sequence)-1 {
			step++
		}
		return &gateway.StatusResult{Running: true, Leases: leases(addrs...)}, nil
	})
	c, _ := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		if len(snap.Rows) != 3 {
			return false
		}
		for _, row := range snap.Rows {
			if row.State == present.RowExiting {
				return false
			}
		}
		return assert.ObjectsAreEqual(
			map[string]bool{"10.0.0.1": true, "10.0.0.4": true, "10.0.0.5": true},
			addrSet(snap.Addresses()),
		)
	}, waitFor, tick)
	assert.Equal(t, "3 IPs", c.Snapshot().Counter())
}

func TestSnapshotsAreSequenced(t *testing.T) {
	gw := newFakeGateway()
	c, rec := newTestController(gw)
	defer c.Dispose()
	startAttacking(t, c)
	require.NoError(t, c.Stop(ctx))

	seqs := rec.seqs()
	require.NotEmpty(t, seqs)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestDispose(t *testing.T) {
	gw := newFakeGateway()
	gw.setStatus(running("10.0.0.1"))
	c, _ := newTestController(gw)
	startAttacking(t, c)
	require.Eventually(t, func() bool { return gw.count("status") > 0 }, waitFor, tick)

	c.Dispose()
	c.Dispose()
	assert.False(t, c.Polling())

	calls := gw.count("status")
	time.Sleep(5 * testPoll)
	assert.Equal(t, calls, gw.count("status"))

	assert.ErrorIs(t, c.Start(ctx), ErrDisposed)
	assert.ErrorIs(t, c.Discover(ctx), ErrDisposed)
	assert.ErrorIs(t, c.Release(ctx, "10.0.0.1"), ErrDisposed)
	assert.ErrorIs(t, c.ReleaseAll(ctx, AlwaysConfirm), ErrDisposed)
}

func addrSet(addrs []string) map[string]bool {
	out := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		out[a] = true
	}
	return out
}
