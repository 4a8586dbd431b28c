package attack

import (
	"context"
	"sync"
	"time"

	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
)

// fakeGateway is an in-memory Gateway. Every hook is optional.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	interfaces []session.Interface
	discover   func(iface string) (*gateway.DiscoverResult, error)
	start      func(iface, server string) error
	stop       func() error
	status     func() (*gateway.StatusResult, error)
	release    func(req gateway.ReleaseRequest) (*gateway.ReleaseResult, error)
	releaseAll func(req gateway.ReleaseAllRequest) (*gateway.ReleaseAllResult, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int)}
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeGateway) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGateway) setStatus(fn func() (*gateway.StatusResult, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = fn
}

func (f *fakeGateway) ListInterfaces(context.Context) ([]session.Interface, error) {
	f.record("interfaces")
	return f.interfaces, nil
}

func (f *fakeGateway) Discover(_ context.Context, iface string) (*gateway.DiscoverResult, error) {
	f.record("discover")
	if f.discover == nil {
		return &gateway.DiscoverResult{ServerAddress: "10.0.0.1"}, nil
	}
	return f.discover(iface)
}

func (f *fakeGateway) StartAttack(_ context.Context, iface, server string) error {
	f.record("start")
	if f.start == nil {
		return nil
	}
	return f.start(iface, server)
}

func (f *fakeGateway) StopAttack(context.Context) error {
	f.record("stop")
	if f.stop == nil {
		return nil
	}
	return f.stop()
}

func (f *fakeGateway) Status(context.Context) (*gateway.StatusResult, error) {
	f.record("status")
	f.mu.Lock()
	fn := f.status
	f.mu.Unlock()
	if fn == nil {
		return &gateway.StatusResult{Running: true}, nil
	}
	return fn()
}

func (f *fakeGateway) Release(_ context.Context, req gateway.ReleaseRequest) (*gateway.ReleaseResult, error) {
	f.record("release")
	if f.release == nil {
		return &gateway.ReleaseResult{}, nil
	}
	return f.release(req)
}

func (f *fakeGateway) ReleaseAll(_ context.Context, req gateway.ReleaseAllRequest) (*gateway.ReleaseAllResult, error) {
	f.record("release-all")
	if f.releaseAll == nil {
		return &gateway.ReleaseAllResult{}, nil
	}
	return f.releaseAll(req)
}

// recorder is a Renderer that keeps everything it is given
type recorder struct {
	mu        sync.Mutex
	snapshots []present.Snapshot
	notices   []present.Notice
}

func (r *recorder) Render(s present.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) Notify(n present.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) lastNotice() present.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return present.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func (r *recorder) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recorder) seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, len(r.snapshots))
	for i, s := range r.snapshots {
		out[i] = s.Seq
	}
	return out
}

func (r *recorder) phases() []session.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Phase, len(r.snapshots))
	for i, s := range r.snapshots {
		out[i] = s.Status.Phase
	}
	return out
}

func leases(addrs ...string) []session.Lease {
	out := make([]session.Lease, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, session.Lease{Address: a, HardwareAddress: "aa:bb:cc:dd:ee:ff", AcquiredAt: "12:00:01"})
	}
	return out
}

func running(addrs ...string) func() (*gateway.StatusResult, error) {
	return func() (*gateway.StatusResult, error) {
		return &gateway.StatusResult{Running: true, Leases: leases(addrs...)}, nil
	}
}

const (
	testPoll = 10 * time.Millisecond
	testExit = 20 * time.Millisecond
	waitFor  = 2 * time.Second
	tick     = 5 * time.Millisecond
)

func newTestController(gw *fakeGateway) (*Controller, *recorder) {
	rec := &recorder{}
	c := New(gw, Config{PollInterval: testPoll, ExitDelay: testExit, PollTimeout: time.Second, Renderer: rec})
	return c, rec
}
