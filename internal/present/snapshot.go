package present

import (
	"fmt"

	"github.com/muurk/starvectl/internal/session"
)

// Snapshot is an immutable view of the controller state handed to a
// Renderer. Seq increases with every snapshot so renderers can drop frames
// that arrive out of order.
type Snapshot struct {
	Seq         uint64
	Status      session.Status
	Interfaces  []session.Interface
	Rows        []Row
	Placeholder bool
	Count       int
}

// Counter is the counter text, e.g. "1 IP" or "3 IPs"
func (s Snapshot) Counter() string {
	return FormatCount(s.Count)
}

// ShowReleaseAll reports whether the bulk-release affordance is visible
func (s Snapshot) ShowReleaseAll() bool {
	return s.Count > 0
}

// ReleaseAllLabel is the bulk-release control label
func (s Snapshot) ReleaseAllLabel() string {
	if s.Status.Controls.ReleaseAllBusy {
		return "Releasing..."
	}
	return "Release All"
}

// AttackLabel is the start/stop control label
func (s Snapshot) AttackLabel() string {
	if s.Status.Phase == session.PhaseAttacking {
		return "Stop Attack"
	}
	return "Start Attack"
}

// Row returns the rendered row for addr
func (s Snapshot) Row(addr string) (Row, bool) {
	for _, row := range s.Rows {
		if row.Lease.Address == addr {
			return row, true
		}
	}
	return Row{}, false
}

// Addresses lists rendered addresses in display order, exiting rows
// excluded
func (s Snapshot) Addresses() []string {
	out := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		if row.State != RowExiting {
			out = append(out, row.Lease.Address)
		}
	}
	return out
}

// FormatCount formats a lease count with singular/plural phrasing
func FormatCount(n int) string {
	if n == 1 {
		return "1 IP"
	}
	return fmt.Sprintf("%d IPs", n)
}

// NoticeLevel is the severity of a user-facing notification
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// String returns a human-readable name for the level
func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a single user-facing message
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Renderer displays controller state. Both methods are called outside the
// controller's lock and may be called from any goroutine.
type Renderer interface {
	Render(Snapshot)
	Notify(Notice)
}

// Discard is a Renderer that drops everything
type Discard struct{}

func (Discard) Render(Snapshot) {}
func (Discard) Notify(Notice)   {}
