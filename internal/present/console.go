package present

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console is a line-oriented Renderer for headless use. It prints one line
// per added or removed lease and per status or counter change.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	lastSeq uint64
	shown   map[string]bool
	status  string
	count   int

	added   lipgloss.Style
	removed lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

// NewConsole returns a Console writing to w. Colors are used only when w is
// a terminal.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		out:     w,
		shown:   make(map[string]bool),
		count:   -1,
		added:   r.NewStyle().Foreground(lipgloss.Color("#43BF6D")),
		removed: r.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#626262")),
		success: r.NewStyle().Foreground(lipgloss.Color("#43BF6D")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true),
	}
}

// Render prints what changed since the previous snapshot
func (c *Console) Render(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Seq != 0 && s.Seq <= c.lastSeq {
		return
	}
	c.lastSeq = s.Seq

	if s.Status.Text != c.status {
		c.status = s.Status.Text
		fmt.Fprintln(c.out, c.muted.Render("status: ")+s.Status.Text)
	}

	current := make(map[string]bool, len(s.Rows))
	for _, row := range s.Rows {
		if row.State == RowExiting {
			continue
		}
		addr := row.Lease.Address
		current[addr] = true
		if !c.shown[addr] {
			fmt.Fprintln(c.out, c.added.Render("+ "+addr)+
				c.muted.Render(fmt.Sprintf("  %s  %s", row.Lease.HardwareAddress, row.Lease.AcquiredAt)))
		}
	}
	for addr := range c.shown {
		if !current[addr] {
			fmt.Fprintln(c.out, c.removed.Render("- "+addr))
		}
	}
	c.shown = current

	if s.Count != c.count {
		c.count = s.Count
		fmt.Fprintln(c.out, c.muted.Render("leases: ")+s.Counter())
	}
}

// Notify prints a notification line
func (c *Console) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch n.Level {
	case NoticeSuccess:
		fmt.Fprintln(c.out, c.success.Render("✓ ")+n.Message)
	case NoticeError:
		fmt.Fprintln(c.out, c.failure.Render("✗ ")+n.Message)
	default:
		fmt.Fprintln(c.out, c.muted.Render("· ")+n.Message)
	}
}
