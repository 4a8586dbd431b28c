package present

import (
	"time"

	"github.com/muurk/starvectl/internal/reconcile"
	"github.com/muurk/starvectl/internal/session"
)

// PlaceholderText is shown in place of rows when no lease is held
const PlaceholderText = "No IPs exhausted yet. Start an attack to see results."

// RowState is the transition state of a rendered row
type RowState int

const (
	// RowEntering is a row added by the latest reconciliation
	RowEntering RowState = iota
	// RowSteady is a row whose entry transition has finished
	RowSteady
	// RowExiting is a row waiting out its exit transition before removal
	RowExiting
)

// String returns a human-readable name for the state
func (s RowState) String() string {
	switch s {
	case RowEntering:
		return "entering"
	case RowSteady:
		return "steady"
	case RowExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Row is one rendered lease
type Row struct {
	Lease session.Lease
	State RowState
	// Since is when the row entered its current state
	Since time.Time
	// Releasing means a single release for this address is in flight and
	// its release control is disabled
	Releasing bool
}

// Table is the rendered lease set. It keeps rows in display order, the
// placeholder flag and the authoritative counter. It is not safe for
// concurrent use; the controller owns it.
type Table struct {
	rows        []Row
	placeholder bool
	count       int
}

// NewTable returns an empty table showing the placeholder
func NewTable() *Table {
	return &Table{placeholder: true}
}

// Reconciled describes the table for the diff engine
func (t *Table) Reconciled() []reconcile.Row {
	out := make([]reconcile.Row, len(t.rows))
	for i, row := range t.rows {
		out[i] = reconcile.Row{Address: row.Lease.Address, Exiting: row.State == RowExiting}
	}
	return out
}

// Apply applies a reconciliation plan. Rows named in Removals start their
// exit transition; Additions are appended as entering rows.
func (t *Table) Apply(plan reconcile.Plan, now time.Time) {
	if plan.Clear {
		t.Clear()
		return
	}

	for _, addr := range plan.Removals {
		t.Remove(addr, now)
	}

	if len(plan.Additions) > 0 {
		// The placeholder never shares the table with data rows
		t.placeholder = false
		for _, lease := range plan.Additions {
			t.rows = append(t.rows, Row{Lease: lease, State: RowEntering, Since: now})
		}
	}

	t.count = plan.Count
}

// Sweep finishes transitions older than delay: exiting rows are dropped and
// entering rows become steady. It reports whether anything changed.
func (t *Table) Sweep(now time.Time, delay time.Duration) bool {
	changed := false
	kept := t.rows[:0]
	for _, row := range t.rows {
		done := now.Sub(row.Since) >= delay
		switch {
		case row.State == RowExiting && done:
			changed = true
			continue
		case row.State == RowEntering && done:
			row.State = RowSteady
			changed = true
		}
		kept = append(kept, row)
	}
	// Release the tail for the garbage collector
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = Row{}
	}
	t.rows = kept
	return changed
}

// NextDeadline returns the earliest moment a pending transition finishes,
// or false when none is pending
func (t *Table) NextDeadline(delay time.Duration) (time.Time, bool) {
	var next time.Time
	found := false
	for _, row := range t.rows {
		if row.State == RowSteady {
			continue
		}
		at := row.Since.Add(delay)
		if !found || at.Before(next) {
			next = at
			found = true
		}
	}
	return next, found
}

// MarkReleasing disables the release control of addr. It returns false when
// the row is absent, exiting or already releasing.
func (t *Table) MarkReleasing(addr string) bool {
	i := t.index(addr)
	if i < 0 || t.rows[i].State == RowExiting || t.rows[i].Releasing {
		return false
	}
	t.rows[i].Releasing = true
	return true
}

// RestoreRelease re-enables the release control of addr if the row is
// still rendered
func (t *Table) RestoreRelease(addr string) {
	if i := t.index(addr); i >= 0 {
		t.rows[i].Releasing = false
	}
}

// Remove starts the exit transition of addr. Removing an absent or already
// exiting row is a no-op; it reports whether the row changed.
func (t *Table) Remove(addr string, now time.Time) bool {
	i := t.index(addr)
	if i < 0 || t.rows[i].State == RowExiting {
		return false
	}
	t.rows[i].State = RowExiting
	t.rows[i].Since = now
	t.rows[i].Releasing = false
	return true
}

// SetCount sets the counter to a server-reported value
func (t *Table) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	t.count = n
}

// Clear drops every row, zeroes the counter and shows the placeholder
func (t *Table) Clear() {
	t.rows = nil
	t.count = 0
	t.placeholder = true
}

// Rendered returns a copy of the rows in display order
func (t *Table) Rendered() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Has reports whether addr is rendered (exiting rows included)
func (t *Table) Has(addr string) bool {
	return t.index(addr) >= 0
}

// Count returns the authoritative lease count
func (t *Table) Count() int {
	return t.count
}

// Placeholder reports whether the placeholder row is shown
func (t *Table) Placeholder() bool {
	return t.placeholder
}

func (t *Table) index(addr string) int {
	for i := range t.rows {
		if t.rows[i].Lease.Address == addr {
			return i
		}
	}
	return -1
}
