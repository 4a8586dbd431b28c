// Package reconcile computes the minimal change that makes a rendered lease
// table match the authoritative lease list from a status poll.
//
// Diff is a pure function; applying the plan is left to the caller.
package reconcile

import "github.com/muurk/starvectl/internal/session"

// Row is one currently rendered row
type Row struct {
	Address string
	// Exiting rows are already fading out. They count as present, so an
	// address that comes back during its exit transition is not added a
	// second time.
	Exiting bool
}

// Plan is the result of a diff
type Plan struct {
	// Removals lists rendered addresses missing from the authoritative
	// list, in rendered order. Empty when Clear is set.
	Removals []string

	// Additions lists authoritative leases not yet rendered, in
	// authoritative order
	Additions []session.Lease

	// Count is the authoritative lease count
	Count int

	// Clear means the authoritative list is empty: the table is replaced
	// by the placeholder outright
	Clear bool
}

// ShowReleaseAll reports whether the bulk-release affordance is visible
func (p Plan) ShowReleaseAll() bool {
	return p.Count > 0
}

// IsNoop reports whether applying the plan changes no rows
func (p Plan) IsNoop() bool {
	return !p.Clear && len(p.Removals) == 0 && len(p.Additions) == 0
}

// Diff compares the rendered rows against the authoritative leases.
// Unchanged addresses appear in neither list.
func Diff(rendered []Row, leases []session.Lease) Plan {
	plan := Plan{Count: len(leases)}

	if len(leases) == 0 {
		plan.Clear = true
		return plan
	}

	present := make(map[string]struct{}, len(rendered))
	for _, row := range rendered {
		present[row.Address] = struct{}{}
	}

	authoritative := make(map[string]struct{}, len(leases))
	for _, lease := range leases {
		authoritative[lease.Address] = struct{}{}
	}

	for _, row := range rendered {
		if row.Exiting {
			continue
		}
		if _, ok := authoritative[row.Address]; !ok {
			plan.Removals = append(plan.Removals, row.Address)
		}
	}

	for _, lease := range leases {
		if _, ok := present[lease.Address]; ok {
			continue
		}
		// Marking it present drops duplicates within the list
		present[lease.Address] = struct{}{}
		plan.Additions = append(plan.Additions, lease)
	}

	return plan
}
