package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/starvectl/internal/session"
)

// RenderLeaseTable renders acquired leases as a bordered table. An empty
// list renders placeholder instead.
func RenderLeaseTable(leases []session.Lease, placeholder string) string {
	if len(leases) == 0 {
		return PlaceholderStyle.Render(placeholder)
	}

	rows := make([][]string, 0, len(leases))
	for _, l := range leases {
		rows = append(rows, []string{l.Address, l.HardwareAddress, l.AcquiredAt})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers("IP ADDRESS", "MAC ADDRESS", "ACQUIRED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Render()
}

// RenderNetwork renders discovered network facts as result details. Unknown
// fields are omitted.
func RenderNetwork(n session.NetworkInfo) []Detail {
	var out []Detail
	add := func(key, value string) {
		if value != "" {
			out = append(out, Detail{Key: key, Value: value})
		}
	}
	add("DHCP Server", n.ServerAddress)
	add("Router", n.RouterAddress)
	add("Subnet Mask", n.SubnetMask)
	add("Pool", n.PoolRange())
	return out
}
