// Package ui provides styled one-shot terminal output for the starvectl
// commands.
//
// Unlike the interactive console in package tui, these components render
// once and exit:
//
//   - Header: command banner with the operation name and its parameters
//   - Result: success, warning and failure boxes with ordered details
//   - Confirm: yes/no prompt guarding destructive operations
//   - RenderLeaseTable: acquired leases as a bordered table
//
// Commands usually go through a Printer:
//
//	p := ui.NewPrinter(cmd.OutOrStdout())
//	p.PrintHeader("DHCP Discovery", "starvectl discover",
//	    ui.Param{Key: "Interface", Value: iface})
//
//	found, err := client.Discover(ctx, iface)
//	if err != nil {
//	    p.PrintError("Discovery failed", err, gateway.Hint(err))
//	    return err
//	}
//	p.PrintSuccess("DHCP server discovered", ui.RenderNetwork(found.Network)...)
//
// All colours adapt to light and dark terminals through lipgloss.
package ui
