package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/muurk/starvectl/internal/attack"
	"github.com/muurk/starvectl/internal/config"
	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
	"github.com/muurk/starvectl/internal/ui"
)

// Status output formats
const (
	formatTable = "table"
	formatJSON  = "json"
)

// noticeLog is a Renderer for one-shot commands. It keeps the last
// notification so failures can be reported with the controller's text.
type noticeLog struct {
	mu   sync.Mutex
	last *present.Notice
}

func (n *noticeLog) Render(present.Snapshot) {}

func (n *noticeLog) Notify(notice present.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = &notice
}

// message returns the last notification text, or fallback
func (n *noticeLog) message(fallback string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return fallback
	}
	return n.last.Message
}

func newInterfacesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List the network interfaces the lab service can attack from",
		Example: `  # List interfaces on the default service
  starvectl interfaces

  # List interfaces on a remote lab host
  starvectl interfaces --api http://192.168.56.10:5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())

			ifaces, err := e.client.ListInterfaces(cmd.Context())
			if err != nil {
				p.PrintError(gateway.UserMessage(err, "Failed to load network interfaces"), err, gateway.Hint(err))
				return fmt.Errorf("failed to list interfaces: %w", err)
			}

			if len(ifaces) == 0 {
				p.PrintWarning("No network interfaces reported by the service")
				return nil
			}

			current := e.interfaceName()
			for _, iface := range ifaces {
				marker := "  "
				if iface.Name == current {
					marker = "→ "
				}
				p.Println(marker + iface.Label())
			}
			return nil
		},
	}
}

func newDiscoverCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover the DHCP server reachable from an interface",
		Long: `Ask the lab service to locate the DHCP server on the selected interface.

The discovered server address is remembered for this service, so later
'start' and 'release' commands can omit --server.`,
		Example: `  starvectl discover --interface eth0`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())
			iface := e.interfaceName()

			p.PrintHeader("DHCP Discovery", "starvectl discover",
				ui.Param{Key: "Service", Value: e.apiURL},
				ui.Param{Key: "Interface", Value: iface},
			)
			p.PrintStep(false, "Discovering DHCP server...")

			notices := &noticeLog{}
			ctrl, err := e.prepare(notices)
			if err != nil {
				p.PrintError(gateway.UserMessage(err, "Invalid arguments"), err, gateway.Hint(err))
				return err
			}
			defer ctrl.Dispose()

			if err := ctrl.Discover(cmd.Context()); err != nil {
				p.PrintError(notices.message("Failed to discover DHCP server"), err, gateway.Hint(err))
				return fmt.Errorf("discovery failed: %w", err)
			}

			st := ctrl.Snapshot().Status
			e.remember(st.Interface, st.ServerAddress)
			p.PrintSuccess(notices.message("DHCP server discovered successfully"), ui.RenderNetwork(st.Network)...)
			return nil
		},
	}
}

func newStartCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exhaustion attack",
		Long: `Start the DHCP exhaustion attack against the selected server.

The attack keeps running on the lab service after this command returns.
Use 'starvectl watch' to follow it live or 'starvectl status' to check on it.`,
		Example: `  # Start against a known server
  starvectl start --interface eth0 --server 10.0.0.1

  # Start with the interface and server remembered from 'discover'
  starvectl start`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())

			notices := &noticeLog{}
			ctrl, err := e.prepare(notices)
			if err != nil {
				p.PrintError(gateway.UserMessage(err, "Invalid arguments"), err, gateway.Hint(err))
				return err
			}
			// Disposing stops the local poll only; the attack keeps running
			defer ctrl.Dispose()

			st := ctrl.Snapshot().Status
			p.PrintHeader("Start Attack", "starvectl start",
				ui.Param{Key: "Service", Value: e.apiURL},
				ui.Param{Key: "Interface", Value: st.Interface},
				ui.Param{Key: "DHCP Server", Value: st.ServerAddress},
			)

			if err := ctrl.Start(cmd.Context()); err != nil {
				p.PrintError(notices.message("Failed to start attack"), err, gateway.Hint(err))
				return fmt.Errorf("start failed: %w", err)
			}

			e.remember(st.Interface, st.ServerAddress)
			p.PrintSuccess(notices.message("Attack started"),
				ui.Detail{Key: "Follow", Value: "starvectl watch"},
				ui.Detail{Key: "Stop", Value: "starvectl stop"},
			)
			return nil
		},
	}
}

func newStopCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running attack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())

			// A fresh process has no local Attacking phase, so the request
			// goes straight to the service
			if err := e.client.StopAttack(cmd.Context()); err != nil {
				p.PrintError(gateway.UserMessage(err, "Failed to stop attack"), err, gateway.Hint(err))
				return fmt.Errorf("stop failed: %w", err)
			}
			p.PrintSuccess("Attack stopped")
			return nil
		},
	}
}

func newStatusCmd(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the attack state and the stolen leases",
		Example: `  starvectl status

  # Machine-readable output
  starvectl status --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatTable, formatJSON)
			}
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())

			res, err := e.client.Status(cmd.Context())
			if err != nil {
				if format == formatJSON {
					return fmt.Errorf("status failed: %w", err)
				}
				p.PrintError(gateway.UserMessage(err, "Failed to fetch attack status"), err, gateway.Hint(err))
				return fmt.Errorf("status failed: %w", err)
			}

			if format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if res.Leases == nil {
					res.Leases = []session.Lease{}
				}
				return enc.Encode(res)
			}

			state := "Idle"
			if res.Running {
				state = "Attack in progress..."
			}
			details := []ui.Detail{
				{Key: "Service", Value: e.apiURL},
				{Key: "State", Value: state},
				{Key: "Stolen IPs", Value: present.FormatCount(len(res.Leases))},
			}
			if res.Network != nil {
				details = append(details, ui.RenderNetwork(*res.Network)...)
			}
			p.PrintSuccess("Attack status", details...)
			p.Println(ui.RenderLeaseTable(res.Leases, present.PlaceholderText))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table, json)")
	return cmd
}

func newReleaseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "release <ip>",
		Short: "Give one stolen address back to the DHCP server",
		Example: `  starvectl release 10.0.0.57 --interface eth0 --server 10.0.0.1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())
			addr := args[0]

			notices := &noticeLog{}
			ctrl, err := e.prepare(notices)
			if err != nil {
				p.PrintError(gateway.UserMessage(err, "Invalid arguments"), err, gateway.Hint(err))
				return err
			}
			defer ctrl.Dispose()

			if err := ctrl.Release(cmd.Context(), addr); err != nil {
				p.PrintError(notices.message("Failed to release IP"), err, gateway.Hint(err))
				return fmt.Errorf("release failed: %w", err)
			}

			p.PrintSuccess(notices.message(fmt.Sprintf("IP %s released successfully", addr)),
				ui.Detail{Key: "Remaining", Value: present.FormatCount(ctrl.Snapshot().Count)},
			)
			return nil
		},
	}
}

func newReleaseAllCmd(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "release-all",
		Short: "Give every stolen address back to the DHCP server",
		Example: `  # Asks for confirmation
  starvectl release-all

  # Non-interactive
  starvectl release-all --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			out := cmd.OutOrStdout()
			p := ui.NewPrinter(out)

			confirm := attack.Confirmer(attack.AlwaysConfirm)
			if !yes {
				in := cmd.InOrStdin()
				if in == os.Stdin && !ui.IsInteractive() {
					return errors.New("refusing to release all leases without --yes on a non-interactive terminal")
				}
				confirm = ui.ConfirmFunc(in, out, "RELEASE ALL LEASES", []string{
					"Every address acquired by the attack goes back to the DHCP server",
					"A running attack may acquire them again",
				})
			}

			notices := &noticeLog{}
			ctrl, err := e.prepare(notices)
			if err != nil {
				p.PrintError(gateway.UserMessage(err, "Invalid arguments"), err, gateway.Hint(err))
				return err
			}
			defer ctrl.Dispose()

			err = ctrl.ReleaseAll(cmd.Context(), confirm)
			switch {
			case errors.Is(err, attack.ErrCancelled):
				return nil
			case err != nil:
				p.PrintError(notices.message("Failed to release all IPs"), err, gateway.Hint(err))
				return fmt.Errorf("release-all failed: %w", err)
			}

			p.PrintSuccess(notices.message("Released all IPs successfully"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newThemeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the console theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{config.ThemeLight, config.ThemeDark},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), e.registry.Theme())
				return nil
			}
			if err := e.registry.SetTheme(args[0]); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			if err := e.registry.SaveTo(e.registryPath); err != nil {
				return fmt.Errorf("failed to save theme: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", args[0])
			return nil
		},
	}
}
