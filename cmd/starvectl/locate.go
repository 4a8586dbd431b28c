package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/starvectl/internal/locate"
	"github.com/muurk/starvectl/internal/ui"
)

func newLocateCmd(e *env) *cobra.Command {
	var (
		timeout time.Duration
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the lab service on the local network",
		Long: `Browse mDNS for lab services advertising ` + locate.ServiceType + `.

With --save the first service found becomes the default --api.`,
		Example: `  # Browse for 5 seconds (default)
  starvectl locate

  # Remember the service for later commands
  starvectl locate --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p := ui.NewPrinter(cmd.OutOrStdout())

			browser := locate.NewBrowser()
			browser.Timeout = timeout

			p.PrintStep(false, fmt.Sprintf("Browsing for lab services (timeout: %s)...", timeout))
			services, err := browser.Browse(cmd.Context())
			if err != nil {
				p.PrintError("mDNS browse failed", err, []string{
					"Multicast DNS must be allowed on this network",
					"Point --api at the service directly instead",
				})
				return fmt.Errorf("locate failed: %w", err)
			}

			if len(services) == 0 {
				p.PrintWarning("No lab service found",
					ui.Detail{Key: "Service type", Value: locate.ServiceType},
					ui.Detail{Key: "Hint", Value: "try a longer --wait"},
				)
				return nil
			}

			for i, svc := range services {
				p.Println(fmt.Sprintf("%d. %s", i+1, svc.String()))
			}

			if save {
				url := services[0].BaseURL()
				e.registry.SetAPIURL(url)
				if err := e.registry.SaveTo(e.registryPath); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
				p.PrintStep(true, "Saved "+url+" as the default service")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "wait", locate.DefaultTimeout, "How long to browse")
	cmd.Flags().BoolVar(&save, "save", false, "Save the first service found as the default --api")
	return cmd
}
