package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
	"github.com/muurk/starvectl/internal/ui"
)

// stopTimeout bounds the stop request sent on interrupt
const stopTimeout = 10 * time.Second

// watcher forwards to a Renderer and closes done once the session leaves
// the Attacking phase
type watcher struct {
	present.Renderer

	once      sync.Once
	mu        sync.Mutex
	attacking bool
	done      chan struct{}
}

func newWatcher(r present.Renderer) *watcher {
	return &watcher{Renderer: r, done: make(chan struct{})}
}

func (w *watcher) Render(s present.Snapshot) {
	w.Renderer.Render(s)

	w.mu.Lock()
	defer w.mu.Unlock()
	switch s.Status.Phase {
	case session.PhaseAttacking:
		w.attacking = true
	case session.PhaseIdle:
		if w.attacking {
			w.once.Do(func() { close(w.done) })
		}
	}
}

func newWatchCmd(e *env) *cobra.Command {
	var stopOnExit bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Start the attack and follow it live",
		Long: `Start the attack and print every lease as it is acquired or released.

When no DHCP server is known, it is discovered first. The command returns
when the service reports the attack finished, or on Ctrl-C. By default
Ctrl-C leaves the attack running on the service; pass --stop-on-exit to
stop it.`,
		Example: `  starvectl watch --interface eth0

  # Stop the attack when interrupted
  starvectl watch --interface eth0 --stop-on-exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			w := newWatcher(present.NewConsole(out))
			ctrl, err := e.prepare(w)
			if err != nil {
				return err
			}
			defer ctrl.Dispose()

			ui.NewPrinter(out).PrintHeader("Attack Console", "starvectl watch",
				ui.Param{Key: "Service", Value: e.apiURL},
				ui.Param{Key: "Interface", Value: ctrl.Snapshot().Status.Interface},
				ui.Param{Key: "DHCP Server", Value: ctrl.Snapshot().Status.ServerAddress},
			)

			if ctrl.Snapshot().Status.ServerAddress == "" {
				if err := ctrl.Discover(ctx); err != nil {
					return fmt.Errorf("discovery failed: %w", err)
				}
			}
			if err := ctrl.Start(ctx); err != nil {
				return fmt.Errorf("start failed: %w", err)
			}
			st := ctrl.Snapshot().Status
			e.remember(st.Interface, st.ServerAddress)

			select {
			case <-w.done:
				return nil
			case <-ctx.Done():
			}

			if !stopOnExit {
				fmt.Fprintln(out, "Detached; the attack keeps running on the service.")
				return nil
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := ctrl.Stop(stopCtx); err != nil {
				return fmt.Errorf("stop failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stopOnExit, "stop-on-exit", false, "Stop the attack on Ctrl-C")
	return cmd
}
