package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/starvectl/internal/attack"
	"github.com/muurk/starvectl/internal/config"
	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/metrics"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/tui"
	"github.com/muurk/starvectl/internal/version"
)

// options holds the persistent flag values
type options struct {
	apiURL      string
	iface       string
	server      string
	configPath  string
	timeout     time.Duration
	logLevel    string
	logFile     string
	metricsAddr string
}

// env is the per-invocation runtime built from the flags and the saved
// preferences
type env struct {
	opts         *options
	registry     *config.Registry
	registryPath string
	apiURL       string
	client       *gateway.Client
	recorder     *metrics.Recorder
	stopMetrics  context.CancelFunc
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	e := &env{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "starvectl",
		Short: "DHCP Exhaustion Lab Client",
		Long: `An operator client for the DHCP address-exhaustion lab service.

Select a network interface, discover the DHCP server behind it, start the
exhaustion attack and watch the stolen leases arrive. Leases can be given
back one at a time or all at once.

If no command is specified, the interactive console launches.`,
		Version:       version.Full(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, e)
		},
	}

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", "", "Lab service URL (default: saved preference or "+config.DefaultAPIURL+")")
	flags.StringVarP(&opts.iface, "interface", "i", "", "Network interface to attack from")
	flags.StringVarP(&opts.server, "server", "s", "", "DHCP server IPv4 address")
	flags.StringVar(&opts.configPath, "config", "", "Config file path (default: OS config directory)")
	flags.DurationVar(&opts.timeout, "timeout", gateway.DefaultTimeout, "Per-request timeout (e.g., 10s, 1m)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $"+logging.LogLevelEnvVar+" or silent)")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9090)")

	rootCmd.AddCommand(
		newInterfacesCmd(e),
		newDiscoverCmd(e),
		newStartCmd(e),
		newStopCmd(e),
		newStatusCmd(e),
		newReleaseCmd(e),
		newReleaseAllCmd(e),
		newWatchCmd(e),
		newLocateCmd(e),
		newThemeCmd(e),
		newVersionCmd(),
	)

	return rootCmd
}

// setup initializes logging, loads preferences and builds the gateway
// client
func (e *env) setup(cmd *cobra.Command) error {
	if err := logging.Initialize(e.opts.logLevel, e.opts.logFile); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}

	path := e.opts.configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	registry, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	e.registry = registry
	e.registryPath = path

	e.apiURL = e.opts.apiURL
	if e.apiURL == "" {
		e.apiURL = registry.APIURL()
	}

	recorder, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	e.recorder = recorder

	e.client = gateway.NewClient(e.apiURL)
	e.client.SetTimeout(e.opts.timeout)
	e.client.Observer = recorder

	if e.opts.metricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		e.stopMetrics = cancel
		go func() {
			if err := recorder.Serve(ctx, e.opts.metricsAddr); err != nil {
				logging.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	logging.Debug("Command starting",
		zap.String("command", cmd.CommandPath()),
		zap.String("api", e.apiURL),
		zap.String("config", path),
	)
	return nil
}

func (e *env) close() {
	if e.stopMetrics != nil {
		e.stopMetrics()
	}
	logging.Sync()
}

// newController builds a controller reporting to r
func (e *env) newController(r present.Renderer) *attack.Controller {
	return attack.New(e.client, attack.Config{
		PollInterval: e.registry.PollInterval(),
		Renderer:     r,
		Metrics:      e.recorder,
	})
}

// interfaceName resolves the interface: flag, then the one remembered for
// this service, then the last one used anywhere
func (e *env) interfaceName() string {
	if e.opts.iface != "" {
		return e.opts.iface
	}
	if svc := e.registry.GetService(e.apiURL); svc != nil && svc.LastInterface != "" {
		return svc.LastInterface
	}
	if e.registry.Preferences != nil {
		return e.registry.Preferences.LastInterface
	}
	return ""
}

// serverAddress resolves the DHCP server: flag, then the one remembered
// for this service
func (e *env) serverAddress() string {
	if e.opts.server != "" {
		return e.opts.server
	}
	if svc := e.registry.GetService(e.apiURL); svc != nil {
		return svc.LastDHCPServer
	}
	return ""
}

// remember saves the interface and server used against this service.
// Failures are logged; they never fail the command.
func (e *env) remember(iface, server string) {
	e.registry.RememberSession(e.apiURL, iface, server)
	e.save()
}

func (e *env) save() {
	if err := e.registry.SaveTo(e.registryPath); err != nil {
		logging.Warn("Failed to save config", zap.String("path", e.registryPath), zap.Error(err))
	}
}

// prepare builds a controller with the resolved interface and server
// applied
func (e *env) prepare(r present.Renderer) (*attack.Controller, error) {
	ctrl := e.newController(r)
	if err := ctrl.SelectInterface(e.interfaceName()); err != nil {
		ctrl.Dispose()
		return nil, err
	}
	if err := ctrl.SetServerAddress(e.serverAddress()); err != nil {
		ctrl.Dispose()
		return nil, err
	}
	return ctrl, nil
}

// runConsole launches the interactive console
func runConsole(cmd *cobra.Command, e *env) error {
	// The console owns the terminal; only a log file may receive output
	if e.opts.logFile == "" {
		logging.SetLogger(zap.NewNop())
	}

	bridge := tui.NewBridge()
	ctrl := e.newController(bridge)
	defer ctrl.Dispose()

	err := tui.Run(bridge, tui.Options{
		Controller:    ctrl,
		Theme:         e.registry.Theme(),
		Interface:     e.interfaceName(),
		ServerAddress: e.serverAddress(),
		APIURL:        e.apiURL,
		SaveTheme: func(theme string) error {
			if err := e.registry.SetTheme(theme); err != nil {
				return err
			}
			return e.registry.SaveTo(e.registryPath)
		},
	})
	if err != nil {
		return fmt.Errorf("console failed: %w", err)
	}

	st := ctrl.Snapshot().Status
	e.remember(st.Interface, st.ServerAddress)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "starvectl %s (commit: %s)\n", version.Version, version.Commit)
		},
	}
}
