package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/barflysocial/bar-match-relay/internal/config"
	"github.com/barflysocial/bar-match-relay/internal/logging"
	"github.com/barflysocial/bar-match-relay/internal/metrics"
	"github.com/barflysocial/bar-match-relay/internal/relay"
	"github.com/barflysocial/bar-match-relay/internal/server"
	"github.com/barflysocial/bar-match-relay/internal/version"
)

var (
	flagConfig       string
	flagPort         int
	flagLogLevel     string
	flagLogFormat    string
	flagLenientRoles bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Run the relay server. Configuration is read from flags, then environment
variables (PORT, LOG_LEVEL, RELAY_*), then an optional YAML file.

Examples:
  barrelay serve
  barrelay serve --port 9000 --log-format json
  barrelay serve --config relay.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	opts := config.Options{
		ConfigPath: flagConfig,
		Port:       flagPort,
		LogLevel:   flagLogLevel,
		LogFormat:  flagLogFormat,
	}
	if cmd.Flags().Changed("lenient-roles") {
		opts.LenientRoles = &flagLenientRoles
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	hub := relay.NewHub(
		relay.NewRegistry(cfg.Relay.Shards),
		relay.Options{LenientRoles: cfg.Relay.LenientRoles},
		logger,
		m,
	)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"port", cfg.Server.Port,
		"lenient_roles", cfg.Relay.LenientRoles,
		"metrics", cfg.Metrics.Enabled,
	)
	return server.New(cfg, hub, m, logger).Run(cmd.Context())
}

func init() {
	serveCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to a YAML config file")
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	serveCmd.Flags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	serveCmd.Flags().BoolVar(&flagLenientRoles, "lenient-roles", false, "Treat any role other than host as guest")

	rootCmd.AddCommand(serveCmd)
}
