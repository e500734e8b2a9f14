package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/dogfight/internal/config"
	"github.com/BioHazard786/dogfight/internal/events"
	"github.com/BioHazard786/dogfight/internal/logging"
	"github.com/BioHazard786/dogfight/internal/server"
	"github.com/BioHazard786/dogfight/internal/signaling"
	"github.com/BioHazard786/dogfight/internal/version"
)

var serveOpts config.Options

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Example: `  dogfight serve
  dogfight serve --addr :9000 --log-level debug
  dogfight serve --config dogfight.yaml --nats-url nats://localhost:4222`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVarP(&serveOpts.File, "config", "c", "", "YAML config file (env: DOGFIGHT_CONFIG)")
	flags.StringVar(&serveOpts.Addr, "addr", "", "listen address (env: DOGFIGHT_ADDR, PORT)")
	flags.StringVar(&serveOpts.Path, "path", "", "WebSocket path (env: DOGFIGHT_PATH)")
	flags.StringVar(&serveOpts.LogLevel, "log-level", "", "debug, info, warn or error (env: LOG_LEVEL)")
	flags.StringVar(&serveOpts.LogFormat, "log-format", "", "text or json (env: LOG_FORMAT)")
	flags.StringVar(&serveOpts.NATSURL, "nats-url", "", "publish room events to this NATS server (env: NATS_URL)")
	flags.IntVar(&serveOpts.MaxPeers, "max-peers", 0, fmt.Sprintf("players per room, 2 to %d (env: DOGFIGHT_MAX_PEERS)", config.MaxRoomPeers))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveOpts)
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)

	var sink events.Sink = events.Nop{}
	if cfg.Events.NATSURL != "" {
		publisher, err := events.DialNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sink = publisher
		logger.Info("Publishing room events", "nats", cfg.Events.NATSURL, "prefix", cfg.Events.SubjectPrefix)
	}

	hub := signaling.NewHub(signaling.Options{
		MaxPeers:         cfg.Relay.MaxPeers,
		IdleTimeout:      cfg.Relay.IdleTimeout,
		SweepInterval:    cfg.Relay.SweepInterval,
		HandshakeTimeout: cfg.Relay.HandshakeTimeout,
		MaxMessageSize:   cfg.Relay.MaxMessageSize,
		SendBuffer:       cfg.Relay.SendBuffer,
		Sink:             sink,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("dogfight relay", "version", version.Version, "path", cfg.Server.Path, "max_peers", cfg.Relay.MaxPeers)
	return server.New(cfg, hub, logger).Run(ctx)
}
