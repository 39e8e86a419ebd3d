package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/logging"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/spf13/cobra"
)

var (
	serveStore   config.StoreKind
	serveAdmins  string
	serveMetrics string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the teleauth daemon",
	Long: `Start the teleauth daemon in the foreground. The daemon opens the configured
store, listens on a Unix socket and handles all access operations.

Admins come from the config file or the TELEAUTH_ADMINS environment variable
(comma-separated user ids) and are never written to the store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Print(output.Error(err))
			return err
		}

		if cmd.Flags().Changed("store") {
			cfg.Store = serveStore
		}
		if serveAdmins != "" {
			admins, err := config.ParseAdmins(serveAdmins)
			if err != nil {
				output.Print(output.Error(err))
				return err
			}
			cfg.Admins = admins
		}
		if serveMetrics != "" {
			cfg.MetricsAddr = serveMetrics
		}

		logger, err := logging.Setup(cfg.Log)
		if err != nil {
			output.Print(output.Error(err))
			return err
		}

		d, err := daemon.NewDaemon(cfg, logger)
		if err != nil {
			err = fmt.Errorf("failed to create daemon: %w", err)
			output.Print(output.Error(err))
			return err
		}

		if err := d.Start(); err != nil {
			err = fmt.Errorf("failed to start daemon: %w", err)
			output.Print(output.Error(err))
			return err
		}

		output.Print(output.Success(
			"Daemon running",
			map[string]interface{}{
				"socket": cfg.SocketPath,
				"store":  string(cfg.Store),
				"path":   cfg.StorePath(),
				"pid":    os.Getpid(),
			},
			output.ActionStatus(),
			output.ActionList(),
		))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")

		if err := d.Stop(); err != nil {
			err = fmt.Errorf("shutdown error: %w", err)
			output.Print(output.Error(err))
			return err
		}

		output.Print(output.Success("Daemon stopped", nil))
		return nil
	},
}

func init() {
	serveStore = config.StoreDocument
	serveCmd.Flags().Var(&serveStore, "store", "Store backend: relational or document")
	serveCmd.Flags().StringVar(&serveAdmins, "admins", "", "Comma-separated admin user ids")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics-addr", "", "Serve Prometheus metrics on this address")
}
