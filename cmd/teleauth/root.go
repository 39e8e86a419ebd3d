package main

import (
	"fmt"
	"os"

	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/spf13/cobra"
)

var (
	socketPath string
	configPath string
	outputMode string
)

var rootCmd = &cobra.Command{
	Use:   "teleauth",
	Short: "Time-bounded access control for chat bots",
	Long: `teleauth keeps a list of users with expiring access grants plus a fixed
set of admins who are always authorized. A daemon owns the store and answers
checks, grants and revocations over a Unix socket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateMode(outputMode); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidParams, err)
		}
		output.Mode = output.OutputMode(outputMode)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&output.HumanMode, "human", false, "Human-readable output (default: JSON)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Override Unix socket path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Override config file path")
	rootCmd.PersistentFlags().StringVarP(&outputMode, "output", "o", "", "Output mode: json, table, raw or auto")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(remainingCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration from --config or the default directory,
// then applies --socket.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
		if err == nil {
			err = cfg.ApplyEnv()
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	return cfg, nil
}

// parseUserArg parses the user id argument, reporting malformed input.
func parseUserArg(arg string) (types.UserID, error) {
	id, err := types.ParseUserID(arg)
	if err != nil {
		output.Print(output.Error(err))
		return 0, err
	}
	return id, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(types.ExitCodeFromError(err))
	}
}
