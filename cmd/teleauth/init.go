package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nilopro/teleauth/internal/access"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/spf13/cobra"
)

var (
	initStore   config.StoreKind
	initAdmins  string
	initEncrypt bool
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file and create an empty store",
	Long: `Create the teleauth directory, write config.json and create the selected
store so the daemon can start. Run this before the first 'teleauth serve'.

Examples:
  teleauth init --admins 1,2
  teleauth init --store relational
  teleauth init --encrypt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Print(output.Error(err))
			return err
		}

		path := filepath.Join(cfg.Directory, config.DefaultConfigFile)
		if _, err := os.Stat(path); err == nil && !initForce {
			err := fmt.Errorf("%w: %s already exists (use --force to overwrite)", types.ErrInvalidParams, path)
			output.Print(output.Error(err, output.ActionHelp("init")))
			return err
		}

		if cmd.Flags().Changed("store") {
			cfg.Store = initStore
		}
		if initAdmins != "" {
			admins, err := config.ParseAdmins(initAdmins)
			if err != nil {
				output.Print(output.Error(err))
				return err
			}
			cfg.Admins = admins
		}
		cfg.Encrypt = cfg.Encrypt || initEncrypt

		if err := cfg.Validate(); err != nil {
			err = fmt.Errorf("%w: %v", types.ErrInvalidParams, err)
			output.Print(output.Error(err))
			return err
		}
		if err := cfg.Save(); err != nil {
			err = fmt.Errorf("failed to save config: %w", err)
			output.Print(output.Error(err))
			return err
		}

		svc, err := access.Open(cfg)
		if err != nil {
			output.Print(output.Error(fmt.Errorf("failed to create store: %w", err)))
			return err
		}
		if err := svc.Close(); err != nil {
			output.Print(output.Error(err))
			return err
		}

		output.Print(output.Success(
			"teleauth initialized",
			map[string]interface{}{
				"config": path,
				"store":  string(cfg.Store),
				"path":   cfg.StorePath(),
				"admins": cfg.Admins,
			},
			output.ActionServe(),
			output.ActionAuthorize(""),
		))
		return nil
	},
}

func init() {
	initStore = config.StoreDocument
	initCmd.Flags().Var(&initStore, "store", "Store backend: relational or document")
	initCmd.Flags().StringVar(&initAdmins, "admins", "", "Comma-separated admin user ids")
	initCmd.Flags().BoolVar(&initEncrypt, "encrypt", false, "Encrypt the document store with age")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
