package main

import (
	"fmt"

	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/spf13/cobra"
)

var listLayout string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorized users",
	Long: `List every stored grant ordered by expiry, soonest first. Lapsed grants
are included and flagged as expired.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result daemon.ListResult
		if err := rpcCall(daemon.MethodList, daemon.ListParams{}, &result); err != nil {
			return printCallError("failed to list users", err)
		}

		if len(result.Users) == 0 {
			output.Print(output.Success("No authorized users", nil, output.ActionsWhenEmpty()...))
			return nil
		}

		message := fmt.Sprintf("%d authorized users", len(result.Users))
		if output.HumanMode {
			layout := listLayout
			if layout == "" {
				cfg, err := loadConfig()
				if err != nil {
					output.Print(output.Error(err))
					return err
				}
				layout = cfg.TimeLayout
			}
			output.Print(output.Success(message, output.AuthorizedUsersTable(result.Users, layout)))
			return nil
		}

		output.Print(output.Success(message, result.Users,
			output.ActionAuthorize(""),
			output.ActionRevoke(""),
		))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listLayout, "layout", "", "Go time layout for expiries in --human mode")
}
