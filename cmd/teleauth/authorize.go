package main

import (
	"fmt"

	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/spf13/cobra"
)

var (
	authorizeDays  int
	authorizeHours int
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize <user-id>",
	Short: "Grant a user access for a period of time",
	Long: `Grant a user access until now plus --days and --hours. An existing grant
is replaced, not extended.

Examples:
  teleauth authorize 42 --days 30
  teleauth authorize 42 --hours 12`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserArg(args[0])
		if err != nil {
			return err
		}
		if _, ok := clock.GrantDuration(authorizeDays, authorizeHours); !ok {
			err := fmt.Errorf("%w: --days %d --hours %d", types.ErrInvalidDuration, authorizeDays, authorizeHours)
			output.Print(output.Error(err, output.ActionHelp("authorize")))
			return err
		}

		params := daemon.AuthorizeParams{
			UserID: userID,
			Days:   authorizeDays,
			Hours:  authorizeHours,
		}

		var result daemon.AuthorizeResult
		if err := rpcCall(daemon.MethodAuthorize, params, &result); err != nil {
			return printCallError("failed to authorize user", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			output.Print(output.Error(err))
			return err
		}

		output.Print(output.Success(
			fmt.Sprintf("User %d authorized until %s", userID, output.FormatExpiry(result.ExpiresAt, cfg.TimeLayout)),
			map[string]interface{}{
				"user_id":    result.UserID,
				"expires_at": result.ExpiresAt,
			},
			output.ActionsAfterAuthorize(userID.String())...,
		))
		return nil
	},
}

func init() {
	authorizeCmd.Flags().IntVar(&authorizeDays, "days", 0, "Days of access")
	authorizeCmd.Flags().IntVar(&authorizeHours, "hours", 0, "Hours of access")
}
