package main

import (
	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/spf13/cobra"
)

var remainingCmd = &cobra.Command{
	Use:   "remaining <user-id>",
	Short: "Show time left on a user's access",
	Long: `Show the days, hours and minutes left on a user's grant, truncated to
whole units. Users without a grant, admins included, report zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserArg(args[0])
		if err != nil {
			return err
		}

		var result daemon.RemainingResult
		if err := rpcCall(daemon.MethodRemaining, daemon.UserParams{UserID: userID}, &result); err != nil {
			return printCallError("failed to get remaining time", err)
		}

		var actions []output.Action
		if result.Remaining.IsZero() {
			actions = output.ActionsForDenied(userID.String())
		}

		output.Print(output.Success(
			output.FormatRemaining(result.Remaining),
			map[string]interface{}{
				"user_id": result.UserID,
				"days":    result.Remaining.Days,
				"hours":   result.Remaining.Hours,
				"minutes": result.Remaining.Minutes,
			},
			actions...,
		))
		return nil
	},
}
