package main

import (
	"fmt"

	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <user-id>",
	Short: "Check whether a user currently has access",
	Long: `Report whether a user is an admin or holds an unexpired grant.
The command succeeds either way; inspect "authenticated" in the response.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserArg(args[0])
		if err != nil {
			return err
		}

		var result daemon.CheckResult
		if err := rpcCall(daemon.MethodCheck, daemon.UserParams{UserID: userID}, &result); err != nil {
			return printCallError("failed to check access", err)
		}

		data := map[string]interface{}{
			"user_id":       result.UserID,
			"admin":         result.Admin,
			"authenticated": result.Authenticated,
		}

		switch {
		case result.Admin:
			output.Print(output.Success(fmt.Sprintf("User %d is an admin", userID), data))
		case result.Authenticated:
			output.Print(output.Success(fmt.Sprintf("User %d has access", userID), data,
				output.ActionRemaining(userID.String())))
		default:
			output.Print(output.Success(fmt.Sprintf("User %d has no access", userID), data,
				output.ActionsForDenied(userID.String())...))
		}
		return nil
	},
}
