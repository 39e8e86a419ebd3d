package main

import (
	"fmt"

	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/spf13/cobra"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <user-id>",
	Short: "Revoke a user's access",
	Long: `Remove a user's grant. Revoking a user without a grant succeeds.
Admins keep access regardless.

Examples:
  teleauth revoke 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserArg(args[0])
		if err != nil {
			return err
		}

		var result daemon.RevokeResult
		if err := rpcCall(daemon.MethodRevoke, daemon.UserParams{UserID: userID}, &result); err != nil {
			return printCallError("failed to revoke access", err)
		}

		output.Print(output.Success(
			fmt.Sprintf("Access revoked for user %d", userID),
			map[string]interface{}{
				"user_id": userID,
			},
			output.ActionsAfterRevoke(userID.String())...,
		))
		return nil
	},
}
