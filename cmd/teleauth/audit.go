package main

import (
	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/spf13/cobra"
)

var (
	auditTail int
	auditUser string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View audit log entries",
	Long: `Display audit log entries for grants, revocations, expiries and daemon
lifecycle events. Use --tail to limit the number of entries shown and --user
to restrict them to one user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := daemon.AuditParams{
			Tail: auditTail,
		}
		if auditUser != "" {
			id, err := parseUserArg(auditUser)
			if err != nil {
				return err
			}
			params.UserID = &id
		}

		var result daemon.AuditResult
		if err := rpcCall(daemon.MethodAudit, params, &result); err != nil {
			return printCallError("failed to fetch audit log", err)
		}

		if len(result.Entries) == 0 {
			output.Print(output.Success("No audit entries found", nil))
			return nil
		}

		entries := make([]map[string]interface{}, len(result.Entries))
		for i, entry := range result.Entries {
			entries[i] = auditRow(entry)
		}

		auditData := map[string]interface{}{
			"entries":     entries,
			"total_shown": len(entries),
			"tail_limit":  auditTail,
		}

		actions := []output.Action{
			output.ActionAuditTail(10),
			output.ActionAuditTail(100),
			output.ActionStatus(),
		}

		output.Print(output.Success("Audit log retrieved", auditData, actions...))
		return nil
	},
}

func auditRow(entry *types.AuditEntry) map[string]interface{} {
	row := map[string]interface{}{
		"id":        entry.ID,
		"timestamp": entry.Timestamp,
		"action":    entry.Action,
		"success":   entry.Success,
	}
	if entry.UserID != 0 {
		row["user_id"] = entry.UserID
	}
	if entry.ExpiresAt != nil {
		row["expires_at"] = *entry.ExpiresAt
	}
	if entry.Details != "" {
		row["details"] = entry.Details
	}
	return row
}

func init() {
	auditCmd.Flags().IntVar(&auditTail, "tail", 50, "Number of recent entries to show")
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Only show entries for this user id")
}
