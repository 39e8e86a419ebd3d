package main

import (
	"fmt"
	"time"

	"github.com/nilopro/teleauth/internal/daemon"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Display the current status of the teleauth daemon, including uptime, store and grant counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result daemon.StatusResult
		if err := rpcCall(daemon.MethodStatus, daemon.StatusParams{}, &result); err != nil {
			return printCallError("failed to get status", err)
		}

		output.Print(output.Success("Daemon status", statusData(&result), output.ActionList(), output.ActionAudit()))
		return nil
	},
}

func statusData(s *types.DaemonStatus) map[string]interface{} {
	data := map[string]interface{}{
		"running":      s.Running,
		"store":        s.StoreKind,
		"store_path":   s.StorePath,
		"admins":       s.Admins,
		"records":      s.Records,
		"active_users": s.ActiveUsers,
	}
	if s.Running {
		data["started_at"] = s.StartedAt
		data["uptime"] = formatDuration(time.Since(s.StartedAt))
	}
	return data
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else {
		return fmt.Sprintf("%dm", minutes)
	}
}
