// Package output provides HATEOAS-style responses for the teleauth CLI.
// By default, all output is JSON for scripts and bots.
// Use --human flag for human-readable output.
package output

import (
	"fmt"
	"io"
	"os"
)

// Action represents a possible next action (HATEOAS-style)
type Action struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Command     string `json:"command"`
	Dangerous   bool   `json:"dangerous,omitempty"`
}

// Response is the standard CLI response format
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Actions []Action    `json:"actions,omitempty"`
}

// Global flag for human-readable output
var HumanMode bool

// Mode selects the formatter when HumanMode is off. Empty means JSON.
var Mode OutputMode

// Stdout receives all formatted output.
var Stdout io.Writer = os.Stdout

// Version info (set by ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Print outputs the response in JSON (default) or human-readable format
func Print(r Response) {
	mode := Mode
	switch {
	case HumanMode:
		mode = ModeTable
	case mode == "":
		mode = ModeJSON
	case mode == ModeAuto:
		mode = ""
	}
	_ = GetFormatter(mode).Format(r)
}

// Success creates a successful response
func Success(message string, data interface{}, actions ...Action) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
		Actions: actions,
	}
}

// Error creates an error response
func Error(err error, actions ...Action) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Actions: actions,
	}
}

// ErrorMsg creates an error response from a string
func ErrorMsg(msg string, actions ...Action) Response {
	return Response{
		Success: false,
		Error:   msg,
		Actions: actions,
	}
}

// Common action builders

func ActionServe() Action {
	return Action{
		Name:        "serve",
		Description: "Start the teleauth daemon",
		Command:     "teleauth serve &",
	}
}

func ActionAuthorize(userID string) Action {
	if userID == "" {
		userID = "<user-id>"
	}
	return Action{
		Name:        "authorize",
		Description: "Grant access for a number of days",
		Command:     fmt.Sprintf("teleauth authorize %s --days 30", userID),
	}
}

func ActionAuthorizeHours(userID string) Action {
	if userID == "" {
		userID = "<user-id>"
	}
	return Action{
		Name:        "authorize_hours",
		Description: "Grant access for a number of hours",
		Command:     fmt.Sprintf("teleauth authorize %s --hours 12", userID),
	}
}

func ActionRevoke(userID string) Action {
	if userID == "" {
		userID = "<user-id>"
	}
	return Action{
		Name:        "revoke",
		Description: "Revoke a user's access",
		Command:     fmt.Sprintf("teleauth revoke %s", userID),
		Dangerous:   true,
	}
}

func ActionCheck(userID string) Action {
	if userID == "" {
		userID = "<user-id>"
	}
	return Action{
		Name:        "check",
		Description: "Check whether a user currently has access",
		Command:     fmt.Sprintf("teleauth check %s", userID),
	}
}

func ActionRemaining(userID string) Action {
	if userID == "" {
		userID = "<user-id>"
	}
	return Action{
		Name:        "remaining",
		Description: "Show time left on a user's access",
		Command:     fmt.Sprintf("teleauth remaining %s", userID),
	}
}

func ActionList() Action {
	return Action{
		Name:        "list",
		Description: "List authorized users",
		Command:     "teleauth list",
	}
}

func ActionStatus() Action {
	return Action{
		Name:        "status",
		Description: "Check daemon status",
		Command:     "teleauth status",
	}
}

func ActionAudit() Action {
	return Action{
		Name:        "audit",
		Description: "View the audit log",
		Command:     "teleauth audit",
	}
}

func ActionAuditTail(n int) Action {
	return Action{
		Name:        "audit_tail",
		Description: fmt.Sprintf("View last %d audit entries", n),
		Command:     fmt.Sprintf("teleauth audit --tail %d", n),
	}
}

func ActionHelp(cmd string) Action {
	return Action{
		Name:        "help",
		Description: fmt.Sprintf("Get help for %s", cmd),
		Command:     fmt.Sprintf("teleauth %s --help", cmd),
	}
}

// ActionsAfterAuthorize returns suggested actions after a grant
func ActionsAfterAuthorize(userID string) []Action {
	return []Action{
		ActionRemaining(userID),
		ActionList(),
		ActionRevoke(userID),
	}
}

// ActionsAfterRevoke returns suggested actions after a revocation
func ActionsAfterRevoke(userID string) []Action {
	return []Action{
		ActionCheck(userID),
		ActionAuthorize(userID),
		ActionList(),
	}
}

// ActionsForDenied returns suggested actions when a user lacks access
func ActionsForDenied(userID string) []Action {
	return []Action{
		ActionAuthorize(userID),
		ActionAuthorizeHours(userID),
	}
}

// ActionsWhenEmpty returns actions when no users are authorized
func ActionsWhenEmpty() []Action {
	return []Action{
		ActionAuthorize(""),
		ActionAuthorizeHours(""),
	}
}

// ActionsWhenNotRunning returns actions when the daemon is unreachable
func ActionsWhenNotRunning() []Action {
	return []Action{
		ActionServe(),
		ActionHelp("serve"),
	}
}
