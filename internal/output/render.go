package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/nilopro/teleauth/internal/types"
)

// DefaultTimeLayout renders expiries as day/month/year hour:minute.
const DefaultTimeLayout = "02/01/2006 15:04"

// ExpiredMarker is appended to rows whose grant has lapsed.
const ExpiredMarker = "⚠️"

// AuthorizedUsersTable renders users as a two-column USER ID / EXPIRES AT
// table in the order given. Expiries are shown in UTC.
func AuthorizedUsersTable(users []types.AuthorizedUser, layout string) string {
	if layout == "" {
		layout = DefaultTimeLayout
	}

	rows := make([][2]string, len(users))
	idWidth := len("USER ID")
	for i, u := range users {
		expires := u.ExpiresAt.UTC().Format(layout)
		if u.Expired {
			expires += " " + ExpiredMarker
		}
		rows[i] = [2]string{u.UserID.String(), expires}
		if len(rows[i][0]) > idWidth {
			idWidth = len(rows[i][0])
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %s\n", idWidth, "USER ID", "EXPIRES AT")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-*s  %s\n", idWidth, row[0], row[1])
	}
	return b.String()
}

// FormatRemaining renders a remaining duration as prose.
func FormatRemaining(r types.Remaining) string {
	if r.IsZero() {
		return "no access remaining"
	}
	return fmt.Sprintf("%d days, %d hours, and %d minutes remaining", r.Days, r.Hours, r.Minutes)
}

// FormatExpiry renders t in layout, in UTC.
func FormatExpiry(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return t.UTC().Format(layout)
}
