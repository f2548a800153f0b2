package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// DisplayLayout is how instants are shown and accepted on the command line.
const DisplayLayout = "2006-01-02 15:04"

var instantLayouts = []string{time.RFC3339, DisplayLayout, "2006-01-02T15:04"}

// JSONOutput reports whether results should be printed as JSON.
func JSONOutput() bool {
	return jsonOutput
}

// PrintJSON writes v as indented JSON to the command's output.
func PrintJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParseDay parses a YYYY-MM-DD date as midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", value)
	}
	return day, nil
}

// ParseInstant accepts RFC3339 or a wall-clock time in loc.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use \"YYYY-MM-DD HH:MM\" or RFC3339)", value)
}

// ParseID parses a UUID argument, naming it in the error.
func ParseID(value, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q", what, value)
	}
	return id, nil
}

// FormatInstant renders t in loc, or "-" when unset.
func FormatInstant(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format(DisplayLayout)
}

// ShortID is the first block of a UUID, enough to tell rows apart.
func ShortID(id uuid.UUID) string {
	return id.String()[:8]
}
