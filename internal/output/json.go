package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter outputs JSON format (agent-friendly)
type JSONFormatter struct {
	W io.Writer
}

// Format implements the Formatter interface for JSON output
func (f *JSONFormatter) Format(r Response) error {
	enc := json.NewEncoder(f.W)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
