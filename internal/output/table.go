package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// TableFormatter outputs human-readable tables
type TableFormatter struct {
	W io.Writer
}

// Format implements the Formatter interface for table output
func (f *TableFormatter) Format(r Response) error {
	if r.Success {
		if r.Message != "" {
			fmt.Fprintf(f.W, "✓ %s\n", r.Message)
		}
		if r.Data != nil {
			if err := printTable(f.W, r.Data); err != nil {
				return err
			}
		}
	} else {
		fmt.Fprintf(f.W, "✗ Error: %s\n", r.Error)
	}

	if len(r.Actions) > 0 {
		fmt.Fprintln(f.W, "\nNext steps:")
		for _, a := range r.Actions {
			prefix := "→"
			if a.Dangerous {
				prefix = "⚠"
			}
			fmt.Fprintf(f.W, "  %s %s\n", prefix, a.Description)
			fmt.Fprintf(f.W, "    $ %s\n", a.Command)
		}
	}

	return nil
}

func printTable(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprint(w, v)
		if !strings.HasSuffix(v, "\n") {
			fmt.Fprintln(w)
		}
	case map[string]interface{}:
		printMapAsTable(w, v)
	case []interface{}:
		for _, item := range v {
			fmt.Fprintf(w, "  • %v\n", item)
		}
	default:
		// For complex types, use JSON as fallback
		b, err := json.MarshalIndent(data, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	}

	return nil
}

func printMapAsTable(w io.Writer, m map[string]interface{}) {
	keys := sortedKeys(m)

	maxLen := 0
	for _, key := range keys {
		if len(key) > maxLen {
			maxLen = len(key)
		}
	}

	for _, key := range keys {
		padding := strings.Repeat(" ", maxLen-len(key))
		fmt.Fprintf(w, "  %s:%s %v\n", key, padding, formatValue(m[key]))
	}
}

func formatValue(val interface{}) string {
	if val == nil {
		return ""
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			parts[i] = fmt.Sprintf("%v", v.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	case reflect.Map:
		return fmt.Sprintf("<%d items>", v.Len())
	default:
		return fmt.Sprintf("%v", val)
	}
}
