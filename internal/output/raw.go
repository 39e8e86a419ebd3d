package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// RawFormatter outputs just values (for piping and scripts)
type RawFormatter struct {
	W io.Writer
}

// Format implements the Formatter interface for raw output
func (f *RawFormatter) Format(r Response) error {
	// Only the data is printed; markers and actions are dropped.
	if r.Data != nil {
		return printRaw(f.W, r.Data)
	}

	if !r.Success && r.Error != "" {
		fmt.Fprintln(f.W, r.Error)
	}

	return nil
}

func printRaw(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(w, v)
	case map[string]interface{}:
		for _, key := range sortedKeys(v) {
			fmt.Fprintln(w, formatRawValue(v[key]))
		}
	case []interface{}:
		for _, item := range v {
			fmt.Fprintln(w, formatRawValue(item))
		}
	default:
		fmt.Fprintln(w, formatRawValue(v))
	}

	return nil
}

func formatRawValue(val interface{}) string {
	if val == nil {
		return ""
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			parts[i] = formatRawValue(v.Index(i).Interface())
		}
		return strings.Join(parts, " ")
	case reflect.Map:
		parts := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			parts = append(parts, fmt.Sprintf("%v=%v", iter.Key().Interface(), formatRawValue(iter.Value().Interface())))
		}
		sort.Strings(parts)
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
