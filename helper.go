// FILE: lixenwraith/profile/helper.go
package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// rootName names the unnamed top-level section of every source tree.
	rootName = "root"

	// finalMarker suffixes a table key whose section is final.
	finalMarker = "*"
)

// SplitPath splits a dot-separated path into components. Empty segments are
// kept so that a trailing dot selects every name in the last section.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// sectionKey splits a table key into the section name and its final marker.
func sectionKey(key string) (string, bool) {
	if len(key) > len(finalMarker) && strings.HasSuffix(key, finalMarker) {
		return strings.TrimSuffix(key, finalMarker), true
	}
	return key, false
}

// formatScalar renders a decoded scalar as a relation value.
func formatScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	case time.Time:
		return val.Format(time.RFC3339), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return "", fmt.Errorf("%w: value of type %T", ErrUnrepresentable, v)
	}
}

// parseBoolean accepts the profile boolean vocabulary, case-insensitively.
func parseBoolean(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "t", "1", "on":
		return true, nil
	case "n", "no", "false", "nil", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrBadBoolean, s)
}
