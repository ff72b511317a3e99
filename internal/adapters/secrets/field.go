package secrets

import (
	"encoding/json"
	"fmt"
	"strings"
)

// splitField separates "name#field" into its parts
func splitField(path string) (name, field string) {
	if i := strings.LastIndex(path, "#"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// pickField extracts field from a JSON object secret.
// Without a field the raw value is returned, unless it is a JSON object
// with a "value" key.
func pickField(raw, field string) (string, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		if field != "" {
			return "", fmt.Errorf("secret is not a JSON object, cannot read field %q", field)
		}
		return strings.TrimSpace(raw), nil
	}

	key := field
	if key == "" {
		key = "value"
	}
	v, ok := obj[key].(string)
	if !ok {
		if field == "" {
			return strings.TrimSpace(raw), nil
		}
		return "", fmt.Errorf("secret field %q not found", field)
	}
	return v, nil
}
