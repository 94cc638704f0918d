package contract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FlattenRubric normalizes a rubric value before validation. Models asked
// for a string rubric sometimes return a criteria object instead, e.g.
// {"Understanding": 25, "Application": 75}; that is deterministically
// flattened into a descriptive string. Strings pass through unchanged.
func FlattenRubric(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case map[string]any:
		return flattenRubricMap(r)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", r)
	}
}

func flattenRubricMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	total := 0.0
	allNumeric := true
	for _, k := range keys {
		switch val := m[k].(type) {
		case float64:
			parts = append(parts, fmt.Sprintf("%s - %s points", k, formatPoints(val)))
			total += val
		case string:
			parts = append(parts, fmt.Sprintf("%s - %s", k, val))
			allNumeric = false
		default:
			parts = append(parts, fmt.Sprintf("%s - %v", k, val))
			allNumeric = false
		}
	}

	out := "Grading criteria: " + strings.Join(parts, "; ") + "."
	if allNumeric && len(parts) > 0 {
		out += fmt.Sprintf(" Total: %s points.", formatPoints(total))
	}
	return out
}

func formatPoints(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
