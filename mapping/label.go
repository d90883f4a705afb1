package mapping

import (
	"fmt"
	"strings"
)

// PreferredFlag is the value of the "pref" field that marks the preferred item.
const PreferredFlag = "Y"

// PreferredLabel selects a label from a value that is either a bare string or
// an array of items. Items are strings or objects carrying the label under
// field and a "pref" flag.
//
//	"Biology"                                  → "Biology"
//	[{"pref":"N","label":"Bio"},
//	 {"pref":"Y","label":"Biology"}]           → "Biology"
//	[{"label":"Biology"}]                      → "Biology" (only item)
//	[{"label":"A"},{"label":"B"}]              → ErrNoPreferredLabel
func PreferredLabel(v any, field string) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case map[string]any:
		return itemLabel(t, field), nil
	case []any:
		switch len(t) {
		case 0:
			return "", nil
		case 1:
			return itemLabel(t[0], field), nil
		}
		for _, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if flag, _ := obj["pref"].(string); strings.EqualFold(flag, PreferredFlag) {
				return itemLabel(obj, field), nil
			}
		}
		return "", fmt.Errorf("%w among %d items", ErrNoPreferredLabel, len(t))
	default:
		return "", fmt.Errorf("unsupported label value %T", v)
	}
}

func itemLabel(item any, field string) string {
	switch t := item.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		s, _ := t[field].(string)
		return strings.TrimSpace(s)
	}
	return ""
}
