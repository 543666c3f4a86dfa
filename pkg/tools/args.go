package tools

import (
	"fmt"
	"strings"
)

// Argument extraction for model-supplied tool input. JSON numbers arrive
// as float64 and lists as []any; these helpers normalize both.

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func requiredString(args map[string]any, name string) (string, error) {
	s, ok := stringArg(args, name)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required and must be a non-empty string", name)
	}
	return s, nil
}

func optionalString(args map[string]any, name string) string {
	s, _ := stringArg(args, name)
	return s
}

func optionalInt(args map[string]any, name string) (int, bool) {
	v, ok := args[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func optionalFloat(args map[string]any, name string) (float64, bool) {
	v, ok := args[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringListArg(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		// A single bare string is accepted as a one-element list.
		if s, isStr := v.(string); isStr {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return []string{trimmed}, nil
			}
			return nil, nil
		}
		return nil, fmt.Errorf("%s must be a list of strings", name)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, isStr := item.(string)
		if !isStr {
			return nil, fmt.Errorf("%s must be a list of strings", name)
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// priorityToken returns the priority argument as a vocabulary token,
// accepting either a word ("high") or a bare number the model emitted.
func priorityToken(args map[string]any, name string) (string, bool) {
	if s, ok := stringArg(args, name); ok {
		return s, s != ""
	}
	if n, ok := optionalInt(args, name); ok {
		return fmt.Sprintf("%d", n), true
	}
	return "", false
}
