package schema

import (
	"fmt"
	"regexp"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
)

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|(rgb|rgba|hsl|hsla)\([^;{}]*\)|[a-zA-Z]+)$`)

// Validate checks admin-supplied overrides before they are persisted.
// Unknown keys, type mismatches and out-of-range values are rejected.
func Validate(s plugin.Schema, config map[string]any) error {
	for key, value := range config {
		f, ok := s.Field(key)
		if !ok {
			return fmt.Errorf("%w: unknown field %q", plugin.ErrInvalidConfig, key)
		}
		if err := validateField(f, value); err != nil {
			return fmt.Errorf("%w: field %q: %v", plugin.ErrInvalidConfig, key, err)
		}
	}
	return nil
}

func validateField(f plugin.Field, value any) error {
	if value == nil {
		return fmt.Errorf("value is null")
	}

	switch f.Type {
	case plugin.FieldNumber, plugin.FieldRange:
		n, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Errorf("%v below minimum %v", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Errorf("%v above maximum %v", n, *f.Max)
		}
	case plugin.FieldBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case plugin.FieldColor:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected color string, got %T", value)
		}
		if !colorPattern.MatchString(s) {
			return fmt.Errorf("malformed color %q", s)
		}
	case plugin.FieldSelect:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if len(f.Options) > 0 && !contains(f.Options, s) {
			return fmt.Errorf("%q is not an option", s)
		}
	case plugin.FieldText:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	}
	// Unknown declared types are accepted as-is
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
