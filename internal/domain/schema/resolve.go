package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
)

// Binding is a single style variable assignment
type Binding struct {
	Var   string `json:"var"`
	Value string `json:"value"`
}

// Resolve merges schema defaults with user overrides. Present overrides win.
// Values are not checked against the declared field type.
func Resolve(s plugin.Schema, userConfig map[string]any) map[string]any {
	resolved := make(map[string]any, len(s))
	for _, f := range s {
		resolved[f.Key] = f.Default
	}
	for k, v := range userConfig {
		if _, ok := s.Field(k); ok {
			resolved[k] = v
		}
	}
	return resolved
}

// ToStyleBindings derives style variables in schema order.
// Fields without a CSS variable produce nothing; numeric fields get their unit.
func ToStyleBindings(s plugin.Schema, resolved map[string]any) []Binding {
	var bindings []Binding
	for _, f := range s {
		if f.CSSVar == "" {
			continue
		}
		v, ok := resolved[f.Key]
		if !ok || v == nil {
			continue
		}
		bindings = append(bindings, Binding{
			Var:   cssVarName(f.CSSVar),
			Value: serialize(f, v),
		})
	}
	return bindings
}

func serialize(f plugin.Field, v any) string {
	text := formatValue(v)
	if f.Type.Numeric() && f.Unit != "" && !strings.HasSuffix(text, f.Unit) {
		return text + f.Unit
	}
	return text
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func cssVarName(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	return "--" + name
}
