package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
)

func float(v float64) *float64 { return &v }

func testSchema() plugin.Schema {
	return plugin.Schema{
		{Key: "color", Type: plugin.FieldColor, Default: "#3b82f6", CSSVar: "--rp-color"},
		{Key: "height", Type: plugin.FieldRange, Default: float64(3), Min: float(1), Max: float(10), Unit: "px", CSSVar: "rp-height"},
		{Key: "label", Type: plugin.FieldText, Default: "Reading"},
		{Key: "position", Type: plugin.FieldSelect, Default: "top", Options: []string{"top", "bottom"}, CSSVar: "--rp-position"},
		{Key: "sticky", Type: plugin.FieldBoolean, Default: true},
	}
}

func TestResolve(t *testing.T) {
	s := testSchema()

	t.Run("empty config yields defaults", func(t *testing.T) {
		resolved := Resolve(s, map[string]any{})
		assert.Equal(t, map[string]any{
			"color":    "#3b82f6",
			"height":   float64(3),
			"label":    "Reading",
			"position": "top",
			"sticky":   true,
		}, resolved)
	})

	t.Run("nil config yields defaults", func(t *testing.T) {
		assert.Equal(t, Resolve(s, map[string]any{}), Resolve(s, nil))
	})

	t.Run("override replaces only its field", func(t *testing.T) {
		resolved := Resolve(s, map[string]any{"height": float64(7)})
		assert.Equal(t, float64(7), resolved["height"])
		assert.Equal(t, "#3b82f6", resolved["color"])
		assert.Equal(t, "Reading", resolved["label"])
	})

	t.Run("malformed values propagate", func(t *testing.T) {
		resolved := Resolve(s, map[string]any{"height": "huge"})
		assert.Equal(t, "huge", resolved["height"])
	})

	t.Run("keys outside the schema are dropped", func(t *testing.T) {
		resolved := Resolve(s, map[string]any{"other": 1})
		_, ok := resolved["other"]
		assert.False(t, ok)
	})
}

func TestToStyleBindings(t *testing.T) {
	s := testSchema()
	bindings := ToStyleBindings(s, Resolve(s, map[string]any{"color": "red"}))

	assert.Equal(t, []Binding{
		{Var: "--rp-color", Value: "red"},
		{Var: "--rp-height", Value: "3px"},
		{Var: "--rp-position", Value: "top"},
	}, bindings)
}

func TestToStyleBindingsUnitNotDuplicated(t *testing.T) {
	s := testSchema()
	bindings := ToStyleBindings(s, Resolve(s, map[string]any{"height": "5px"}))
	require.Len(t, bindings, 3)
	assert.Equal(t, "5px", bindings[1].Value)
}

func TestRenderCSS(t *testing.T) {
	css := RenderCSS("", []Binding{{Var: "--a", Value: "1px"}, {Var: "--b", Value: "red;}</style>"}})
	assert.Equal(t, ":root {\n  --a: 1px;\n  --b: red/style;\n}\n", css)
	assert.Empty(t, RenderCSS(":root", nil))
}

func TestRenderAll(t *testing.T) {
	s := testSchema()
	css := RenderAll([]Entry{
		{PluginID: "zeta", Schema: s},
		{PluginID: "alpha", Schema: s, Overrides: map[string]any{"color": "#000"}},
		{PluginID: "plain", Schema: plugin.Schema{{Key: "x", Type: plugin.FieldText}}},
	})

	assert.True(t, strings.Index(css, "/* alpha */") < strings.Index(css, "/* zeta */"))
	assert.Contains(t, css, "--rp-color: #000;")
	assert.NotContains(t, css, "plain")
}

func TestValidate(t *testing.T) {
	s := testSchema()

	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{name: "empty", config: map[string]any{}},
		{name: "valid values", config: map[string]any{"color": "#fff", "height": float64(4), "sticky": false, "position": "bottom", "label": "x"}},
		{name: "rgb color", config: map[string]any{"color": "rgba(0, 0, 0, 0.5)"}},
		{name: "unknown key", config: map[string]any{"nope": 1}, wantErr: true},
		{name: "string into range", config: map[string]any{"height": "4"}, wantErr: true},
		{name: "below min", config: map[string]any{"height": float64(0)}, wantErr: true},
		{name: "above max", config: map[string]any{"height": float64(11)}, wantErr: true},
		{name: "bad color", config: map[string]any{"color": "red; background: url(x)"}, wantErr: true},
		{name: "bad option", config: map[string]any{"position": "left"}, wantErr: true},
		{name: "bool as string", config: map[string]any{"sticky": "true"}, wantErr: true},
		{name: "null", config: map[string]any{"label": nil}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(s, tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, plugin.ErrInvalidConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSchemaJSONKeepsOrder(t *testing.T) {
	raw := `{"zeta":{"type":"text","default":"z"},"alpha":{"type":"number","default":1,"unit":"px","cssVar":"--a"}}`

	var s plugin.Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, []string{"zeta", "alpha"}, s.Keys())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.True(t, strings.Index(string(out), "zeta") < strings.Index(string(out), "alpha"))

	bindings := ToStyleBindings(s, Resolve(s, nil))
	assert.Equal(t, []Binding{{Var: "--a", Value: "1px"}}, bindings)
}
