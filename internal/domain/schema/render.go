package schema

import (
	"sort"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
)

// Entry pairs a plugin schema with its stored overrides for rendering
type Entry struct {
	PluginID  string
	Schema    plugin.Schema
	Overrides map[string]any
}

// RenderCSS writes bindings as a declaration block for selector
func RenderCSS(selector string, bindings []Binding) string {
	if len(bindings) == 0 {
		return ""
	}
	if selector == "" {
		selector = ":root"
	}

	var sb strings.Builder
	sb.WriteString(selector)
	sb.WriteString(" {\n")
	for _, b := range bindings {
		sb.WriteString("  ")
		sb.WriteString(b.Var)
		sb.WriteString(": ")
		sb.WriteString(sanitizeValue(b.Value))
		sb.WriteString(";\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// RenderAll renders one :root block per plugin, ordered by plugin id
func RenderAll(entries []Entry) string {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PluginID < sorted[j].PluginID })

	var sb strings.Builder
	for _, e := range sorted {
		block := RenderCSS(":root", ToStyleBindings(e.Schema, Resolve(e.Schema, e.Overrides)))
		if block == "" {
			continue
		}
		sb.WriteString("/* ")
		sb.WriteString(sanitizeComment(e.PluginID))
		sb.WriteString(" */\n")
		sb.WriteString(block)
	}
	return sb.String()
}

// sanitizeValue keeps a value from closing the declaration or the style element
func sanitizeValue(v string) string {
	r := strings.NewReplacer(";", "", "{", "", "}", "", "<", "", ">", "", "\n", " ")
	return strings.TrimSpace(r.Replace(v))
}

func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "")
}
