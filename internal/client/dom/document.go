package dom

import (
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
)

// Attribute names written into the page
const (
	SlotAttr      = "data-plugin-slot"
	ContainerAttr = "data-plugin-container"
	PluginAttr    = "data-plugin-id"
	InstanceAttr  = "data-plugin-instance"
	HiddenAttr    = "hidden"
)

// BodySlot attaches instances to the document body
const BodySlot = "body"

// WordsPerMinute drives the read time estimate
const WordsPerMinute = 200

// Document is a parsed host page
type Document struct {
	doc       *goquery.Document
	sanitizer *bluemonday.Policy
}

// Parse reads an HTML page
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{doc: doc, sanitizer: newSanitizer()}, nil
}

// ParseString reads an HTML page from a string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// newSanitizer allows user-generated markup plus the class and data
// attributes plugin fragments style themselves with
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("class", "role", "aria-label", "aria-hidden").Globally()
	p.AllowElements("nav", "aside", "section", "progress", "svg", "path")
	p.AllowAttrs("value", "max").OnElements("progress")
	return p
}

// Slots returns every mount location for a slot name, in document order
func (d *Document) Slots(name string) []*goquery.Selection {
	var sel *goquery.Selection
	if name == BodySlot {
		sel = d.doc.Find("body").First()
	} else {
		sel = d.doc.Find("[" + SlotAttr + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(SlotAttr)
			return v == name
		})
	}

	locations := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		locations = append(locations, s)
	})
	return locations
}

// Instance returns the instance id already mounted for pluginID at loc
func (d *Document) Instance(loc *goquery.Selection, pluginID string) (string, bool) {
	existing := containersIn(loc.Children(), pluginID)
	if existing.Length() == 0 {
		return "", false
	}
	return existing.Children().First().AttrOr(InstanceAttr, ""), true
}

// Mount inserts one instance of a plugin's component at loc. A location
// holds at most one instance per plugin; mounting again keeps the first.
func (d *Document) Mount(loc *goquery.Selection, pluginID, tag, instanceID, body string) bool {
	if _, exists := d.Instance(loc, pluginID); exists {
		return false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<div %s="%s">`, ContainerAttr, html.EscapeString(pluginID))
	fmt.Fprintf(&sb, `<%s %s="%s" %s="%s">`, tag,
		PluginAttr, html.EscapeString(pluginID),
		InstanceAttr, html.EscapeString(instanceID))
	sb.WriteString(d.sanitizer.Sanitize(body))
	fmt.Fprintf(&sb, `</%s></div>`, tag)

	loc.AppendHtml(sb.String())
	return true
}

// Containers returns every container holding an instance of pluginID
func (d *Document) Containers(pluginID string) *goquery.Selection {
	return containersIn(d.doc.Find("["+ContainerAttr+"]"), pluginID)
}

// SetVisible shows or hides every instance of pluginID and returns how
// many containers were touched
func (d *Document) SetVisible(pluginID string, visible bool) int {
	containers := d.Containers(pluginID)
	if visible {
		containers.RemoveAttr(HiddenAttr)
	} else {
		containers.SetAttr(HiddenAttr, "")
	}
	return containers.Length()
}

// Visible reports whether any instance of pluginID is shown
func (d *Document) Visible(pluginID string) bool {
	shown := false
	d.Containers(pluginID).Each(func(_ int, s *goquery.Selection) {
		if _, hidden := s.Attr(HiddenAttr); !hidden {
			shown = true
		}
	})
	return shown
}

// Article snapshots the page's main content: title, tags, word count,
// read time, and the h2/h3 outline
func (d *Document) Article() *pagectx.Content {
	root := d.doc.Find("article").First()
	if root.Length() == 0 {
		root = d.doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = d.doc.Find("body").First()
	}

	title := strings.TrimSpace(root.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(d.doc.Find("title").First().Text())
	}

	tags := []string{}
	d.doc.Find(`[data-tag], a[rel="tag"]`).Each(func(_ int, s *goquery.Selection) {
		tag := strings.TrimSpace(s.AttrOr("data-tag", ""))
		if tag == "" {
			tag = strings.TrimSpace(s.Text())
		}
		if tag != "" && !contains(tags, tag) {
			tags = append(tags, tag)
		}
	})

	words := len(strings.Fields(root.Text()))
	return &pagectx.Content{
		Title:       title,
		Tags:        tags,
		Words:       words,
		ReadMinutes: ReadMinutes(words),
		Outline:     d.outline(root),
	}
}

// outline walks h2 and h3 headings in document order
func (d *Document) outline(root *goquery.Selection) []pagectx.Heading {
	headings := []pagectx.Heading{}
	if root.Length() == 0 {
		return headings
	}
	nodes, err := htmlquery.QueryAll(root.Get(0), ".//*[self::h2 or self::h3]")
	if err != nil {
		return headings
	}
	for _, n := range nodes {
		level := 2
		if n.Data == "h3" {
			level = 3
		}
		text := strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
		if text == "" {
			continue
		}
		headings = append(headings, pagectx.Heading{
			Level: level,
			ID:    htmlquery.SelectAttr(n, "id"),
			Text:  text,
		})
	}
	return headings
}

// HTML renders the whole document
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// ReadMinutes estimates read time, never less than a minute
func ReadMinutes(words int) int {
	return max(1, int(math.Ceil(float64(words)/WordsPerMinute)))
}

func containersIn(sel *goquery.Selection, pluginID string) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(ContainerAttr)
		return ok && v == pluginID
	})
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
