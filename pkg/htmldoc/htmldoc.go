// Package htmldoc extracts the machine-readability signals of an HTML page:
// title, first heading, meta description, paragraphs, visible text and
// embedded JSON-LD structured data.
package htmldoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the parsed view of a page.
type Document struct {
	Title           string
	H1              string
	MetaDescription string
	Headings        []string
	Paragraphs      []string
	VisibleText     string

	// StructuredData holds every JSON-LD entity found, with arrays and @graph flattened.
	StructuredData []map[string]any
	// StructuredDataBlocks counts <script type="application/ld+json"> blocks, valid or not.
	StructuredDataBlocks int
	// InvalidBlocks counts JSON-LD blocks that failed to decode.
	InvalidBlocks int
}

var hiddenElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Head:     true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Main: true, atom.Nav: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
	atom.Address: true, atom.Blockquote: true,
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc := &Document{}
	var visible strings.Builder
	walk(root, doc, &visible)
	doc.VisibleText = collapseSpace(visible.String())
	return doc, nil
}

// ParseBytes is Parse over an in-memory body.
func ParseBytes(body []byte) (*Document, error) {
	return Parse(bytes.NewReader(body))
}

func walk(n *html.Node, doc *Document, visible *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Title:
			if doc.Title == "" {
				doc.Title = collapseSpace(textContent(n))
			}
			return
		case atom.Meta:
			if strings.EqualFold(attr(n, "name"), "description") && doc.MetaDescription == "" {
				doc.MetaDescription = collapseSpace(attr(n, "content"))
			}
			return
		case atom.Script:
			if strings.Contains(strings.ToLower(attr(n, "type")), "ld+json") {
				doc.StructuredDataBlocks++
				entities, err := decodeJSONLD(textContent(n))
				if err != nil {
					doc.InvalidBlocks++
				} else {
					doc.StructuredData = append(doc.StructuredData, entities...)
				}
			}
			return
		case atom.H1, atom.H2, atom.H3:
			text := collapseSpace(textContent(n))
			if text != "" {
				if n.DataAtom == atom.H1 && doc.H1 == "" {
					doc.H1 = text
				}
				doc.Headings = append(doc.Headings, text)
			}
		case atom.P:
			if text := collapseSpace(textContent(n)); text != "" {
				doc.Paragraphs = append(doc.Paragraphs, text)
			}
		}

		if hiddenElements[n.DataAtom] {
			// Still descend into <head> for title, meta and JSON-LD.
			if n.DataAtom == atom.Head {
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, doc, &strings.Builder{})
				}
			}
			return
		}
	}

	if n.Type == html.TextNode {
		visible.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, doc, visible)
	}

	if n.Type == html.ElementNode && blockElements[n.DataAtom] {
		visible.WriteString("\n")
	}
}

// textContent concatenates text beneath n, skipping hidden elements other than n itself.
func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		if node != n && node.Type == html.ElementNode && hiddenElements[node.DataAtom] {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
		if node.Type == html.ElementNode && blockElements[node.DataAtom] {
			b.WriteString(" ")
		}
	}
	collect(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func decodeJSONLD(raw string) ([]map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty json-ld block")
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to decode json-ld: %w", err)
	}
	var out []map[string]any
	flatten(value, &out)
	return out, nil
}

func flatten(value any, out *[]map[string]any) {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			flatten(item, out)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			flatten(graph, out)
			if _, typed := v["@type"]; !typed {
				return
			}
		}
		*out = append(*out, v)
	}
}

// EntityTypes returns the @type values of a JSON-LD entity; @type may be a string or an array.
func EntityTypes(entity map[string]any) []string {
	switch t := entity["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		types := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				types = append(types, s)
			}
		}
		return types
	}
	return nil
}

// HasType reports whether the entity declares the given @type, ignoring a schema.org prefix and case.
func HasType(entity map[string]any, want string) bool {
	for _, t := range EntityTypes(entity) {
		if strings.EqualFold(trimSchemaPrefix(t), want) {
			return true
		}
	}
	return false
}

func trimSchemaPrefix(t string) string {
	t = strings.TrimPrefix(t, "https://schema.org/")
	t = strings.TrimPrefix(t, "http://schema.org/")
	return strings.TrimPrefix(t, "schema:")
}

// StringField returns a non-empty string value for key.
// Nested objects yield their "name" or "text" field.
func StringField(entity map[string]any, key string) string {
	switch v := entity[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if s := StringField(v, "text"); s != "" {
			return s
		}
		return StringField(v, "name")
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if s := StringField(map[string]any{"v": m}, "v"); s != "" {
					return s
				}
			}
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// Present reports whether key holds a non-empty value of any shape.
func Present(entity map[string]any, key string) bool {
	switch v := entity[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
