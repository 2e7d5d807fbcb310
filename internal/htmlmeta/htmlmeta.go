// Package htmlmeta extracts meta tags and the document title from raw HTML.
// It is the only place the project touches an HTML parser; everything above it
// works on the flat tag list.
package htmlmeta

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Tag is a single <meta> element, identified by its name or property attribute.
// Tags preserve document order; duplicates are kept so callers can report them.
type Tag struct {
	Name    string
	Content string
}

// Document is the queryable result of parsing an HTML page.
type Document struct {
	tags  []Tag
	title string
}

// Parse reads HTML from r and collects every meta tag and the first <title>.
// Parsing is tolerant: malformed markup yields whatever tags the tokenizer can
// recover, matching browser behavior.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var name, content string
				for _, a := range n.Attr {
					switch a.Key {
					case "name", "property":
						if name == "" {
							name = a.Val
						}
					case "content":
						content = a.Val
					}
				}
				if name != "" {
					doc.tags = append(doc.tags, Tag{Name: name, Content: content})
				}
			case "title":
				if doc.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					doc.title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Tags returns every collected meta tag in document order.
func (d *Document) Tags() []Tag {
	return d.tags
}

// First returns the content of the first meta tag with the given name.
func (d *Document) First(name string) (string, bool) {
	for _, t := range d.tags {
		if t.Name == name {
			return t.Content, true
		}
	}
	return "", false
}

// WithPrefix returns every meta tag whose name starts with prefix, in order.
func (d *Document) WithPrefix(prefix string) []Tag {
	var out []Tag
	for _, t := range d.tags {
		if strings.HasPrefix(t.Name, prefix) {
			out = append(out, t)
		}
	}
	return out
}

// Title returns the text of the first <title> element, trimmed.
func (d *Document) Title() string {
	return d.title
}
