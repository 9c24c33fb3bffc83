// Package dom provides an immutable, queryable snapshot of rendered page markup.
// Extraction code depends only on the Node interface; goquery backs it.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a region of a parsed document that can be queried with CSS selectors.
type Node interface {
	// First returns the first descendant matching selector.
	First(selector string) (Node, bool)
	// All returns every descendant matching selector in document order.
	All(selector string) []Node
	// Text returns the node's text content with surrounding whitespace trimmed.
	Text() string
	// Attr returns the value of the named attribute.
	Attr(name string) (string, bool)
}

// Document is a parsed snapshot of one page. It is never mutated after Parse.
type Document struct {
	node
	source string
}

// Parse builds a Document from raw HTML.
func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{node: node{sel: doc.Selection}, source: html}, nil
}

// HTML returns the markup the document was parsed from.
func (d *Document) HTML() string {
	return d.source
}

// Len returns the size of the source markup in bytes.
func (d *Document) Len() int {
	return len(d.source)
}

type node struct {
	sel *goquery.Selection
}

func (n node) First(selector string) (Node, bool) {
	found := n.sel.Find(selector)
	if found.Length() == 0 {
		return nil, false
	}
	return node{sel: found.First()}, true
}

func (n node) All(selector string) []Node {
	found := n.sel.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, node{sel: s})
	})
	return nodes
}

func (n node) Text() string {
	return strings.TrimSpace(n.sel.Text())
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

// FirstText returns the trimmed text of the first match, or "" when absent.
func FirstText(n Node, selector string) string {
	if n == nil {
		return ""
	}
	found, ok := n.First(selector)
	if !ok {
		return ""
	}
	return found.Text()
}
