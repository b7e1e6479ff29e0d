// Package sheet reads and writes the snapshot embedded in a saved document.
//
// A document carries its state as JSON text inside <div id="sheetData"> and
// the version it was created with inside <div id="sheetVersion">. Elements
// marked lh-no-save are application chrome and never written back.
package sheet

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element ids and class names the document format reserves.
const (
	DataID          = "sheetData"
	VersionID       = "sheetVersion"
	NoSaveClass     = "lh-no-save"
	QuillFieldClass = "lh-quill-field"
	PageClass       = "lh-page"
)

// Contents is what Extract found in a document.
type Contents struct {
	// Data is the JSON text of the data container, empty when absent.
	Data string
	// HasData reports whether the data container exists.
	HasData bool
	// Version is the text of the version container.
	Version string
}

// Extract locates the data and version containers in doc.
func Extract(doc []byte) (Contents, error) {
	root, err := nethtml.Parse(bytes.NewReader(doc))
	if err != nil {
		return Contents{}, fmt.Errorf("sheet: parse document: %w", err)
	}
	var out Contents
	if n := findByID(root, DataID); n != nil {
		out.HasData = true
		out.Data = strings.TrimSpace(textContent(n))
	}
	if n := findByID(root, VersionID); n != nil {
		out.Version = strings.TrimSpace(textContent(n))
	}
	return out, nil
}

var rawData = regexp.MustCompile(`(?is)<div id="sheetData"(.*?)>(.*?)</div>`)

// ExtractRaw finds the data container by text search, without parsing the
// document, and returns its unescaped content.
func ExtractRaw(doc []byte) (string, bool) {
	m := rawData.FindSubmatch(doc)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(html.UnescapeString(string(m[2]))), true
}

// Inject writes data into the data container and returns the rendered
// document. The version container is created with ver only when the document
// has none. Elements marked lh-no-save and the rendered children of rich-text
// fields are dropped.
func Inject(doc []byte, data []byte, ver string) ([]byte, error) {
	root, err := nethtml.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("sheet: parse document: %w", err)
	}
	body := findAtom(root, atom.Body)
	if body == nil {
		return nil, fmt.Errorf("sheet: document has no body")
	}

	if findByID(root, VersionID) == nil && ver != "" {
		container := newDiv(VersionID, ver)
		container.Attr = append(container.Attr, nethtml.Attribute{Key: "style", Val: "display: none"})
		body.InsertBefore(container, body.FirstChild)
	}

	container := findByID(root, DataID)
	if container == nil {
		container = newDiv(DataID, "")
		body.InsertBefore(container, body.FirstChild)
	}
	for c := container.FirstChild; c != nil; c = container.FirstChild {
		container.RemoveChild(c)
	}
	container.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: string(data)})

	strip(root)

	var buf bytes.Buffer
	if err := nethtml.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("sheet: render document: %w", err)
	}
	return buf.Bytes(), nil
}

func newDiv(id, text string) *nethtml.Node {
	n := &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []nethtml.Attribute{{Key: "id", Val: id}, {Key: "hidden", Val: ""}},
	}
	if text != "" {
		n.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: text})
	}
	return n
}

// strip removes lh-no-save elements and empties rich-text fields.
func strip(n *nethtml.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == nethtml.ElementNode && hasClass(c, NoSaveClass) {
			n.RemoveChild(c)
			c = next
			continue
		}
		if c.Type == nethtml.ElementNode && hasClass(c, QuillFieldClass) {
			for gc := c.FirstChild; gc != nil; gc = c.FirstChild {
				c.RemoveChild(gc)
			}
		} else {
			strip(c)
		}
		c = next
	}
}

func findByID(n *nethtml.Node, id string) *nethtml.Node {
	if n.Type == nethtml.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findAtom(n *nethtml.Node, a atom.Atom) *nethtml.Node {
	if n.Type == nethtml.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *nethtml.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *nethtml.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *nethtml.Node) string {
	var b strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
