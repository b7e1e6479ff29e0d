package sheet

import (
	"bytes"
	"fmt"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Field is a named form control found in a document.
type Field struct {
	Name string
	// Type is the input type, or "textarea" / "select".
	Type string
	// Default is the value the control holds before any data is loaded:
	// nil for unchecked checkboxes and radios.
	Default any
	// Transient fields sit inside lh-no-save chrome and are never saved.
	Transient bool
}

// Template describes the editable surface of a document.
type Template struct {
	Version     string
	StaticPages int
	// RichFields are the names of rich-text fields on static pages.
	RichFields []string
	Fields     []Field
}

// Scan walks doc and reports its form controls, static pages and rich-text
// fields. Radio groups are reported once, with the checked value as default.
func Scan(doc []byte) (Template, error) {
	root, err := nethtml.Parse(bytes.NewReader(doc))
	if err != nil {
		return Template{}, fmt.Errorf("sheet: parse document: %w", err)
	}
	var out Template
	if n := findByID(root, VersionID); n != nil {
		out.Version = strings.TrimSpace(textContent(n))
	}

	seen := map[string]int{}
	var walk func(n *nethtml.Node, transient bool)
	walk = func(n *nethtml.Node, transient bool) {
		if n.Type == nethtml.ElementNode {
			if hasClass(n, NoSaveClass) {
				transient = true
			}
			if hasClass(n, PageClass) {
				out.StaticPages++
			}
			if hasClass(n, QuillFieldClass) {
				if name := attr(n, "name"); name != "" && !transient {
					out.RichFields = append(out.RichFields, name)
				}
				return
			}
			if field, ok := formField(n); ok {
				field.Transient = transient
				if i, dup := seen[field.Name]; dup {
					if field.Type == "radio" && field.Default != nil {
						out.Fields[i].Default = field.Default
					}
				} else {
					seen[field.Name] = len(out.Fields)
					out.Fields = append(out.Fields, field)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, transient)
		}
	}
	walk(root, false)
	return out, nil
}

func formField(n *nethtml.Node) (Field, bool) {
	name := attr(n, "name")
	if name == "" {
		return Field{}, false
	}
	switch n.DataAtom {
	case atom.Input:
		typ := strings.ToLower(attr(n, "type"))
		if typ == "" {
			typ = "text"
		}
		switch typ {
		case "button", "submit", "reset", "file", "image":
			return Field{}, false
		case "checkbox", "radio":
			var def any
			if hasAttr(n, "checked") {
				value := attr(n, "value")
				if !hasAttr(n, "value") {
					value = "on"
				}
				def = value
			}
			return Field{Name: name, Type: typ, Default: def}, true
		default:
			return Field{Name: name, Type: typ, Default: attr(n, "value")}, true
		}
	case atom.Textarea:
		return Field{Name: name, Type: "textarea", Default: textContent(n)}, true
	case atom.Select:
		return Field{Name: name, Type: "select", Default: selectedOption(n)}, true
	default:
		return Field{}, false
	}
}

func selectedOption(n *nethtml.Node) string {
	first, chosen := "", ""
	haveFirst, found := false, false
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode && n.DataAtom == atom.Option {
			value := attr(n, "value")
			if !hasAttr(n, "value") {
				value = strings.TrimSpace(textContent(n))
			}
			if !haveFirst {
				first, haveFirst = value, true
			}
			if hasAttr(n, "selected") && !found {
				chosen, found = value, true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if found {
		return chosen
	}
	return first
}
