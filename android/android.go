// Package android implements reading, cleaning and writing of translated
// Android resource files (res/values-XX/*.xml) as they come back from Crowdin.
//
// Unlike a strings-only reader, the document model keeps every node of the
// file (elements of any kind, attributes in order, text, comments) so that a
// cleaned file differs from its input only by the edits the cleaner makes:
//
//   - <string> groups that exist only as non-default product variants are removed
//   - comments inside the root element are dropped
//   - comments outside the root element are kept as a header block
//   - ignorable whitespace between resources is re-indented
//
// A file whose root element is left without resources is deleted rather than
// written back as an empty shell.
package android

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultProduct is the product variant Android falls back to when no
// flavor-specific override exists.
const DefaultProduct = "default"

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// NodeKind identifies the type of a document node.
type NodeKind int

const (
	// KindElement is an XML element.
	KindElement NodeKind = iota
	// KindText is character data (CDATA sections are folded into text).
	KindText
	// KindComment is an XML comment.
	KindComment
)

// Attr is an attribute as written in the source, prefix included.
type Attr struct {
	Name  string
	Value string
}

// Node is a single node of a resource document.
type Node struct {
	Kind NodeKind

	// Name is the qualified element name as written (e.g. "xliff:g").
	// Empty for text and comments.
	Name string
	// Attrs in document order.
	Attrs []Attr
	// Children in document order.
	Children []*Node

	// Text is the unescaped character data (KindText) or the raw comment
	// body without <!-- --> (KindComment).
	Text string

	// indent marks container elements whose whitespace-only text was
	// dropped on parse and is regenerated on output.
	indent bool
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the element children of n.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == KindElement {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Document is a parsed resource file.
type Document struct {
	// Decl is the leading <?xml ... ?> declaration, verbatim. Empty if the
	// file had none.
	Decl string
	// Header holds comments that live outside the root element. They are
	// written right after the declaration.
	Header []*Node
	// Root is the document element (normally <resources>).
	Root *Node
}

// MalformedError reports a resource file that could not be parsed.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed resource file %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

var (
	reDecl  = regexp.MustCompile(`^\s*<\?xml[^>]*\?>`)
	utf8BOM = []byte("\ufeff")
)

// Parse parses a resource document. A leading UTF-8 byte-order mark is
// dropped. The XML declaration, if present, is split off before parsing and
// kept verbatim in Document.Decl.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	doc := &Document{}
	body := data
	if loc := reDecl.FindIndex(data); loc != nil {
		doc.Decl = strings.TrimSpace(string(data[:loc[1]]))
		body = data[loc[1]:]
	}

	// RawToken keeps namespace prefixes as written; element nesting is
	// checked by hand below.
	dec := xml.NewDecoder(bytes.NewReader(body))
	var stack []*Node

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Kind: KindElement, Name: qualName(t.Name)}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: qualName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("second root element <%s>", n.Name)
				}
				doc.Root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			name := qualName(t.Name)
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected </%s>", name)
			}
			if top := stack[len(stack)-1]; top.Name != name {
				return nil, fmt.Errorf("element <%s> closed by </%s>", top.Name, name)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, errors.New("text outside the root element")
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Kind: KindText, Text: string(t)})

		case xml.Comment:
			c := &Node{Kind: KindComment, Text: string(t)}
			if len(stack) == 0 {
				doc.Header = append(doc.Header, c)
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, c)

		case xml.ProcInst, xml.Directive:
			// processing instructions and DOCTYPE are not carried over
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name)
	}
	if doc.Root == nil {
		return nil, errors.New("no root element")
	}

	markContainer(doc.Root)
	for _, c := range doc.Root.Elements() {
		if c.Name != "string" {
			markContainer(c)
		}
	}
	return doc, nil
}

// markContainer drops whitespace-only text from n when n holds no other
// text, so that its children can be re-indented on output. <string> values
// and anything below the root's children are never touched: whitespace in
// string values is significant.
func markContainer(n *Node) {
	for _, c := range n.Children {
		if c.Kind == KindText && strings.TrimSpace(c.Text) != "" {
			return
		}
	}
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.Kind != KindText {
			kept = append(kept, c)
		}
	}
	n.Children = kept
	n.indent = true
}

func qualName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// ---------------------------------------------------------------------------
// Cleaning
// ---------------------------------------------------------------------------

// PruneVariants removes every <string> sharing a name with the others when
// the group carries a product attribute but none of its members is usable as
// the default (product absent or equal to defaultProduct). Build tools
// reject such variant-only strings. It returns the removed names in document
// order.
func (d *Document) PruneVariants(defaultProduct string) []string {
	type located struct {
		parent, node *Node
	}
	groups := make(map[string][]located)
	var names []string

	var walk func(parent *Node)
	walk = func(parent *Node) {
		for _, c := range parent.Children {
			if c.Kind != KindElement {
				continue
			}
			if c.Name == "string" {
				if name, ok := c.Attr("name"); ok {
					if _, seen := groups[name]; !seen {
						names = append(names, name)
					}
					groups[name] = append(groups[name], located{parent, c})
				}
			}
			walk(c)
		}
	}
	walk(d.Root)

	var pruned []string
	for _, name := range names {
		group := groups[name]
		hasVariant, hasDefault := false, false
		for _, l := range group {
			p, ok := l.node.Attr("product")
			if !ok || p == defaultProduct {
				hasDefault = true
			} else {
				hasVariant = true
			}
		}
		if !hasVariant || hasDefault {
			continue
		}
		for _, l := range group {
			l.parent.remove(l.node)
		}
		pruned = append(pruned, name)
	}
	return pruned
}

// StripComments removes all comments nested inside the root element. Comments
// outside the root element stay in the header block. It returns the header
// comment bodies.
func (d *Document) StripComments() []string {
	var strip func(n *Node)
	strip = func(n *Node) {
		kept := n.Children[:0]
		for _, c := range n.Children {
			if c.Kind == KindComment {
				continue
			}
			if c.Kind == KindElement {
				strip(c)
			}
			kept = append(kept, c)
		}
		n.Children = kept
	}
	strip(d.Root)

	header := make([]string, 0, len(d.Header))
	for _, c := range d.Header {
		header = append(header, c.Text)
	}
	return header
}

// IsEmpty reports whether the root element has no resources left.
func (d *Document) IsEmpty() bool {
	for _, c := range d.Root.Children {
		switch c.Kind {
		case KindElement:
			return false
		case KindText:
			if strings.TrimSpace(c.Text) != "" {
				return false
			}
		}
	}
	return true
}

// CleanResult is the outcome of cleaning one document.
type CleanResult struct {
	// Content is the cleaned document. Nil when Deleted.
	Content []byte
	// Deleted is true when nothing is left and the file should be removed.
	Deleted bool
	// Pruned lists string names removed as variant-only groups.
	Pruned []string
	// Header lists the comments kept in the header block.
	Header []string
	// Changed is set by CleanFile when the file on disk was modified.
	Changed bool
}

// Clean runs the whole cleaning pipeline over a raw document.
func Clean(data []byte) (*CleanResult, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	res := &CleanResult{
		Pruned: doc.PruneVariants(DefaultProduct),
		Header: doc.StripComments(),
	}
	if doc.IsEmpty() {
		res.Deleted = true
		return res, nil
	}
	res.Content = doc.Marshal()
	return res, nil
}

// CleanFile cleans a resource file in place. A missing file is not an error:
// (nil, nil) is returned. Parse failures leave the file untouched and return
// a *MalformedError; recovering the file is up to the caller.
func CleanFile(path string) (*CleanResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	res, err := Clean(data)
	if err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}

	if res.Deleted {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing %s: %w", path, err)
		}
		res.Changed = true
		return res, nil
	}

	if !bytes.Equal(data, res.Content) {
		if err := os.WriteFile(path, res.Content, info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		res.Changed = true
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

const indentUnit = "    "

var reClosingSpace = regexp.MustCompile(`\s+</resources>`)

// Marshal serializes the document: declaration, header comments, then the
// root element with container elements indented by four spaces.
func (d *Document) Marshal() []byte {
	var b strings.Builder
	if d.Decl != "" {
		b.WriteString(d.Decl)
		b.WriteByte('\n')
	}
	for _, c := range d.Header {
		b.WriteString("<!--")
		b.WriteString(c.Text)
		b.WriteString("-->\n")
	}
	writeNode(&b, d.Root, 0)
	b.WriteByte('\n')

	out := reClosingSpace.ReplaceAllString(b.String(), "\n</resources>")
	return []byte(out)
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	switch n.Kind {
	case KindText:
		b.WriteString(escapeText(n.Text))
		return
	case KindComment:
		b.WriteString("<!--")
		b.WriteString(n.Text)
		b.WriteString("-->")
		return
	}

	b.WriteString("<")
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		fmt.Fprintf(b, ` %s="%s"`, a.Name, escapeAttr(a.Value))
	}
	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")

	if n.indent {
		for _, c := range n.Children {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(indentUnit, depth+1))
			writeNode(b, c, depth+1)
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(indentUnit, depth))
	} else {
		for _, c := range n.Children {
			writeNode(b, c, depth+1)
		}
	}

	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteString(">")
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		`"`, "&quot;",
		"\n", "&#10;",
		"\t", "&#9;",
	)
)

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
