// Package dom renders a shadow tree into an HTML document built with
// golang.org/x/net/html nodes.
//
// Physical components own exactly one element node. Text frames only reach
// the text sinks (labels), so that the element children of a node always
// match the physical children the reconciler counts.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	bridge "github.com/atdiar/particlebridge"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNotANode    = errors.New("dom: component has no html node")
	ErrChildMoved  = errors.New("dom: child is not where expected")
	ErrUnknownKind = errors.New("dom: unknown component kind")
)

// Node is implemented by the components owning an html node.
type Node interface {
	bridge.Component
	HTMLNode() *html.Node
}

// Element is a physical html element.
type Element struct {
	node *html.Node
	caps bridge.Capability
}

func newElement(a atom.Atom, caps bridge.Capability) *Element {
	return &Element{
		node: &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a},
		caps: caps,
	}
}

func (e *Element) Capabilities() bridge.Capability { return e.caps }
func (e *Element) HTMLNode() *html.Node            { return e.node }

func (e *Element) String() string {
	if id, ok := attr(e.node, "id"); ok {
		return fmt.Sprintf("<%s#%s>", e.node.Data, id)
	}
	return "<" + e.node.Data + ">"
}

// InsertChild inserts the node of child before the element child currently
// at index, or last.
func (e *Element) InsertChild(index int, child bridge.Component) error {
	n, err := nodeOf(child)
	if err != nil {
		return err
	}
	if n.Parent != nil {
		return fmt.Errorf("%w: %v already has a parent", ErrChildMoved, child)
	}
	e.node.InsertBefore(n, childAt(e.node, index))
	return nil
}

func (e *Element) RemoveChild(index int, child bridge.Component) error {
	n, err := nodeOf(child)
	if err != nil {
		return err
	}
	if got := childAt(e.node, index); got != n {
		return fmt.Errorf("%w: %v is not child %d of %v", ErrChildMoved, child, index, e)
	}
	e.node.RemoveChild(n)
	return nil
}

func (e *Element) ReplaceChild(index int, old, new bridge.Component) error {
	on, err := nodeOf(old)
	if err != nil {
		return err
	}
	nn, err := nodeOf(new)
	if err != nil {
		return err
	}
	if got := childAt(e.node, index); got != on {
		return fmt.Errorf("%w: %v is not child %d of %v", ErrChildMoved, old, index, e)
	}
	if nn.Parent != nil {
		return fmt.Errorf("%w: %v already has a parent", ErrChildMoved, new)
	}
	e.node.InsertBefore(nn, on)
	e.node.RemoveChild(on)
	return nil
}

func (e *Element) ChildCount() int { return countChildren(e.node) }

// SetAttribute sets an html attribute. nil and false remove it, true sets it
// without value.
func (e *Element) SetAttribute(name string, value any) {
	switch v := value.(type) {
	case nil:
		removeAttr(e.node, name)
	case bool:
		if !v {
			removeAttr(e.node, name)
			return
		}
		setAttr(e.node, name, "")
	default:
		setAttr(e.node, name, fmt.Sprint(v))
	}
}

// HandleText is a no-op: boxes lay out elements, loose text is dropped.
func (e *Element) HandleText(int, string) {}

func nodeOf(c bridge.Component) (*html.Node, error) {
	n, ok := c.(Node)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotANode, c)
	}
	return n.HTMLNode(), nil
}

// childAt returns the index-th child of n, or nil past the end.
func childAt(n *html.Node, index int) *html.Node {
	c := n.FirstChild
	for ; c != nil && index > 0; index-- {
		c = c.NextSibling
	}
	return c
}

func countChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool { return a.Key == key })
}

// Document is the host container of a shadow tree: its children are the
// children of body.
type Document struct {
	*Element
	root *html.Node
}

// NewDocument returns an empty html document.
func NewDocument(title string) *Document {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlNode := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	t := &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(t)
	htmlNode.AppendChild(head)

	body := newElement(atom.Body, bridge.Physical|bridge.Container|bridge.InlineText|bridge.Attributes)
	htmlNode.AppendChild(body.node)
	root.AppendChild(htmlNode)
	return &Document{Element: body, root: root}
}

// Body returns the body element node.
func (d *Document) Body() *html.Node { return d.node }

// Render writes the document as indented html.
func (d *Document) Render(w io.Writer) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return err
	}
	_, err := io.WriteString(w, gohtml.Format(buf.String()))
	return err
}

// RenderCompact writes the document without formatting.
func (d *Document) RenderCompact(w io.Writer) error {
	return html.Render(w, d.root)
}

// Outline returns a one line description of the element structure of n,
// e.g. "body(div(span img) span)".
func Outline(n *html.Node) string {
	var sb strings.Builder
	outline(&sb, n)
	return sb.String()
}

func outline(sb *strings.Builder, n *html.Node) {
	sb.WriteString(n.Data)
	if cls, ok := attr(n, "class"); ok && cls != "" {
		sb.WriteString("." + strings.ReplaceAll(cls, " ", "."))
	}
	first := true
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if first {
			sb.WriteByte('(')
			first = false
		} else {
			sb.WriteByte(' ')
		}
		outline(sb, c)
	}
	if !first {
		sb.WriteByte(')')
	}
}
