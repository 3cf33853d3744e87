package dom

import (
	"fmt"
	"slices"
	"strings"

	bridge "github.com/atdiar/particlebridge"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewBox returns a div.
func NewBox() *Element {
	return newElement(atom.Div, bridge.Physical|bridge.Container|bridge.InlineText|bridge.Attributes)
}

// Label is a span displaying the text of its child content.
type Label struct {
	*Element
}

func NewLabel() *Label {
	return &Label{newElement(atom.Span, bridge.Physical|bridge.InlineText|bridge.Attributes)}
}

// HandleText replaces the content of the label. Multi-line content is
// trimmed, since it usually comes with the indentation of the markup.
func (l *Label) HandleText(_ int, text string) {
	if strings.ContainsAny(text, "\r\n") {
		text = strings.TrimSpace(text)
	}
	for c := l.node.FirstChild; c != nil; c = l.node.FirstChild {
		l.node.RemoveChild(c)
	}
	if text != "" {
		l.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// Text returns the content of the label.
func (l *Label) Text() string {
	if c := l.node.FirstChild; c != nil {
		return c.Data
	}
	return ""
}

// Image is an img element. Disposing it drops its source.
type Image struct {
	*Element
	disposed bool
}

func NewImage() *Image {
	return &Image{Element: newElement(atom.Img, bridge.Physical|bridge.Attributes|bridge.Disposable)}
}

func (i *Image) Dispose() {
	removeAttr(i.node, "src")
	i.disposed = true
}

func (i *Image) Disposed() bool { return i.disposed }

// Layout groups children without producing any element.
type Layout struct {
	name string
}

func NewLayout() *Layout { return &Layout{name: "layout"} }

func (*Layout) Capabilities() bridge.Capability { return 0 }
func (l *Layout) String() string                { return l.name }

// Class adds a CSS class to the element it is attached to, for as long as it
// is attached. Its children are inserted into that element as well.
type Class struct {
	name   string
	parent *html.Node
}

func NewClass(name string) *Class { return &Class{name: name} }

func (c *Class) Capabilities() bridge.Capability {
	return bridge.NonPhysicalChild | bridge.ForwardChildren | bridge.Attributes
}

func (c *Class) String() string { return "." + c.name }

// SetAttribute accepts "name", moving the class on the attached element.
func (c *Class) SetAttribute(name string, value any) {
	if name != "name" {
		return
	}
	if c.parent != nil {
		removeClass(c.parent, c.name)
	}
	c.name = fmt.Sprint(value)
	if c.parent != nil {
		addClass(c.parent, c.name)
	}
}

func (c *Class) SetParent(parent bridge.Component) {
	n, err := nodeOf(parent)
	if err != nil {
		return
	}
	c.parent = n
	addClass(n, c.name)
}

func (c *Class) RemoveFromParent(parent bridge.Component) {
	n, err := nodeOf(parent)
	if err != nil || n != c.parent {
		return
	}
	removeClass(n, c.name)
	c.parent = nil
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func addClass(n *html.Node, name string) {
	if name == "" {
		return
	}
	cs := classes(n)
	if slices.Contains(cs, name) {
		return
	}
	setAttr(n, "class", strings.Join(append(cs, name), " "))
}

func removeClass(n *html.Node, name string) {
	cs := slices.DeleteFunc(classes(n), func(s string) bool { return s == name })
	if len(cs) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(cs, " "))
}

// Factory builds a component from its kind name: box, label, image, layout or
// class.
func Factory(kind string) (bridge.Component, error) {
	switch kind {
	case "box":
		return NewBox(), nil
	case "label":
		return NewLabel(), nil
	case "image":
		return NewImage(), nil
	case "layout":
		return NewLayout(), nil
	case "class":
		return NewClass(""), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
