// Package term renders a shadow tree into tview tree nodes, displayed in a
// terminal by a tview.TreeView.
package term

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	bridge "github.com/atdiar/particlebridge"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

var (
	ErrNotANode    = errors.New("term: component has no tree node")
	ErrChildMoved  = errors.New("term: child is not where expected")
	ErrUnknownKind = errors.New("term: unknown component kind")
)

// Node is implemented by the components owning a tree node.
type Node interface {
	bridge.Component
	TreeNode() *tview.TreeNode
}

// Element is a physical tree node.
type Element struct {
	node *tview.TreeNode
	caps bridge.Capability
}

func newElement(text string, caps bridge.Capability) *Element {
	e := &Element{node: tview.NewTreeNode(text), caps: caps}
	e.node.SetReference(e)
	return e
}

func (e *Element) Capabilities() bridge.Capability { return e.caps }
func (e *Element) TreeNode() *tview.TreeNode       { return e.node }
func (e *Element) String() string                  { return e.node.GetText() }

func (e *Element) InsertChild(index int, child bridge.Component) error {
	n, err := nodeOf(child)
	if err != nil {
		return err
	}
	children := e.node.GetChildren()
	if slices.Contains(children, n) {
		return fmt.Errorf("%w: %v is already a child of %v", ErrChildMoved, child, e)
	}
	index = min(index, len(children))
	e.node.SetChildren(slices.Insert(slices.Clone(children), index, n))
	return nil
}

func (e *Element) RemoveChild(index int, child bridge.Component) error {
	n, err := nodeOf(child)
	if err != nil {
		return err
	}
	children := e.node.GetChildren()
	if index < 0 || index >= len(children) || children[index] != n {
		return fmt.Errorf("%w: %v is not child %d of %v", ErrChildMoved, child, index, e)
	}
	e.node.SetChildren(slices.Delete(slices.Clone(children), index, index+1))
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
	children := slices.Clone(e.node.GetChildren())
	if index < 0 || index >= len(children) || children[index] != on {
		return fmt.Errorf("%w: %v is not child %d of %v", ErrChildMoved, old, index, e)
	}
	children[index] = nn
	e.node.SetChildren(children)
	return nil
}

func (e *Element) ChildCount() int { return len(e.node.GetChildren()) }

// SetAttribute understands "title" and "color".
func (e *Element) SetAttribute(name string, value any) {
	switch name {
	case "title":
		e.node.SetText(fmt.Sprint(value))
	case "color":
		e.node.SetColor(tcell.GetColor(fmt.Sprint(value)))
	}
}

// HandleText ignores loose text.
func (e *Element) HandleText(int, string) {}

func nodeOf(c bridge.Component) (*tview.TreeNode, error) {
	n, ok := c.(Node)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotANode, c)
	}
	return n.TreeNode(), nil
}

// NewRoot returns the host container of a shadow tree.
func NewRoot(title string) *Element {
	return newElement(title, bridge.Physical|bridge.Container|bridge.InlineText)
}

// NewBox returns an expandable node grouping its children.
func NewBox() *Element {
	return newElement("box", bridge.Physical|bridge.Container|bridge.InlineText|bridge.Attributes)
}

// Label is a leaf node displaying its child content.
type Label struct {
	*Element
}

func NewLabel() *Label {
	l := &Label{newElement("", bridge.Physical|bridge.InlineText|bridge.Attributes)}
	l.node.SetSelectable(false)
	return l
}

func (l *Label) HandleText(_ int, text string) {
	if strings.ContainsAny(text, "\r\n") {
		text = strings.TrimSpace(text)
	}
	l.node.SetText(text)
}

// Layout groups children without producing any node.
type Layout struct {
	name string
}

func NewLayout() *Layout { return &Layout{name: "layout"} }

func (*Layout) Capabilities() bridge.Capability { return 0 }
func (l *Layout) String() string                { return l.name }

// Factory builds a component from its kind name: box, label or layout.
func Factory(kind string) (bridge.Component, error) {
	switch kind {
	case "box":
		return NewBox(), nil
	case "label":
		return NewLabel(), nil
	case "layout":
		return NewLayout(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Outline returns a one line description of the tree rooted at n, e.g.
// "root(box(a b) c)".
func Outline(n *tview.TreeNode) string {
	var sb strings.Builder
	outline(&sb, n)
	return sb.String()
}

func outline(sb *strings.Builder, n *tview.TreeNode) {
	sb.WriteString(n.GetText())
	children := n.GetChildren()
	if len(children) == 0 {
		return
	}
	sb.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			sb.WriteByte(' ')
		}
		outline(sb, c)
	}
	sb.WriteByte(')')
}
