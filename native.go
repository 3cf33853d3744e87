package bridge

import "strings"

// Capability is the set of contracts a component's physical side supports.
// The reconciler only relies on these bits to decide how to treat a
// component; the method interfaces below are consulted once the bit is set.
type Capability uint16

const (
	// Physical marks a component that owns a node of the physical tree.
	Physical Capability = 1 << iota
	// InlineText marks a TextSink: text and markup frames are forwarded to it.
	InlineText
	// NonPhysicalChild marks a wrapper that is attached to its would-be parent
	// through SetParent instead of being inserted as a child.
	NonPhysicalChild
	// ForwardChildren makes the children of a NonPhysicalChild also children
	// of the wrapper's own parent.
	ForwardChildren
	// Container marks a component supporting positional child mutation.
	Container
	// Attributes marks an AttributeSetter.
	Attributes
	// Disposable marks a Disposer.
	Disposable
)

// Has reports whether all the bits of o are set in c.
func (c Capability) Has(o Capability) bool { return c&o == o }

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	names := []string{"physical", "text", "nonphysical", "forward", "container", "attributes", "disposable"}
	var parts []string
	for i, n := range names {
		if c&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// Component is the logical component carried by a component frame.
// Components without the Physical capability are purely logical wrappers
// (layouts, routers...) and never reach the element manager.
type Component interface {
	Capabilities() Capability
}

// TextSink accepts inline text at a logical sibling position.
type TextSink interface {
	HandleText(index int, text string)
}

// NonPhysical is implemented by NonPhysicalChild components.
type NonPhysical interface {
	SetParent(parent Component)
	RemoveFromParent(parent Component)
}

// ChildContainer supports insertion, removal and replacement of physical
// children by physical sibling index. Implementations must accept an index
// equal to the current child count.
type ChildContainer interface {
	InsertChild(index int, child Component) error
	RemoveChild(index int, child Component) error
	ReplaceChild(index int, old, new Component) error
	ChildCount() int
}

// AttributeSetter receives attribute frames.
type AttributeSetter interface {
	SetAttribute(name string, value any)
}

// Disposer releases resources owned by a physical node.
type Disposer interface {
	Dispose()
}

func capabilities(c Component) Capability {
	if c == nil {
		return 0
	}
	return c.Capabilities()
}

func isPhysical(c Component) bool {
	return capabilities(c).Has(Physical)
}

// isNonPhysicalChild reports whether c is bound to an adapter but never
// occupies a physical slot.
func isNonPhysicalChild(c Component) bool {
	return capabilities(c).Has(NonPhysicalChild)
}

func forwardsChildren(c Component) bool {
	return capabilities(c).Has(NonPhysicalChild | ForwardChildren)
}

func textSink(c Component) (TextSink, bool) {
	if !capabilities(c).Has(InlineText) {
		return nil, false
	}
	s, ok := c.(TextSink)
	return s, ok
}

func childContainer(c Component) (ChildContainer, bool) {
	if !capabilities(c).Has(Container) {
		return nil, false
	}
	cc, ok := c.(ChildContainer)
	return cc, ok
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
