package bridge

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"weak"
)

// Adapter is a node of the shadow tree. There is one adapter per logical
// component frame (and per region) of a mounted tree. An adapter is physical
// when it is bound to a target component owning a physical node; otherwise
// it only exists to keep logical positions and nesting.
//
// Ownership flows from the root to the leaves through the children slice.
// The back references to the parent and to the nearest physical ancestor are
// weak.
type Adapter struct {
	// Name is used for debugging.
	Name string

	depth           int
	parent          weak.Pointer[Adapter]
	closestPhysical weak.Pointer[Adapter]

	// children holds nil entries for text and markup frames, which own no
	// subtree but still take a logical position.
	children []*Adapter
	target   Component

	// pending and attach are only ever allocated on physical adapters.
	// attach holds the edits of NonPhysicalChild children.
	pending []PendingEdit
	attach  []PendingEdit

	disposed bool
}

func newRootAdapter(name string, container Component) *Adapter {
	return &Adapter{Name: name, target: container}
}

// Depth returns the distance to the root adapter.
func (a *Adapter) Depth() int { return a.depth }

// Parent returns the parent adapter, or nil for a root or a detached adapter.
func (a *Adapter) Parent() *Adapter { return a.parent.Value() }

// Target returns the component bound to the adapter, if any.
func (a *Adapter) Target() Component { return a.target }

// Physical reports whether pending edits of the subtree land on a.
func (a *Adapter) Physical() bool { return a.target != nil }

// Children returns a copy of the child list, placeholders included.
func (a *Adapter) Children() []*Adapter {
	c := make([]*Adapter, len(a.children))
	copy(c, a.children)
	return c
}

// PendingEdits returns a copy of the queued edits of a, in flush order.
func (a *Adapter) PendingEdits() []PendingEdit {
	return slices.Concat(a.pending, a.attach)
}

// physicalTarget is a itself when physical, else its nearest physical ancestor.
func (a *Adapter) physicalTarget() *Adapter {
	if a.target != nil {
		return a
	}
	return a.closestPhysical.Value()
}

// bindable reports whether a component frame gets its component bound as
// adapter target. Logical wrappers (layouts, routers...) are not bound.
func bindable(c Component) bool {
	caps := capabilities(c)
	return caps.Has(Physical) || caps.Has(NonPhysicalChild)
}

// createChild inserts a new adapter for frame f at the logical position
// siblingIndex.
func (a *Adapter) createChild(siblingIndex int, f Frame) (*Adapter, error) {
	if siblingIndex < 0 || siblingIndex > len(a.children) {
		return nil, fmt.Errorf("%w: sibling index %d out of range [0,%d] under %q", ErrMalformedBatch, siblingIndex, len(a.children), a.Name)
	}
	child := &Adapter{
		depth:           a.depth + 1,
		parent:          weak.Make(a),
		closestPhysical: weak.Make(a.physicalTarget()),
	}
	if f.Type == FrameComponent {
		child.Name = fmt.Sprintf("%T#%d", f.Component, f.ComponentID)
		if bindable(f.Component) {
			child.target = f.Component
		}
	} else {
		child.Name = fmt.Sprintf("%s@%d", f.Type, siblingIndex)
	}
	a.insertAt(siblingIndex, child)
	return child, nil
}

func (a *Adapter) insertAt(i int, child *Adapter) {
	a.children = append(a.children, nil)
	copy(a.children[i+1:], a.children[i:])
	a.children[i] = child
}

func (a *Adapter) removeAt(i int) *Adapter {
	child := a.children[i]
	copy(a.children[i:], a.children[i+1:])
	a.children[len(a.children)-1] = nil
	a.children = a.children[:len(a.children)-1]
	return child
}

// PhysicalSiblingIndex returns the position of a's physical node among the
// children of its nearest physical ancestor. It is computed on demand since
// earlier siblings may be mid-mutation within the same batch.
func (a *Adapter) PhysicalSiblingIndex() (int, bool) {
	p := a.closestPhysical.Value()
	if p == nil {
		return -1, false
	}
	i := p.physicalIndexOf(a)
	return i, i >= 0
}

// physicalIndexOf walks the subtree of a depth-first, counting the adapters
// that occupy a physical slot, until child is reached. It returns -1 when
// child is not reachable from a.
//
//	* A (physical)
//	  * A.0 (logical)
//	    * A.0.0 (physical)          counted
//	  * A.1 (logical)
//	    * A.1.0 (physical)  <- child, index 1
func (a *Adapter) physicalIndexOf(child *Adapter) int {
	index := 0
	if findPhysicalIndex(a, child, &index) {
		return index
	}
	return -1
}

func findPhysicalIndex(parent, target *Adapter, index *int) bool {
	for _, child := range parent.children {
		if child == nil {
			continue
		}
		if child == target {
			return true
		}
		switch {
		case child.target == nil:
			if findPhysicalIndex(child, target, index) {
				return true
			}
		case isNonPhysicalChild(child.target):
			// No slot of its own. Its children live under a only if it
			// forwards them.
			if forwardsChildren(child.target) && findPhysicalIndex(child, target, index) {
				return true
			}
		default:
			*index++
		}
	}
	return false
}

// dispose releases the resources of the targets of a's subtree. It never
// touches the physical tree; removals always go through pending edits.
func (a *Adapter) dispose() {
	if a == nil || a.disposed {
		return
	}
	a.disposed = true
	if capabilities(a.target).Has(Disposable) {
		if d, ok := a.target.(Disposer); ok {
			d.Dispose()
		}
	}
	for _, c := range a.children {
		c.dispose()
	}
}

// Disposed reports whether the adapter has been disposed.
func (a *Adapter) Disposed() bool { return a.disposed }

// Dump writes an indented description of the subtree rooted at a.
func (a *Adapter) Dump(w io.Writer) error {
	return dump(w, a, 0)
}

func dump(w io.Writer, a *Adapter, indent int) error {
	pad := strings.Repeat("  ", indent)
	if a == nil {
		_, err := fmt.Fprintf(w, "%s-\n", pad)
		return err
	}
	mark := ""
	if a.target != nil {
		mark = " [" + capabilities(a.target).String() + "]"
	}
	if _, err := fmt.Fprintf(w, "%s%s depth=%d%s\n", pad, a.Name, a.depth, mark); err != nil {
		return err
	}
	for _, c := range a.children {
		if err := dump(w, c, indent+1); err != nil {
			return err
		}
	}
	return nil
}
