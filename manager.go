package bridge

import "fmt"

// ElementManager applies physical mutations. The renderer calls it only while
// flushing, in the exact order of the pending edit queues.
type ElementManager interface {
	AddChild(parent, child Component, index int) error
	RemoveChild(parent, child Component, index int) error
	ReplaceChild(parent, old, new Component, index int) error
}

// DefaultElementManager mutates components implementing ChildContainer and
// attaches NonPhysical components through SetParent/RemoveFromParent.
type DefaultElementManager struct{}

// AddChild inserts child at index, clamped to the child count of parent.
// It is a no-op unless both components have a physical representation.
func (DefaultElementManager) AddChild(parent, child Component, index int) error {
	if isNonPhysicalChild(child) {
		if np, ok := child.(NonPhysical); ok {
			np.SetParent(parent)
		}
		return nil
	}
	if !isPhysical(parent) || isNonPhysicalChild(parent) || !isPhysical(child) {
		return nil
	}
	c, ok := childContainer(parent)
	if !ok {
		return fmt.Errorf("%w: cannot add %T to %T", ErrUnsupportedContainer, child, parent)
	}
	if n := c.ChildCount(); index > n {
		index = n
	}
	return c.InsertChild(index, child)
}

func (DefaultElementManager) RemoveChild(parent, child Component, index int) error {
	if isNonPhysicalChild(child) {
		if np, ok := child.(NonPhysical); ok {
			np.RemoveFromParent(parent)
		}
		return nil
	}
	if !isPhysical(parent) || isNonPhysicalChild(parent) || !isPhysical(child) {
		return nil
	}
	c, ok := childContainer(parent)
	if !ok {
		return fmt.Errorf("%w: cannot remove %T from %T", ErrUnsupportedContainer, child, parent)
	}
	return c.RemoveChild(index, child)
}

func (DefaultElementManager) ReplaceChild(parent, old, new Component, index int) error {
	if isNonPhysicalChild(old) || isNonPhysicalChild(new) {
		return fmt.Errorf("%w: %T by %T", ErrReplaceOfNonPhysicalChild, old, new)
	}
	if !isPhysical(parent) || isNonPhysicalChild(parent) {
		return nil
	}
	c, ok := childContainer(parent)
	if !ok {
		return fmt.Errorf("%w: cannot replace children of %T", ErrUnsupportedContainer, parent)
	}
	return c.ReplaceChild(index, old, new)
}
