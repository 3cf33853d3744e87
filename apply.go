package bridge

import (
	"fmt"
)

// editPass holds the state of one batch's edit application.
type editPass struct {
	r     *Renderer
	batch Batch
	// dirty lists, in discovery order, the physical adapters that received
	// pending edits during the pass.
	dirty []*Adapter
	seen  map[*Adapter]struct{}
}

func (p *editPass) touch(a *Adapter) {
	if _, ok := p.seen[a]; ok {
		return
	}
	p.seen[a] = struct{}{}
	p.dirty = append(p.dirty, a)
}

// applyEdits applies the edit list of one component to its adapter, strictly
// in order.
func (p *editPass) applyEdits(a *Adapter, componentID int, edits []EditOp) error {
	for n, edit := range edits {
		if err := p.applyEdit(a, edit); err != nil {
			return fmt.Errorf("component %d, edit %d (%s): %w", componentID, n, edit.Type, err)
		}
	}
	return nil
}

func (p *editPass) applyEdit(a *Adapter, edit EditOp) error {
	switch edit.Type {
	case EditPrependFrame:
		_, err := p.prependFrame(a, edit.SiblingIndex, edit.FrameIndex)
		return err
	case EditRemoveFrame:
		return p.removeFrame(a, edit.SiblingIndex)
	case EditUpdateText, EditUpdateMarkup:
		f, err := p.batch.frame(edit.FrameIndex)
		if err != nil {
			return err
		}
		return handleText(a, edit.SiblingIndex, f.Content)
	case EditStepIn, EditStepOut:
		// Nesting is already reflected by the adapter tree.
		return nil
	}
	return fmt.Errorf("%w: edit type %s", ErrUnsupportedFrame, edit.Type)
}

// handleText forwards content to the target of a. Blank content aimed at a
// target without the inline text contract is ignored.
func handleText(a *Adapter, index int, content string) error {
	if sink, ok := textSink(a.target); ok {
		sink.HandleText(index, content)
		return nil
	}
	if blank(content) {
		return nil
	}
	return fmt.Errorf("%w: %q does not accept %q", ErrTextTargetMismatch, a.Name, content)
}

// prependFrame inserts the frame at frameIndex as child siblingIndex of a.
// It returns the number of logical positions taken.
func (p *editPass) prependFrame(a *Adapter, siblingIndex, frameIndex int) (int, error) {
	f, err := p.batch.frame(frameIndex)
	if err != nil {
		return 0, err
	}
	switch f.Type {
	case FrameComponent:
		child, err := a.createChild(siblingIndex, f)
		if err != nil {
			return 0, err
		}
		p.r.register(f.ComponentID, child)
		// Parameters are set before the element is queued for insertion so
		// that it is complete when it reaches its parent.
		if err := p.applyParameters(child, frameIndex, f); err != nil {
			return 0, err
		}
		if child.target != nil {
			p.addElementAsChild(a, child)
		}
		return 1, nil
	case FrameRegion:
		return p.insertFrameRange(a, siblingIndex, frameIndex+1, frameIndex+f.SubtreeLength)
	case FrameText, FrameMarkup:
		if err := handleText(a, siblingIndex, f.Content); err != nil {
			return 0, err
		}
		if siblingIndex < 0 || siblingIndex > len(a.children) {
			return 0, fmt.Errorf("%w: sibling index %d out of range under %q", ErrMalformedBatch, siblingIndex, a.Name)
		}
		// No adapter, but the position matters to later siblings.
		a.insertAt(siblingIndex, nil)
		return 1, nil
	case FrameAttribute:
		setAttribute(a.target, f)
		return 0, nil
	}
	return 0, fmt.Errorf("%w: frame type %s", ErrUnsupportedFrame, f.Type)
}

// insertFrameRange prepends the frames [start,end) at increasing sibling
// positions, skipping the descendants of each inserted frame.
func (p *editPass) insertFrameRange(a *Adapter, siblingIndex, start, end int) (int, error) {
	if end > len(p.batch.Frames) {
		return 0, fmt.Errorf("%w: region ends at %d past %d frames", ErrMalformedBatch, end, len(p.batch.Frames))
	}
	orig := siblingIndex
	for i := start; i < end; i++ {
		n, err := p.prependFrame(a, siblingIndex, i)
		if err != nil {
			return 0, err
		}
		siblingIndex += n
		i += p.batch.Frames[i].descendants()
	}
	return siblingIndex - orig, nil
}

// applyParameters sets the attribute frames directly nested in a component
// frame on the newly bound component.
func (p *editPass) applyParameters(child *Adapter, frameIndex int, f Frame) error {
	end := frameIndex + f.SubtreeLength
	if end > len(p.batch.Frames) {
		return fmt.Errorf("%w: component frame %d ends at %d past %d frames", ErrMalformedBatch, frameIndex, end, len(p.batch.Frames))
	}
	for i := frameIndex + 1; i < end; i++ {
		if nested := p.batch.Frames[i]; nested.Type == FrameAttribute {
			setAttribute(child.target, nested)
		}
	}
	return nil
}

func setAttribute(c Component, f Frame) {
	if !capabilities(c).Has(Attributes) {
		return
	}
	if s, ok := c.(AttributeSetter); ok {
		s.SetAttribute(f.AttributeName, f.AttributeValue)
	}
}

// addElementAsChild queues the insertion of child's element into the nearest
// physical ancestor of parent. A negative index means child is not reachable
// yet and the addition is dropped.
func (p *editPass) addElementAsChild(parent, child *Adapter) {
	pt := parent.physicalTarget()
	if pt == nil || child.target == nil {
		return
	}
	index := pt.physicalIndexOf(child)
	if index < 0 {
		droppedEdits.WithLabelValues(PendingAdd.String()).Inc()
		p.r.log.Warn("dropping addition of unreachable element", "parent", pt.Name, "child", child.Name)
		return
	}
	p.r.log.Debug("queue addition", "parent", pt.Name, "child", child.Name, "index", index)
	pt.queueAddition(child, index)
	p.touch(pt)

	if forwardsChildren(pt.target) {
		if up := pt.Parent(); up != nil {
			p.addElementAsChild(up, child)
		}
	}
}

// removeFrame removes child siblingIndex of a and queues the physical
// removals it implies.
func (p *editPass) removeFrame(a *Adapter, siblingIndex int) error {
	if siblingIndex < 0 || siblingIndex >= len(a.children) {
		return fmt.Errorf("%w: sibling index %d out of range [0,%d) under %q", ErrMalformedBatch, siblingIndex, len(a.children), a.Name)
	}
	child := a.children[siblingIndex]
	if err := p.removeElementAndDescendants(a, child); err != nil {
		return err
	}
	a.removeAt(siblingIndex)
	return nil
}

// removeElementAndDescendants queues the removal of child's element from the
// nearest physical ancestor of parent. Removing a physical element implicitly
// removes its whole subtree; a logical adapter is unwound child by child.
func (p *editPass) removeElementAndDescendants(parent, child *Adapter) error {
	if child == nil {
		return nil
	}
	if child.target == nil {
		for i := len(child.children) - 1; i >= 0; i-- {
			if err := p.removeFrame(child, i); err != nil {
				return err
			}
		}
		return nil
	}
	pt := parent.physicalTarget()
	if pt == nil {
		return nil
	}
	if index := pt.physicalIndexOf(child); index >= 0 {
		p.r.log.Debug("queue removal", "parent", pt.Name, "child", child.Name, "index", index)
		pt.queueRemoval(child, index)
		p.touch(pt)
	}
	if forwardsChildren(child.target) {
		// The wrapper's children were inserted into pt as well.
		for i := len(child.children) - 1; i >= 0; i-- {
			if err := p.removeFrame(child, i); err != nil {
				return err
			}
		}
	}
	if forwardsChildren(pt.target) {
		// It was also added to the wrapper's own parent.
		if up := pt.Parent(); up != nil {
			return p.removeElementAndDescendants(up, child)
		}
	}
	return nil
}
