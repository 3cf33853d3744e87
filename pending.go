package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// PendingKind is the kind of a queued physical mutation.
type PendingKind uint8

const (
	PendingAdd PendingKind = iota + 1
	PendingRemove
)

func (k PendingKind) String() string {
	switch k {
	case PendingAdd:
		return "add"
	case PendingRemove:
		return "remove"
	}
	return fmt.Sprintf("pending(%d)", uint8(k))
}

// PendingEdit is an Add or Remove intention queued on a physical adapter
// during a batch. Edits of NonPhysicalChild components (attach and detach)
// are queued apart: they take no physical slot and never shift the indices
// of the other edits.
type PendingEdit struct {
	Kind    PendingKind
	Index   int
	Adapter *Adapter
}

func (p PendingEdit) String() string {
	return fmt.Sprintf("%s(%d,%s)", p.Kind, p.Index, p.Adapter.Name)
}

// queueRemoval queues the removal of child at physical index on a, which
// must be physical.
//
// Removals are moved before the trailing run of additions they relate to, so
// that a removal ends up right before the addition that takes its slot and
// both can be collapsed into a replacement. Indices of the edits it jumps
// over are renumbered so that every queued edit stays valid in order.
func (a *Adapter) queueRemoval(child *Adapter, index int) {
	if isNonPhysicalChild(child.target) {
		a.queueDetach(child, index)
		return
	}
	edits := a.pending
	i := len(edits)
	for ; i > 0; i-- {
		prev := edits[i-1]
		if prev.Kind == PendingRemove {
			break
		}
		if prev.Index < index-1 {
			break
		}
		if prev.Adapter == child {
			// Added earlier in the same batch: at this point of the queue the
			// child sits at prev.Index == index, so both edits cancel out.
			a.pending = append(edits[:i-1], edits[i:]...)
			return
		}
		// An addition already paired with a preceding removal at the same
		// index is left alone.
		if i >= 2 && edits[i-2].Kind == PendingRemove && edits[i-2].Index == prev.Index {
			break
		}
		if prev.Index <= index {
			index--
		}
		if prev.Index > index {
			edits[i-1].Index = prev.Index - 1
		}
	}
	a.pending = insertPending(edits, i, PendingEdit{Kind: PendingRemove, Index: index, Adapter: child})
}

// queueAddition queues the insertion of child at physical index on a.
//
// Trailing additions at an index greater or equal are shifted right and the
// new addition is placed before them, so that additions are issued in
// ascending index order. A container that treats its first child specially
// (the current page of a navigation shell...) then sees children in their
// final order.
func (a *Adapter) queueAddition(child *Adapter, index int) {
	if isNonPhysicalChild(child.target) {
		a.attach = append(a.attach, PendingEdit{Kind: PendingAdd, Index: index, Adapter: child})
		return
	}
	edits := a.pending
	i := len(edits)
	for ; i > 0; i-- {
		prev := edits[i-1]
		if prev.Kind != PendingAdd || prev.Index < index {
			break
		}
		edits[i-1].Index = prev.Index + 1
	}
	a.pending = insertPending(edits, i, PendingEdit{Kind: PendingAdd, Index: index, Adapter: child})
}

// queueDetach queues the detachment of a non-physical child, or cancels its
// attachment when it is still queued.
func (a *Adapter) queueDetach(child *Adapter, index int) {
	for i, e := range a.attach {
		if e.Adapter == child && e.Kind == PendingAdd {
			a.attach = slices.Delete(a.attach, i, i+1)
			return
		}
	}
	a.attach = append(a.attach, PendingEdit{Kind: PendingRemove, Index: index, Adapter: child})
}

func insertPending(edits []PendingEdit, i int, e PendingEdit) []PendingEdit {
	edits = append(edits, PendingEdit{})
	copy(edits[i+1:], edits[i:])
	edits[i] = e
	return edits
}

// flush issues the queued edits of a to the element manager, collapsing a
// removal immediately followed by an addition at the same index into one
// replacement. Negative indices are skipped. Attachments and detachments of
// non-physical children follow, in queue order. The queues are cleared
// whatever the outcome.
func (a *Adapter) flush(ctx context.Context, m ElementManager, log *slog.Logger) (issued int, err error) {
	defer a.clearPending()
	edits := a.pending
	for i := 0; i < len(edits); i++ {
		edit := edits[i]
		if edit.Index < 0 {
			droppedEdits.WithLabelValues(edit.Kind.String()).Inc()
			log.WarnContext(ctx, "dropping pending edit with negative index", "parent", a.Name, "edit", edit.String())
			continue
		}
		if i+1 < len(edits) {
			next := edits[i+1]
			if edit.Kind == PendingRemove && next.Kind == PendingAdd && next.Index == edit.Index {
				log.DebugContext(ctx, "replace child", "parent", a.Name, "old", edit.Adapter.Name, "new", next.Adapter.Name, "index", edit.Index)
				if err := m.ReplaceChild(a.target, edit.Adapter.target, next.Adapter.target, edit.Index); err != nil {
					return issued, fmt.Errorf("replace child %d of %q: %w", edit.Index, a.Name, err)
				}
				mutations.WithLabelValues("replace").Inc()
				issued++
				i++
				continue
			}
		}
		if err := a.issue(ctx, m, log, edit); err != nil {
			return issued, err
		}
		issued++
	}
	for _, edit := range a.attach {
		if err := a.issue(ctx, m, log, edit); err != nil {
			return issued, err
		}
		issued++
	}
	return issued, nil
}

func (a *Adapter) issue(ctx context.Context, m ElementManager, log *slog.Logger, edit PendingEdit) error {
	switch edit.Kind {
	case PendingRemove:
		log.DebugContext(ctx, "remove child", "parent", a.Name, "child", edit.Adapter.Name, "index", edit.Index)
		if err := m.RemoveChild(a.target, edit.Adapter.target, edit.Index); err != nil {
			return fmt.Errorf("remove child %d of %q: %w", edit.Index, a.Name, err)
		}
		mutations.WithLabelValues("remove").Inc()
	case PendingAdd:
		log.DebugContext(ctx, "add child", "parent", a.Name, "child", edit.Adapter.Name, "index", edit.Index)
		if err := m.AddChild(a.target, edit.Adapter.target, edit.Index); err != nil {
			return fmt.Errorf("add child %d of %q: %w", edit.Index, a.Name, err)
		}
		mutations.WithLabelValues("add").Inc()
	}
	return nil
}

func (a *Adapter) clearPending() {
	clear(a.pending)
	a.pending = a.pending[:0]
	clear(a.attach)
	a.attach = a.attach[:0]
}
