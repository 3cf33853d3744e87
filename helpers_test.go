package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

// element is an in-memory physical node.
type element struct {
	name     string
	caps     Capability
	children []Component
	texts    map[int]string
	attrs    map[string]any
	parent   Component
	disposed int

	// onAdd, when set, runs before every insertion into the element.
	onAdd func()
}

func (e *element) Capabilities() Capability { return e.caps }
func (e *element) String() string           { return e.name }

func (e *element) InsertChild(index int, child Component) error {
	if index < 0 || index > len(e.children) {
		return fmt.Errorf("insert %v at %d into %s with %d children", child, index, e.name, len(e.children))
	}
	if e.onAdd != nil {
		e.onAdd()
	}
	e.children = slices.Insert(e.children, index, child)
	return nil
}

func (e *element) RemoveChild(index int, child Component) error {
	if index < 0 || index >= len(e.children) || e.children[index] != child {
		return fmt.Errorf("remove %v at %d from %s%v", child, index, e.name, e.children)
	}
	e.children = slices.Delete(e.children, index, index+1)
	return nil
}

func (e *element) ReplaceChild(index int, old, new Component) error {
	if index < 0 || index >= len(e.children) || e.children[index] != old {
		return fmt.Errorf("replace %v at %d in %s%v", old, index, e.name, e.children)
	}
	e.children[index] = new
	return nil
}

func (e *element) ChildCount() int { return len(e.children) }

func (e *element) HandleText(index int, text string) {
	if e.texts == nil {
		e.texts = make(map[int]string)
	}
	e.texts[index] = text
}

func (e *element) SetAttribute(name string, value any) {
	if e.attrs == nil {
		e.attrs = make(map[string]any)
	}
	e.attrs[name] = value
}

func (e *element) Dispose() { e.disposed++ }

func (e *element) SetParent(parent Component) { e.parent = parent }

func (e *element) RemoveFromParent(parent Component) {
	if e.parent == parent {
		e.parent = nil
	}
}

func box(name string) *element {
	return &element{name: name, caps: Physical | Container | InlineText | Attributes | Disposable}
}

func leaf(name string) *element {
	return &element{name: name, caps: Physical | Attributes | Disposable}
}

// logical is a component without physical counterpart.
func logical(name string) *element {
	return &element{name: name}
}

func wrapper(name string, forward bool) *element {
	caps := NonPhysicalChild
	if forward {
		caps |= ForwardChildren
	}
	return &element{name: name, caps: caps}
}

func names(cs []Component) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, fmt.Sprint(c))
	}
	return out
}

// recorder logs every call reaching the element manager.
type recorder struct {
	DefaultElementManager
	calls []string
	// before, when set, runs before each call.
	before func()
}

func (r *recorder) AddChild(parent, child Component, index int) error {
	r.record("add(%v,%v,%d)", parent, child, index)
	return r.DefaultElementManager.AddChild(parent, child, index)
}

func (r *recorder) RemoveChild(parent, child Component, index int) error {
	r.record("remove(%v,%v,%d)", parent, child, index)
	return r.DefaultElementManager.RemoveChild(parent, child, index)
}

func (r *recorder) ReplaceChild(parent, old, new Component, index int) error {
	r.record("replace(%v,%v,%v,%d)", parent, old, new, index)
	return r.DefaultElementManager.ReplaceChild(parent, old, new, index)
}

func (r *recorder) record(format string, args ...any) {
	if r.before != nil {
		r.before()
	}
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) reset() { r.calls = nil }

type harness struct {
	t    *testing.T
	ctx  context.Context
	r    *Renderer
	m    *recorder
	body *element
	root *Adapter
}

const rootID = 0

func newHarness(t *testing.T) *harness {
	t.Helper()
	m := &recorder{}
	r := NewRenderer(WithElementManager(m), WithLogger(discard()))
	body := box("body")
	return &harness{t: t, ctx: context.Background(), r: r, m: m, body: body, root: r.Mount(rootID, body)}
}

func (h *harness) apply(b Batch) error {
	h.t.Helper()
	return h.r.UpdateDisplay(h.ctx, b)
}

// builder accumulates the frames and updates of a batch.
type builder struct {
	b Batch
}

func (bb *builder) frame(f Frame) int {
	bb.b.Frames = append(bb.b.Frames, f)
	return len(bb.b.Frames) - 1
}

func (bb *builder) update(componentID int, edits ...EditOp) *builder {
	bb.b.Updates = append(bb.b.Updates, ComponentUpdate{ComponentID: componentID, Edits: edits})
	return bb
}

func adapterNames(as []*Adapter) string {
	var parts []string
	for _, a := range as {
		if a == nil {
			parts = append(parts, "-")
			continue
		}
		parts = append(parts, a.Name)
	}
	return strings.Join(parts, " ")
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }
