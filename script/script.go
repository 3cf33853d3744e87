// Package script loads replay scripts: YAML descriptions of a sequence of
// render batches, whose components are built by a driver factory.
//
//	title: counter
//	root: 0
//	batches:
//	  - frames:
//	      - {type: component, id: 1, kind: box, length: 2}
//	      - {type: attribute, name: id, value: main}
//	      - {type: component, id: 2, kind: label}
//	      - {type: text, content: hello}
//	    updates:
//	      - component: 0
//	        edits: [{op: prepend, sibling: 0, frame: 0}]
//	      - component: 1
//	        edits: [{op: prepend, sibling: 0, frame: 2}]
//	      - component: 2
//	        edits: [{op: prepend, sibling: 0, frame: 3}]
//	    disposed: []
//
// Instead of an edit list, an update may give the keys of the children of its
// component. The edits are then derived from the previous key list of that
// component, and inserted keys refer to the frames carrying them:
//
//	updates:
//	  - component: 1
//	    children: [a, c]
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	bridge "github.com/atdiar/particlebridge"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid script")

// Factory builds the component of a component frame from its kind.
type Factory func(kind string) (bridge.Component, error)

// Script is a loaded replay script.
type Script struct {
	Title string
	// Root is the component id the batches expect to be mounted.
	Root    int
	Batches []bridge.Batch
}

type document struct {
	Title   string  `yaml:"title"`
	Root    int     `yaml:"root"`
	Batches []batch `yaml:"batches"`
}

type batch struct {
	Frames   []frame  `yaml:"frames"`
	Updates  []update `yaml:"updates"`
	Disposed []int    `yaml:"disposed"`
}

type frame struct {
	Type    string `yaml:"type"`
	ID      int    `yaml:"id"`
	Kind    string `yaml:"kind"`
	Length  int    `yaml:"length"`
	Content string `yaml:"content"`
	Name    string `yaml:"name"`
	Value   any    `yaml:"value"`
	Key     string `yaml:"key"`
}

type update struct {
	Component int       `yaml:"component"`
	Edits     []edit    `yaml:"edits"`
	Children  *[]string `yaml:"children"`
}

type edit struct {
	Op      string `yaml:"op"`
	Sibling int    `yaml:"sibling"`
	Frame   int    `yaml:"frame"`
}

var frameTypes = map[string]bridge.FrameType{
	"component": bridge.FrameComponent,
	"region":    bridge.FrameRegion,
	"text":      bridge.FrameText,
	"markup":    bridge.FrameMarkup,
	"attribute": bridge.FrameAttribute,
}

var editTypes = map[string]bridge.EditType{
	"prepend": bridge.EditPrependFrame,
	"remove":  bridge.EditRemoveFrame,
	"text":    bridge.EditUpdateText,
	"markup":  bridge.EditUpdateMarkup,
	"stepin":  bridge.EditStepIn,
	"stepout": bridge.EditStepOut,
}

// LoadFile loads the script at path.
func LoadFile(path string, factory Factory) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f, factory)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load decodes and validates a script. One component is built per component
// id for the whole script: frames sharing an id share their component, and
// must agree on its kind.
func Load(r io.Reader, factory Factory) (*Script, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	l := loader{
		factory:    factory,
		components: make(map[int]instance),
		lists:      make(map[int][]string),
		explicit:   make(map[int]bool),
	}
	s := &Script{Title: doc.Title, Root: doc.Root, Batches: make([]bridge.Batch, 0, len(doc.Batches))}
	for i, b := range doc.Batches {
		out, err := l.batch(b, doc.Root)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %w", ErrInvalid, i, err)
		}
		s.Batches = append(s.Batches, out)
	}
	return s, nil
}

type instance struct {
	kind string
	c    bridge.Component
}

type loader struct {
	factory    Factory
	components map[int]instance
	// lists holds the current child keys of the components updated by key.
	lists map[int][]string
	// explicit marks the components updated by edit lists.
	explicit map[int]bool
}

func (l *loader) batch(b batch, root int) (bridge.Batch, error) {
	out := bridge.Batch{
		Frames:   make([]bridge.Frame, 0, len(b.Frames)),
		Updates:  make([]bridge.ComponentUpdate, 0, len(b.Updates)),
		Disposed: b.Disposed,
	}
	keys := make(map[string]int)
	for i, f := range b.Frames {
		bf, err := l.frame(f, root)
		if err != nil {
			return bridge.Batch{}, fmt.Errorf("frame %d: %w", i, err)
		}
		if f.Key != "" {
			if _, dup := keys[f.Key]; dup {
				return bridge.Batch{}, fmt.Errorf("frame %d: duplicate key %q", i, f.Key)
			}
			keys[f.Key] = i
		}
		if bf.SubtreeLength > 0 && i+bf.SubtreeLength > len(b.Frames) {
			return bridge.Batch{}, fmt.Errorf("frame %d: length %d runs past the %d frames", i, bf.SubtreeLength, len(b.Frames))
		}
		out.Frames = append(out.Frames, bf)
	}
	for i, u := range b.Updates {
		if u.Children != nil {
			if len(u.Edits) > 0 {
				return bridge.Batch{}, fmt.Errorf("update %d: edits and children are exclusive", i)
			}
			edits, err := l.keyed(u.Component, *u.Children, keys)
			if err != nil {
				return bridge.Batch{}, fmt.Errorf("update %d: %w", i, err)
			}
			out.Updates = append(out.Updates, bridge.ComponentUpdate{ComponentID: u.Component, Edits: edits})
			continue
		}
		if _, ok := l.lists[u.Component]; ok && len(u.Edits) > 0 {
			return bridge.Batch{}, fmt.Errorf("update %d: the children of component %d are given by key", i, u.Component)
		}
		if len(u.Edits) > 0 {
			l.explicit[u.Component] = true
		}
		cu := bridge.ComponentUpdate{ComponentID: u.Component, Edits: make([]bridge.EditOp, 0, len(u.Edits))}
		for j, e := range u.Edits {
			op, err := l.edit(e, len(b.Frames))
			if err != nil {
				return bridge.Batch{}, fmt.Errorf("update %d, edit %d: %w", i, j, err)
			}
			cu.Edits = append(cu.Edits, op)
		}
		out.Updates = append(out.Updates, cu)
	}
	for _, id := range b.Disposed {
		if id == root {
			return bridge.Batch{}, fmt.Errorf("the root component %d cannot be disposed", root)
		}
		delete(l.lists, id)
		delete(l.explicit, id)
	}
	return out, nil
}

// keyed derives the edits turning the current child keys of component id
// into next.
func (l *loader) keyed(id int, next []string, keys map[string]int) ([]bridge.EditOp, error) {
	if l.explicit[id] {
		return nil, fmt.Errorf("the children of component %d are given by edits", id)
	}
	seen := make(map[string]bool, len(next))
	for _, k := range next {
		if seen[k] {
			return nil, fmt.Errorf("duplicate child key %q", k)
		}
		seen[k] = true
	}
	ops := diffKeys(l.lists[id], next)
	edits := make([]bridge.EditOp, 0, len(ops))
	for _, op := range ops {
		if !op.Insert {
			edits = append(edits, bridge.Remove(op.Index))
			continue
		}
		fi, ok := keys[op.Key]
		if !ok {
			return nil, fmt.Errorf("child key %q is inserted without a frame", op.Key)
		}
		edits = append(edits, bridge.Prepend(op.Index, fi))
	}
	l.lists[id] = slices.Clone(next)
	return edits, nil
}

func (l *loader) frame(f frame, root int) (bridge.Frame, error) {
	t, ok := frameTypes[f.Type]
	if !ok {
		return bridge.Frame{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	out := bridge.Frame{Type: t, Content: f.Content, AttributeName: f.Name, AttributeValue: f.Value}
	switch t {
	case bridge.FrameComponent:
		if f.ID == root {
			return bridge.Frame{}, fmt.Errorf("component id %d is the root", f.ID)
		}
		c, err := l.component(f.ID, f.Kind)
		if err != nil {
			return bridge.Frame{}, err
		}
		out.ComponentID, out.Component = f.ID, c
		out.SubtreeLength = max(f.Length, 1)
	case bridge.FrameRegion:
		out.SubtreeLength = max(f.Length, 1)
	case bridge.FrameAttribute:
		if f.Name == "" {
			return bridge.Frame{}, errors.New("attribute without name")
		}
	}
	if f.Key != "" && (t == bridge.FrameRegion || t == bridge.FrameAttribute) {
		return bridge.Frame{}, fmt.Errorf("a %s frame cannot carry a key", f.Type)
	}
	return out, nil
}

func (l *loader) component(id int, kind string) (bridge.Component, error) {
	if in, ok := l.components[id]; ok {
		if kind != "" && kind != in.kind {
			return nil, fmt.Errorf("component %d is a %s, not a %s", id, in.kind, kind)
		}
		return in.c, nil
	}
	if kind == "" {
		return nil, fmt.Errorf("component %d has no kind", id)
	}
	c, err := l.factory(kind)
	if err != nil {
		return nil, err
	}
	l.components[id] = instance{kind: kind, c: c}
	return c, nil
}

func (l *loader) edit(e edit, frames int) (bridge.EditOp, error) {
	t, ok := editTypes[e.Op]
	if !ok {
		return bridge.EditOp{}, fmt.Errorf("unknown edit %q", e.Op)
	}
	if e.Sibling < 0 {
		return bridge.EditOp{}, fmt.Errorf("negative sibling index %d", e.Sibling)
	}
	switch t {
	case bridge.EditPrependFrame, bridge.EditUpdateText, bridge.EditUpdateMarkup:
		if e.Frame < 0 || e.Frame >= frames {
			return bridge.EditOp{}, fmt.Errorf("frame %d out of range [0,%d)", e.Frame, frames)
		}
	}
	return bridge.EditOp{Type: t, SiblingIndex: e.Sibling, FrameIndex: e.Frame}, nil
}
