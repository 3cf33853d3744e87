package bridge

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func mount(t *testing.T, parent *Adapter, at int, id int, c Component) *Adapter {
	t.Helper()
	a, err := parent.createChild(at, ComponentFrame(id, c))
	require.NoError(t, err)
	return a
}

func TestPhysicalIndexWalk(t *testing.T) {
	root := newRootAdapter("root", box("body"))
	mount(t, root, 0, 1, leaf("a"))
	n := mount(t, root, 1, 2, wrapper("n", false))
	hidden := mount(t, n, 0, 3, leaf("hidden"))
	f := mount(t, root, 2, 4, wrapper("f", true))
	fe := mount(t, f, 0, 5, leaf("fe"))
	mount(t, root, 3, 6, logical("l"))
	root.insertAt(4, nil)
	b := mount(t, root, 5, 7, leaf("b"))

	i, ok := b.PhysicalSiblingIndex()
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	assert.Equal(t, 1, root.physicalIndexOf(fe), "children of a forwarding wrapper count in its parent")
	i, ok = fe.PhysicalSiblingIndex()
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	assert.Equal(t, -1, root.physicalIndexOf(hidden), "non forwarding wrappers hide their children")
}

func TestCreateChildBindsPhysicalComponentsOnly(t *testing.T) {
	root := newRootAdapter("root", box("body"))
	l := mount(t, root, 0, 1, logical("l"))
	e := mount(t, l, 0, 2, leaf("e"))
	w := mount(t, root, 1, 3, wrapper("w", false))

	assert.False(t, l.Physical())
	assert.True(t, e.Physical())
	assert.True(t, w.Physical(), "non physical children are still bound")
	assert.Same(t, root, e.closestPhysical.Value())
	assert.Nil(t, l.Target())
	assert.Equal(t, "e", fmt.Sprint(e.Target()))
	assert.Same(t, root, l.physicalTarget())
	assert.Same(t, l, e.Parent())
	assert.Equal(t, 2, e.Depth())

	_, err := root.createChild(5, ComponentFrame(4, leaf("x")))
	assert.ErrorIs(t, err, ErrMalformedBatch)
}

func TestDisposeIsRecursiveAndIdempotent(t *testing.T) {
	root := newRootAdapter("root", logical("host"))
	p, e := box("p"), leaf("e")
	pa := mount(t, root, 0, 1, p)
	mount(t, pa, 0, 2, e)
	pa.insertAt(1, nil)

	pa.dispose()
	pa.dispose()

	assert.Equal(t, 1, p.disposed)
	assert.Equal(t, 1, e.disposed)
	assert.True(t, pa.Disposed())
	assert.False(t, root.Disposed())
}

func TestDump(t *testing.T) {
	root := newRootAdapter("root", box("body"))
	l := mount(t, root, 0, 1, logical("l"))
	mount(t, l, 0, 2, leaf("e"))
	root.insertAt(1, nil)

	assert.Equal(t, "*bridge.element#1 -", adapterNames(root.Children()))

	var sb strings.Builder
	require.NoError(t, root.Dump(&sb))

	want := strings.Join([]string{
		"root depth=0 [physical|text|container|attributes|disposable]",
		"  *bridge.element#1 depth=1",
		"    *bridge.element#2 depth=2 [physical|attributes|disposable]",
		"  -",
		"",
	}, "\n")
	assert.Equal(t, want, sb.String())
}

type kind uint8

const (
	kindLeaf kind = iota
	kindText
	kindLogical
	kindBox
	// kindHidden is a wrapper keeping its children to itself.
	kindHidden
	kindForward
)

// model mirrors the logical tree a random batch sequence builds.
type model struct {
	kind     kind
	id       int
	el       *element
	children []*model
}

// physical appends the physical children m contributes to its nearest
// physical container.
func (m *model) physical(out []*model) []*model {
	for _, c := range m.children {
		switch c.kind {
		case kindLeaf, kindBox:
			out = append(out, c)
		case kindLogical, kindForward:
			out = c.physical(out)
		}
	}
	return out
}

// containers lists m and the models below it that can receive edits.
func (m *model) containers(out []*model) []*model {
	out = append(out, m)
	for _, c := range m.children {
		if c.kind != kindLeaf && c.kind != kindText {
			out = c.containers(out)
		}
	}
	return out
}

func (m *model) ids(out []int) []int {
	if m.kind != kindText {
		out = append(out, m.id)
	}
	for _, c := range m.children {
		out = c.ids(out)
	}
	return out
}

// detached appends the wrappers that removing m detaches. Boxes and hidden
// wrappers take their subtree with them.
func (m *model) detached(out []*element) []*element {
	switch m.kind {
	case kindHidden:
		return append(out, m.el)
	case kindForward:
		out = append(out, m.el)
	case kindLogical:
	default:
		return out
	}
	for _, c := range m.children {
		out = c.detached(out)
	}
	return out
}

// attachments records the element every wrapper below m is attached to.
func (m *model) attachments(parent *element, out map[*element]*element) {
	for _, c := range m.children {
		switch c.kind {
		case kindHidden:
			out[c.el] = parent
			c.attachments(c.el, out)
		case kindForward:
			out[c.el] = parent
			c.attachments(parent, out)
		case kindBox:
			c.attachments(c.el, out)
		case kindLogical:
			c.attachments(parent, out)
		}
	}
}

type fuzzer struct {
	rng      *rand.Rand
	nextID   int
	detached []*element
}

// node returns a frame for a new node of a random kind, and its model.
func (f *fuzzer) node(bb *builder) (int, *model) {
	if f.rng.Intn(6) == 0 {
		return bb.frame(TextFrame(" ")), &model{kind: kindText}
	}
	f.nextID++
	m := &model{id: f.nextID}
	switch r := f.rng.Intn(10); {
	case r < 4:
		m.kind, m.el = kindLeaf, leaf(fmt.Sprintf("l%d", m.id))
	case r < 6:
		m.kind, m.el = kindLogical, logical(fmt.Sprintf("g%d", m.id))
	case r < 8:
		m.kind, m.el = kindBox, box(fmt.Sprintf("b%d", m.id))
	case r < 9:
		m.kind, m.el = kindHidden, wrapper(fmt.Sprintf("h%d", m.id), false)
	default:
		m.kind, m.el = kindForward, wrapper(fmt.Sprintf("f%d", m.id), true)
	}
	return bb.frame(ComponentFrame(m.id, m.el)), m
}

// edit generates one edit against c and applies it to the model.
func (f *fuzzer) edit(bb *builder, c *model, disposed *[]int) EditOp {
	if n := len(c.children); n > 0 && f.rng.Intn(3) == 0 {
		i := f.rng.Intn(n)
		*disposed = c.children[i].ids(*disposed)
		f.detached = c.children[i].detached(f.detached)
		c.children = slices.Delete(c.children, i, i+1)
		return Remove(i)
	}
	at := f.rng.Intn(len(c.children) + 1)
	if f.rng.Intn(4) == 0 {
		// A region of up to three frames.
		region := bb.frame(RegionFrame(1))
		var kids []*model
		for range f.rng.Intn(4) {
			_, m := f.node(bb)
			kids = append(kids, m)
		}
		bb.b.Frames[region].SubtreeLength = len(bb.b.Frames) - region
		c.children = slices.Insert(c.children, at, kids...)
		return Prepend(at, region)
	}
	frame, m := f.node(bb)
	c.children = slices.Insert(c.children, at, m)
	return Prepend(at, frame)
}

func modelNames(ms []*model) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.el.name)
	}
	return out
}

// checkPhysicalTree compares every physical container with the model.
func checkPhysicalTree(t *testing.T, r *Renderer, root *model) {
	t.Helper()
	for _, c := range root.containers(nil) {
		if c.kind != kindBox {
			continue
		}
		want := c.physical(nil)
		require.Equal(t, modelNames(want), names(c.el.children), "children of %s", c.el.name)
		for i, m := range want {
			a, ok := r.Adapter(m.id)
			require.True(t, ok, "adapter of %s", m.el.name)
			if a.closestPhysical.Value().Target() != Component(c.el) {
				// Reached through a forwarding wrapper.
				continue
			}
			got, ok := a.PhysicalSiblingIndex()
			require.True(t, ok)
			require.Equal(t, i, got, "physical sibling index of %s", m.el.name)
		}
	}

	attached := make(map[*element]*element)
	root.attachments(root.el, attached)
	for w, parent := range attached {
		require.Same(t, parent, w.parent, "parent of %s", w.name)
	}
}

func TestRandomBatchesKeepPhysicalTreeInSync(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			h := newHarness(t)
			f := &fuzzer{rng: rand.New(rand.NewSource(seed))}
			root := &model{kind: kindBox, id: rootID, el: h.body}

			for batch := 0; batch < 25; batch++ {
				var bb builder
				var disposed []int
				f.detached = nil
				for range 1 + f.rng.Intn(3) {
					// Recomputed so that removed containers are never targeted.
					cs := root.containers(nil)
					c := cs[f.rng.Intn(len(cs))]
					var edits []EditOp
					for range 1 + f.rng.Intn(4) {
						edits = append(edits, f.edit(&bb, c, &disposed))
					}
					bb.update(c.id, edits...)
				}
				bb.b.Disposed = disposed
				require.NoError(t, h.apply(bb.b), "batch %d", batch)

				checkPhysicalTree(t, h.r, root)
				for _, w := range f.detached {
					require.Nil(t, w.parent, "%s is still attached", w.name)
				}
				for _, id := range disposed {
					_, ok := h.r.Adapter(id)
					require.False(t, ok, "adapter %d survived its disposal", id)
				}
			}
		})
	}
}

func TestRandomBatchesAreDeterministic(t *testing.T) {
	run := func() []string {
		h := newHarness(t)
		f := &fuzzer{rng: rand.New(rand.NewSource(7))}
		root := &model{kind: kindBox, id: rootID, el: h.body}
		for range 10 {
			var bb builder
			var disposed []int
			var edits []EditOp
			for range 5 {
				edits = append(edits, f.edit(&bb, root, &disposed))
			}
			bb.update(rootID, edits...)
			require.NoError(t, h.apply(bb.b))
		}
		return h.m.calls
	}
	assert.Equal(t, run(), run())
}
