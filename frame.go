// Package bridge reconciles incremental logical UI tree edits onto a retained
// physical element tree.
//
// A logical runtime describes each update as a Batch: a flat, depth-first array
// of frames plus, per updated component, an ordered list of edits referencing
// those frames. The Renderer mirrors the logical tree in a shadow tree of
// Adapters, queues the resulting physical insertions and removals on the
// nearest physical ancestor, and flushes the queues deepest-first once the
// whole batch has been applied.
package bridge

import "fmt"

// FrameType discriminates the variants of a logical frame.
type FrameType uint8

const (
	FrameComponent FrameType = iota + 1
	FrameRegion
	FrameText
	FrameMarkup
	FrameAttribute
)

func (t FrameType) String() string {
	switch t {
	case FrameComponent:
		return "component"
	case FrameRegion:
		return "region"
	case FrameText:
		return "text"
	case FrameMarkup:
		return "markup"
	case FrameAttribute:
		return "attribute"
	}
	return fmt.Sprintf("frame(%d)", uint8(t))
}

// Frame is one entry of the flattened logical tree.
//
// Component and Region frames carry the length of their subtree, the frame
// itself included, so that already processed descendants can be skipped.
type Frame struct {
	Type FrameType

	ComponentID   int
	Component     Component
	SubtreeLength int

	// Content of Text and Markup frames.
	Content string

	AttributeName  string
	AttributeValue any
}

// ComponentFrame returns a component frame without descendants.
func ComponentFrame(id int, c Component) Frame {
	return Frame{Type: FrameComponent, ComponentID: id, Component: c, SubtreeLength: 1}
}

// RegionFrame returns a region frame spanning length frames, itself included.
func RegionFrame(length int) Frame {
	return Frame{Type: FrameRegion, SubtreeLength: length}
}

func TextFrame(content string) Frame {
	return Frame{Type: FrameText, Content: content}
}

func MarkupFrame(content string) Frame {
	return Frame{Type: FrameMarkup, Content: content}
}

func AttributeFrame(name string, value any) Frame {
	return Frame{Type: FrameAttribute, AttributeName: name, AttributeValue: value}
}

// descendants returns the number of frames nested under f.
// Only component and region frames have a meaningful subtree length.
func (f Frame) descendants() int {
	switch f.Type {
	case FrameComponent, FrameRegion:
		if f.SubtreeLength > 0 {
			return f.SubtreeLength - 1
		}
	}
	return 0
}

// EditType discriminates the operations of an edit script.
type EditType uint8

const (
	EditPrependFrame EditType = iota + 1
	EditRemoveFrame
	EditUpdateText
	EditUpdateMarkup
	EditStepIn
	EditStepOut
)

func (t EditType) String() string {
	switch t {
	case EditPrependFrame:
		return "prepend"
	case EditRemoveFrame:
		return "remove"
	case EditUpdateText:
		return "updatetext"
	case EditUpdateMarkup:
		return "updatemarkup"
	case EditStepIn:
		return "stepin"
	case EditStepOut:
		return "stepout"
	}
	return fmt.Sprintf("edit(%d)", uint8(t))
}

// EditOp describes one operation on the children of a component's adapter.
// FrameIndex references Batch.Frames.
type EditOp struct {
	Type         EditType
	SiblingIndex int
	FrameIndex   int
}

func Prepend(sibling, frame int) EditOp {
	return EditOp{Type: EditPrependFrame, SiblingIndex: sibling, FrameIndex: frame}
}

func Remove(sibling int) EditOp {
	return EditOp{Type: EditRemoveFrame, SiblingIndex: sibling}
}

func UpdateText(sibling, frame int) EditOp {
	return EditOp{Type: EditUpdateText, SiblingIndex: sibling, FrameIndex: frame}
}

func UpdateMarkup(sibling, frame int) EditOp {
	return EditOp{Type: EditUpdateMarkup, SiblingIndex: sibling, FrameIndex: frame}
}

// ComponentUpdate is the ordered edit list produced for one component.
type ComponentUpdate struct {
	ComponentID int
	Edits       []EditOp
}

// Batch is one externally delivered set of edit scripts. An error raised while
// applying its edits aborts it before any physical mutation is issued.
type Batch struct {
	Frames   []Frame
	Updates  []ComponentUpdate
	Disposed []int
}

func (b Batch) frame(i int) (Frame, error) {
	if i < 0 || i >= len(b.Frames) {
		return Frame{}, fmt.Errorf("%w: frame index %d out of range [0,%d)", ErrMalformedBatch, i, len(b.Frames))
	}
	return b.Frames[i], nil
}
