package bridge

import "errors"

var (
	// ErrUnsupportedFrame is returned for edit or frame variants the
	// reconciler does not implement.
	ErrUnsupportedFrame = errors.New("unsupported frame")
	// ErrTextTargetMismatch is returned when text or markup content reaches
	// a target that does not accept inline text.
	ErrTextTargetMismatch = errors.New("target does not accept text content")
	// ErrReplaceOfNonPhysicalChild is returned when a replacement involves a
	// non-physical child.
	ErrReplaceOfNonPhysicalChild = errors.New("non-physical children cannot be replaced")
	// ErrUnsupportedContainer is returned when a child mutation targets a
	// component that is not a child container.
	ErrUnsupportedContainer = errors.New("target does not support child mutation")
	ErrUnknownComponent     = errors.New("no adapter registered for component")
	ErrMalformedBatch       = errors.New("malformed batch")
	ErrReentrantBatch       = errors.New("batch triggered while another batch is in progress")
	ErrDispatcherClosed     = errors.New("dispatcher closed")
)
