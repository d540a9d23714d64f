package layout

import "errors"

var (
	// ErrInvalidLayout indicates a record layout that cannot be compiled.
	ErrInvalidLayout = errors.New("invalid layout")

	// ErrShortRecord indicates a record smaller than the layout frame. The
	// stream cannot recover alignment after it.
	ErrShortRecord = errors.New("record too small")
)
