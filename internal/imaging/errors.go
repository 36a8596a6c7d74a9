package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds reports a pixel access outside [0,width)x[0,height).
	// It signals a programming error, not a user-facing condition.
	ErrOutOfBounds = errors.New("pixel coordinate out of bounds")

	// ErrInvalidInput reports a zero-area or malformed buffer reaching an operation.
	ErrInvalidInput = errors.New("invalid input buffer")

	// ErrResourceInit reports that an imaging backend could not be initialized.
	ErrResourceInit = errors.New("imaging backend initialization failed")
)

// BoundsError describes an out-of-range coordinate access.
type BoundsError struct {
	X, Y          int
	Width, Height int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("pixel (%d,%d) outside %dx%d buffer", e.X, e.Y, e.Width, e.Height)
}

// Unwrap lets errors.Is(err, ErrOutOfBounds) match.
func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}
