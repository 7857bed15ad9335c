package welch

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a spectral estimate is requested but
// zero sub-windows were accumulated, e.g. every epoch was invalid or the
// window length exceeds the epoch length.
var ErrInsufficientData = errors.New("no sub-windows accumulated")

// ShapeMismatchError reports two signals that cannot participate in the same
// spectral estimation because their lengths differ. This is a caller
// configuration bug and fatal to the affected computation.
type ShapeMismatchError struct {
	XLen int
	YLen int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("signal length mismatch: %d != %d", e.XLen, e.YLen)
}
