package epoch

import (
	"errors"
	"fmt"
)

// Rejection causes carried by [InvalidEpochError].
var (
	ErrOutOfBounds       = errors.New("epoch span outside recording duration")
	ErrBadSegmentOverlap = errors.New("epoch span overlaps a bad segment")
	ErrTooShort          = errors.New("epoch shorter than minimum duration")
)

// ErrNoValidEpochs is returned when extraction rejects every candidate epoch.
var ErrNoValidEpochs = errors.New("no valid epochs extracted")

// InvalidEpochError describes why one candidate epoch was rejected.
// Rejections are diagnostic, not fatal, unless no valid epoch remains.
type InvalidEpochError struct {
	Start float64
	End   float64
	Cause error
}

func (e *InvalidEpochError) Error() string {
	return fmt.Sprintf("epoch [%gs, %gs): %v", e.Start, e.End, e.Cause)
}

func (e *InvalidEpochError) Unwrap() error {
	return e.Cause
}
