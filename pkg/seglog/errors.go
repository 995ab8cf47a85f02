package seglog

import (
	"fmt"
)

// SealedError is returned when appending to a sealed segment.
type SealedError struct {
	Segment string
}

func (e *SealedError) Error() string {
	return fmt.Sprintf("seglog: segment is sealed: %s", e.Segment)
}

func (e *SealedError) Is(err error) bool {
	_, ok := err.(*SealedError)
	return ok
}
