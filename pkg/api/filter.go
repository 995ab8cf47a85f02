package api

import (
	"fmt"
)

// FilterInfo encapsulates a key membership filter with its type information.
type FilterInfo struct {
	// Type identifies the filter algorithm (e.g., "xor", "bloom")
	Type string `bson:"type"`

	// Data contains the serialized filter
	Data []byte `bson:"data"`
}

// FilterNotFound is returned when no filter exists for a segment.
type FilterNotFound struct {
	Segment string
}

func (e *FilterNotFound) Error() string {
	return fmt.Sprintf("filter not found: %s", e.Segment)
}

func (e *FilterNotFound) Is(err error) bool {
	_, ok := err.(*FilterNotFound)
	return ok
}
