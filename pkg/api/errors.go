package api

import (
	"fmt"
)

type NotFound struct {
	Key string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Key)
}

func (e *NotFound) Is(err error) bool {
	_, ok := err.(*NotFound)
	return ok
}

type IndexNotFound struct {
	Segment string
}

func (e *IndexNotFound) Error() string {
	return fmt.Sprintf("index not found: %s", e.Segment)
}

func (e *IndexNotFound) Is(err error) bool {
	_, ok := err.(*IndexNotFound)
	return ok
}
