package readset

import (
	"fmt"
)

// ValidationError is returned when a range would cross the committed end of
// the segment at construction time.
type ValidationError struct {
	Key     string
	Offset  int64
	Size    int64
	FileEnd int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("readset: range %s [%d+%d] crosses end offset %d", e.Key, e.Offset, e.Size, e.FileEnd)
}

func (e *ValidationError) Is(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("readset: index %d out of range (count %d)", e.Index, e.Count)
}

func (e *IndexError) Is(err error) bool {
	_, ok := err.(*IndexError)
	return ok
}

type RangeError struct {
	Key    string
	RelOff int64
	Size   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("readset: relative offset %d beyond range %s of size %d", e.RelOff, e.Key, e.Size)
}

func (e *RangeError) Is(err error) bool {
	_, ok := err.(*RangeError)
	return ok
}
