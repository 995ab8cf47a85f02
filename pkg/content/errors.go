package content

import (
	"fmt"

	"github.com/adammck/blobstream/pkg/api"
)

// StateError is returned for an operation against the wrong lifecycle state:
// adding content to a closed channel, or attaching a second reader.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("content: %s not permitted in state %s", e.Op, e.State)
}

func (e *StateError) Is(err error) bool {
	_, ok := err.(*StateError)
	return ok
}

// SizeMismatchError is returned when the cumulative content size disagrees
// with the declared size: more bytes than declared, or a terminal chunk
// arriving short.
type SizeMismatchError struct {
	Declared int64
	Received int64
	TooMuch  bool
}

func (e *SizeMismatchError) Error() string {
	if e.TooMuch {
		return fmt.Sprintf("content: received %d bytes, more than the declared %d", e.Received, e.Declared)
	}
	return fmt.Sprintf("content: stream ended at %d bytes, less than the declared %d", e.Received, e.Declared)
}

func (e *SizeMismatchError) Is(err error) bool {
	_, ok := err.(*SizeMismatchError)
	return ok
}

// ContentAfterLastError is returned when a chunk arrives after the terminal
// chunk has already been seen.
type ContentAfterLastError struct{}

func (e *ContentAfterLastError) Error() string {
	return "content: chunk received after the terminal chunk"
}

func (e *ContentAfterLastError) Is(err error) bool {
	_, ok := err.(*ContentAfterLastError)
	return ok
}

// UnsupportedContentError is returned when content arrives for a method which
// declares no body.
type UnsupportedContentError struct {
	Method api.Method
}

func (e *UnsupportedContentError) Error() string {
	return fmt.Sprintf("content: no content expected for %s", e.Method)
}

func (e *UnsupportedContentError) Is(err error) bool {
	_, ok := err.(*UnsupportedContentError)
	return ok
}

// ChannelClosedError is the completion outcome forced by Close, and the
// outcome of reading a channel which was closed before a reader attached.
type ChannelClosedError struct{}

func (e *ChannelClosedError) Error() string {
	return "content: channel closed"
}

func (e *ChannelClosedError) Is(err error) bool {
	_, ok := err.(*ChannelClosedError)
	return ok
}
