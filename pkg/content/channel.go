// Package content provides the ingestion side of the streaming plane: an
// asynchronous channel which buffers inbound body chunks until a consumer
// attaches, then forwards them in arrival order with a single, exactly-once
// completion outcome.
package content

import (
	"strconv"
	"sync"

	"github.com/adammck/blobstream/pkg/api"
)

// SizeUnknown is the declared size of a stream whose headers carry no length.
const SizeUnknown int64 = -1

// Sink is the destination a Channel forwards chunks into. Write must not
// block; it accepts the bytes and acknowledges them asynchronously through
// ack, exactly once per call.
type Sink interface {
	Write(p []byte, ack Callback)
}

type state int

const (
	stateNoReader state = iota
	stateHasReader
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateNoReader:
		return "NoReader"
	case stateHasReader:
		return "HasReader"
	default:
		return "Closed"
	}
}

// Channel buffers inbound content chunks and forwards them to at most one
// attached sink, enforcing the declared total size. Everything mutable (the
// queue, the lifecycle state, the size counter) lives under one mutex, so a
// chunk is delivered exactly once and in arrival order no matter how
// AddContent, ReadInto, and Close interleave across threads.
type Channel struct {
	method   api.Method
	declared int64

	mu       sync.Mutex
	st       state
	queue    []Chunk
	sink     Sink
	comp     *Completion
	received int64
	lastSeen bool
	failed   error
}

// NewChannel returns an open channel for a request with the given method and
// declared size (SizeUnknown when the headers carry no length).
func NewChannel(method api.Method, declaredSize int64) *Channel {
	return &Channel{
		method:   method,
		declared: declaredSize,
	}
}

// DeclaredSize resolves the declared content size from protocol headers: the
// explicit blob size header wins, then the standard content length, then
// SizeUnknown.
func DeclaredSize(blobSize string, contentLength int64) int64 {
	if blobSize != "" {
		n, err := strconv.ParseInt(blobSize, 10, 64)
		if err == nil {
			return n
		}
	}
	if contentLength >= 0 {
		return contentLength
	}
	return SizeUnknown
}

// Size returns the declared size, or SizeUnknown.
func (ch *Channel) Size() int64 {
	return ch.declared
}

// Method returns the request method which produced this stream.
func (ch *Channel) Method() api.Method {
	return ch.method
}

// BytesReceived returns the cumulative size of every chunk accepted so far.
func (ch *Channel) BytesReceived() int64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.received
}

// Open returns whether the channel is still accepting content.
func (ch *Channel) Open() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.st != stateClosed
}

// AddContent accepts one chunk from the transport. With no reader attached
// the chunk is queued; with a reader it is forwarded immediately, in arrival
// order. The running size is checked against the declared size on every
// call, and a mismatch fails the stream and forces completion.
func (ch *Channel) AddContent(c Chunk) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.st == stateClosed {
		return &StateError{Op: "AddContent", State: ch.st.String()}
	}

	// a bodyless method may still send an empty terminal chunk as an
	// end-of-message marker; anything else is a protocol violation.
	if !ch.method.HasBody() && !(c.Last() && c.Len() == 0) {
		return &UnsupportedContentError{Method: ch.method}
	}

	if ch.lastSeen {
		return &ContentAfterLastError{}
	}

	ch.received += int64(c.Len())
	if ch.declared >= 0 && ch.received > ch.declared {
		return ch.fail(&SizeMismatchError{
			Declared: ch.declared,
			Received: ch.received,
			TooMuch:  true,
		})
	}

	if c.Last() {
		ch.lastSeen = true
		if ch.declared >= 0 && ch.received < ch.declared {
			return ch.fail(&SizeMismatchError{
				Declared: ch.declared,
				Received: ch.received,
			})
		}
	}

	if ch.st == stateHasReader {
		ch.forward(c)
	} else {
		ch.queue = append(ch.queue, c.retain())
	}
	return nil
}

// ReadInto attaches the destination for this stream. Every queued chunk is
// drained to it in arrival order before the call returns, and later chunks
// are forwarded as they arrive. May be called exactly once; a second call
// fails without affecting the first. The returned Completion resolves once
// with the total bytes forwarded and the stream error, if any.
func (ch *Channel) ReadInto(sink Sink, cb Callback) (*Completion, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.comp != nil {
		return nil, &StateError{Op: "ReadInto", State: ch.st.String()}
	}

	comp := newCompletion(cb)
	ch.comp = comp

	if ch.st == stateClosed {
		comp.resolve(ch.closedErr())
		return comp, nil
	}

	ch.sink = sink
	ch.st = stateHasReader
	for _, c := range ch.queue {
		ch.forward(c)
	}
	ch.queue = nil

	return comp, nil
}

// Close drops any unread queued chunks and stops accepting content. If a
// reader is attached and not yet complete, its completion is forced so no
// caller blocks forever. Idempotent, callable from any thread.
func (ch *Channel) Close() {
	ch.mu.Lock()
	if ch.st == stateClosed {
		ch.mu.Unlock()
		return
	}
	ch.st = stateClosed
	ch.queue = nil
	comp := ch.comp
	err := ch.closedErr()
	ch.mu.Unlock()

	if comp != nil {
		comp.resolve(err)
	}
}

// fail marks the stream broken, closes the channel, forces completion if a
// reader is attached, and returns err for AddContent to surface. Caller must
// hold ch.mu.
func (ch *Channel) fail(err error) error {
	ch.failed = err
	ch.st = stateClosed
	ch.queue = nil
	if ch.comp != nil {
		ch.comp.resolve(err)
	}
	return err
}

// closedErr returns the error a forced completion should carry: the stream
// error if one occurred, else the generic closed error. Caller must hold
// ch.mu.
func (ch *Channel) closedErr() error {
	if ch.failed != nil {
		return ch.failed
	}
	return &ChannelClosedError{}
}

// forward hands one chunk to the sink. The ack updates the forwarded byte
// count and resolves the completion when the terminal chunk lands or the
// write fails. Caller must hold ch.mu; the completion itself never takes it,
// so a sink which acks synchronously is fine.
func (ch *Channel) forward(c Chunk) {
	comp := ch.comp
	last := c.Last()
	ch.sink.Write(c.data, func(n int64, err error) {
		comp.addBytes(n)
		if err != nil || last {
			comp.resolve(err)
		}
	})
}
