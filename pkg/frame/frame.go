package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const prefixLen = 4

// MaxPayloadSize is the largest payload representable by the 4-byte length
// prefix without the framed buffer overflowing a signed 32-bit size.
const MaxPayloadSize = math.MaxInt32 - prefixLen

// Payload is anything which can be framed. Serialize must write exactly
// SizeInBytes bytes.
type Payload interface {
	SizeInBytes() int64
	Serialize(w io.Writer) error
}

// Frame holds one payload, fully serialized behind a 4-byte big-endian length
// prefix, plus a write cursor. The backing bytes are immutable after
// construction; only the cursor moves. A single Frame is not safe for
// concurrent writers; use Duplicate to give each destination its own cursor
// over the shared bytes.
type Frame struct {
	buf []byte
	pos int
}

// New serializes p into a new Frame. The payload is written out immediately,
// so the cost of serialization is paid here, not on the network path.
func New(p Payload) (*Frame, error) {
	size := p.SizeInBytes()
	if size > MaxPayloadSize {
		return nil, &CapacityError{Size: size}
	}

	buf := bytes.NewBuffer(make([]byte, 0, size+prefixLen))
	var prefix [prefixLen]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(size))
	buf.Write(prefix[:])

	err := p.Serialize(buf)
	if err != nil {
		return nil, fmt.Errorf("Serialize: %w", err)
	}
	if int64(buf.Len()) != size+prefixLen {
		return nil, fmt.Errorf("payload wrote %d bytes, declared %d", int64(buf.Len())-prefixLen, size)
	}

	return &Frame{buf: buf.Bytes()}, nil
}

// FromBytes frames a pre-built payload buffer. The buffer is not copied; the
// caller must not mutate it afterwards.
func FromBytes(payload []byte) (*Frame, error) {
	if int64(len(payload)) > MaxPayloadSize {
		return nil, &CapacityError{Size: int64(len(payload))}
	}

	buf := make([]byte, len(payload)+prefixLen)
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[prefixLen:], payload)

	return &Frame{buf: buf}, nil
}

// WriteTo writes as many of the remaining bytes as w accepts in one call, and
// advances the cursor by that much. Call it repeatedly until Complete; once
// complete it is a no-op returning zero.
func (f *Frame) WriteTo(w io.Writer) (int, error) {
	if f.Complete() {
		return 0, nil
	}

	n, err := w.Write(f.buf[f.pos:])
	f.pos += n
	if err != nil {
		return n, fmt.Errorf("Write: %w", err)
	}

	return n, nil
}

// Complete returns whether every byte, prefix included, has been written.
func (f *Frame) Complete() bool {
	return f.pos >= len(f.buf)
}

// Duplicate returns an independent cursor at position zero over the same
// backing bytes, without re-serializing the payload.
func (f *Frame) Duplicate() *Frame {
	return &Frame{buf: f.buf}
}

// Size returns the total framed size: payload plus prefix.
func (f *Frame) Size() int64 {
	return int64(len(f.buf))
}
