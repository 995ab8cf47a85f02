package content

// Chunk is one piece of an inbound message body, tagged with whether it is
// the terminal piece. A chunk is either owned (moved into the channel, which
// becomes its single consumer) or borrowed (the source may reuse the bytes
// after AddContent returns, so the channel copies them if it must keep them).
type Chunk struct {
	data  []byte
	last  bool
	owned bool
}

// NewChunk wraps data in an owned chunk. The caller must not touch data
// again.
func NewChunk(data []byte, last bool) Chunk {
	return Chunk{data: data, last: last, owned: true}
}

// BorrowChunk wraps data in a borrowed chunk. The channel copies the bytes
// before retaining them past the AddContent call.
func BorrowChunk(data []byte, last bool) Chunk {
	return Chunk{data: data, last: last}
}

// Len returns the number of payload bytes in the chunk.
func (c Chunk) Len() int {
	return len(c.data)
}

// Last returns whether this chunk terminates the message.
func (c Chunk) Last() bool {
	return c.last
}

// retain returns a chunk which is safe to hold after AddContent returns:
// owned chunks as-is, borrowed chunks with their bytes copied.
func (c Chunk) retain() Chunk {
	if c.owned {
		return c
	}
	data := make([]byte, len(c.data))
	copy(data, c.data)
	return Chunk{data: data, last: c.last, owned: true}
}
