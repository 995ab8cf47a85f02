// Package readset provides an ordered, validated view over byte ranges in a
// log segment, each transferable to a destination writer as a length-framed
// payload. The index layer builds these; the serving layer drives them.
package readset

import (
	"fmt"
	"io"
	"sort"

	"github.com/adammck/blobstream/pkg/frame"
)

// NoExpiry marks a range whose blob never expires.
const NoExpiry int64 = -1

// Range is one readable byte range: a blob record inside a segment.
type Range struct {
	Key       string
	Offset    int64
	Size      int64
	ExpiresAt int64
}

// valid returns whether the range lies entirely below the committed end of
// the file. Anything past that watermark may be torn or uncommitted.
func (r Range) valid(fileEnd int64) bool {
	return r.Offset >= 0 && r.Size >= 0 && r.Offset+r.Size <= fileEnd
}

// ReadSet is an immutable, offset-ordered set of ranges over one open
// segment file. The file may be shared with other read-sets; transfers are
// positional, so no read cursor is shared and concurrent Transfer calls are
// safe without locking.
type ReadSet struct {
	f      io.ReaderAt
	ranges []Range
}

// New validates and sorts ranges into a ReadSet. Every range must end at or
// below fileEnd, or construction fails with ValidationError and no read-set
// is returned.
func New(f io.ReaderAt, fileEnd int64, ranges []Range) (*ReadSet, error) {
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Offset != sorted[j].Offset {
			return sorted[i].Offset < sorted[j].Offset
		}
		return sorted[i].Key < sorted[j].Key
	})

	for _, r := range sorted {
		if !r.valid(fileEnd) {
			return nil, &ValidationError{
				Key:     r.Key,
				Offset:  r.Offset,
				Size:    r.Size,
				FileEnd: fileEnd,
			}
		}
	}

	return &ReadSet{
		f:      f,
		ranges: sorted,
	}, nil
}

// Count returns the number of ranges in the set.
func (rs *ReadSet) Count() int {
	return len(rs.ranges)
}

// SizeAt returns the size of the i-th range in offset order.
func (rs *ReadSet) SizeAt(i int) (int64, error) {
	if i < 0 || i >= len(rs.ranges) {
		return 0, &IndexError{Index: i, Count: len(rs.ranges)}
	}
	return rs.ranges[i].Size, nil
}

// KeyAt returns the key of the i-th range in offset order.
func (rs *ReadSet) KeyAt(i int) (string, error) {
	if i < 0 || i >= len(rs.ranges) {
		return "", &IndexError{Index: i, Count: len(rs.ranges)}
	}
	return rs.ranges[i].Key, nil
}

// ExpiresAt returns the expiry of the i-th range in offset order, or
// NoExpiry.
func (rs *ReadSet) ExpiresAt(i int) (int64, error) {
	if i < 0 || i >= len(rs.ranges) {
		return 0, &IndexError{Index: i, Count: len(rs.ranges)}
	}
	return rs.ranges[i].ExpiresAt, nil
}

// Transfer reads min(maxSize, size-relOff) bytes of the i-th range starting
// relOff bytes in, frames them, and writes the frame to w. It returns the
// number of payload bytes moved. Each call is independent; callers resume a
// partial transfer by calling again with a larger relOff. Frames are per
// call, not per range: a range served across several calls arrives as one
// length-prefixed frame per call, and the consumer reassembles the payloads.
func (rs *ReadSet) Transfer(i int, w io.Writer, relOff, maxSize int64) (int64, error) {
	if i < 0 || i >= len(rs.ranges) {
		return 0, &IndexError{Index: i, Count: len(rs.ranges)}
	}

	r := rs.ranges[i]
	if relOff < 0 || relOff > r.Size {
		return 0, &RangeError{Key: r.Key, RelOff: relOff, Size: r.Size}
	}

	n := r.Size - relOff
	if maxSize < n {
		n = maxSize
	}
	if n <= 0 {
		return 0, nil
	}

	buf := make([]byte, n)
	_, err := rs.f.ReadAt(buf, r.Offset+relOff)
	if err != nil {
		return 0, fmt.Errorf("ReadAt: %w", err)
	}

	f, err := frame.FromBytes(buf)
	if err != nil {
		return 0, fmt.Errorf("frame.FromBytes: %w", err)
	}
	for !f.Complete() {
		_, err = f.WriteTo(w)
		if err != nil {
			return 0, fmt.Errorf("frame.WriteTo: %w", err)
		}
	}

	return n, nil
}
