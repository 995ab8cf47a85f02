package readset

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// segment returns a fake segment file: n bytes where byte i is i%256.
func segment(n int) *bytes.Reader {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return bytes.NewReader(b)
}

func TestOrdering(t *testing.T) {
	f := segment(100)

	rs, err := New(f, 100, []Range{
		{Key: "c", Offset: 50, Size: 10},
		{Key: "a", Offset: 0, Size: 20},
		{Key: "b", Offset: 20, Size: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 3, rs.Count())

	// enumeration follows offset order, not insertion order.
	for i, want := range []string{"a", "b", "c"} {
		key, err := rs.KeyAt(i)
		require.NoError(t, err)
		require.Equal(t, want, key)
	}

	for i, want := range []int64{20, 30, 10} {
		size, err := rs.SizeAt(i)
		require.NoError(t, err)
		require.Equal(t, want, size)
	}
}

func TestValidation(t *testing.T) {
	f := segment(100)

	// one byte past the watermark fails, even when other ranges are fine.
	_, err := New(f, 100, []Range{
		{Key: "ok", Offset: 0, Size: 100},
		{Key: "bad", Offset: 91, Size: 10},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, &ValidationError{})

	// exactly at the watermark is fine.
	rs, err := New(f, 100, []Range{
		{Key: "ok", Offset: 90, Size: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 1, rs.Count())
}

func TestAccessorBounds(t *testing.T) {
	f := segment(10)
	rs, err := New(f, 10, []Range{{Key: "k", Offset: 0, Size: 10}})
	require.NoError(t, err)

	_, err = rs.KeyAt(1)
	require.ErrorIs(t, err, &IndexError{})
	_, err = rs.SizeAt(-1)
	require.ErrorIs(t, err, &IndexError{})
	_, err = rs.ExpiresAt(99)
	require.ErrorIs(t, err, &IndexError{})
}

func TestTransfer(t *testing.T) {
	f := segment(256)
	rs, err := New(f, 256, []Range{{Key: "k", Offset: 10, Size: 100}})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := rs.Transfer(0, &buf, 0, 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), n)

	// one frame: 4-byte prefix then the payload bytes from offset 10.
	require.Equal(t, 104, buf.Len())
	require.Equal(t, uint32(100), binary.BigEndian.Uint32(buf.Bytes()[:4]))
	require.Equal(t, byte(10), buf.Bytes()[4])
	require.Equal(t, byte(109), buf.Bytes()[103])
}

func TestTransferResumable(t *testing.T) {
	f := segment(256)
	rs, err := New(f, 256, []Range{{Key: "k", Offset: 0, Size: 100}})
	require.NoError(t, err)

	// drive the whole range 7 bytes at a time, like a backpressured caller.
	var payload bytes.Buffer
	var total int64
	for total < 100 {
		var buf bytes.Buffer
		n, err := rs.Transfer(0, &buf, total, 7)
		require.NoError(t, err)
		require.LessOrEqual(t, n, int64(7))
		payload.Write(buf.Bytes()[4:]) // strip per-call frame prefix
		total += n
	}

	require.Equal(t, int64(100), total)
	for i, b := range payload.Bytes() {
		require.Equal(t, byte(i), b)
	}

	// fully consumed: another call moves nothing.
	var buf bytes.Buffer
	n, err := rs.Transfer(0, &buf, 100, 7)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestTransferErrors(t *testing.T) {
	f := segment(100)
	rs, err := New(f, 100, []Range{{Key: "k", Offset: 0, Size: 50}})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = rs.Transfer(1, &buf, 0, 10)
	require.ErrorIs(t, err, &IndexError{})

	_, err = rs.Transfer(0, &buf, 51, 10)
	require.ErrorIs(t, err, &RangeError{})
}

func TestConcurrentTransfers(t *testing.T) {
	f := segment(1000)

	ranges := make([]Range, 10)
	for i := range ranges {
		ranges[i] = Range{Key: string(rune('a' + i)), Offset: int64(i * 100), Size: 100}
	}
	rs, err := New(f, 1000, ranges)
	require.NoError(t, err)

	// each goroutine serves a different range to its own destination.
	bufs := make([]bytes.Buffer, 10)

	g := errgroup.Group{}
	for i := 0; i < 10; i++ {
		i := i
		g.Go(func() error {
			_, err := rs.Transfer(i, &bufs[i], 0, 100)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := range bufs {
		require.Equal(t, 104, bufs[i].Len())
		require.Equal(t, byte(i*100), bufs[i].Bytes()[4])
	}
}
