package seglog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/adammck/blobstream/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) *Log {
	t.Helper()
	c := clockwork.NewFakeClock()
	l, err := Create(filepath.Join(t.TempDir(), "000001.log"), c)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAdvancesWatermark(t *testing.T) {
	l := newLog(t)
	require.Equal(t, int64(len(magicBytes)), l.EndOffset())

	off1, size1, err := l.Append(&types.Record{Key: "a", ExpiresAt: types.NoExpiry, Body: []byte("one")})
	require.NoError(t, err)
	require.Equal(t, int64(len(magicBytes)), off1)
	require.Equal(t, off1+size1, l.EndOffset())

	off2, size2, err := l.Append(&types.Record{Key: "b", ExpiresAt: types.NoExpiry, Body: []byte("two")})
	require.NoError(t, err)
	require.Equal(t, off1+size1, off2)
	require.Equal(t, off2+size2, l.EndOffset())
}

func TestDump(t *testing.T) {
	l := newLog(t)

	for _, key := range []string{"a", "b", "c"} {
		_, _, err := l.Append(&types.Record{Key: key, ExpiresAt: types.NoExpiry, Body: []byte(key)})
		require.NoError(t, err)
	}

	var keys []string
	err := l.Dump(func(rec *types.Record) error {
		keys = append(keys, rec.Key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestReadSet(t *testing.T) {
	l := newLog(t)

	off, size, err := l.Append(&types.Record{Key: "k", ExpiresAt: types.NoExpiry, Body: []byte("hello")})
	require.NoError(t, err)

	rs, err := l.ReadSet([]api.IndexEntry{
		{Key: "k", Offset: off, Size: size, ExpiresAt: api.NoExpiry},
	})
	require.NoError(t, err)
	require.Equal(t, 1, rs.Count())

	var buf bytes.Buffer
	n, err := rs.Transfer(0, &buf, 0, size)
	require.NoError(t, err)
	require.Equal(t, size, n)

	// the framed payload is the record we appended.
	rec, err := types.Read(bytes.NewReader(buf.Bytes()[4:]))
	require.NoError(t, err)
	require.Equal(t, "k", rec.Key)
	require.Equal(t, []byte("hello"), rec.Body)
}

func TestReadSetBeyondWatermark(t *testing.T) {
	l := newLog(t)

	off, size, err := l.Append(&types.Record{Key: "k", ExpiresAt: types.NoExpiry, Body: []byte("x")})
	require.NoError(t, err)

	// an entry claiming bytes past the watermark must be rejected.
	_, err = l.ReadSet([]api.IndexEntry{
		{Key: "k", Offset: off, Size: size + 1},
	})
	require.Error(t, err)
}

func TestSeal(t *testing.T) {
	l := newLog(t)

	_, _, err := l.Append(&types.Record{Key: "a", ExpiresAt: types.NoExpiry, Body: []byte("x")})
	require.NoError(t, err)

	l.Seal()
	require.True(t, l.Sealed())

	_, _, err = l.Append(&types.Record{Key: "b", ExpiresAt: types.NoExpiry, Body: []byte("y")})
	require.ErrorIs(t, err, &SealedError{})
}

func TestReopen(t *testing.T) {
	c := clockwork.NewFakeClock()
	path := filepath.Join(t.TempDir(), "000001.log")

	l, err := Create(path, c)
	require.NoError(t, err)
	_, _, err = l.Append(&types.Record{Key: "a", ExpiresAt: types.NoExpiry, Body: []byte("one")})
	require.NoError(t, err)
	end := l.EndOffset()
	require.NoError(t, l.Close())

	// reopen finds the same watermark.
	l2, err := Open(path, c)
	require.NoError(t, err)
	defer l2.Close()
	require.Equal(t, end, l2.EndOffset())
}

func TestReopenIgnoresTornTail(t *testing.T) {
	c := clockwork.NewFakeClock()
	path := filepath.Join(t.TempDir(), "000001.log")

	l, err := Create(path, c)
	require.NoError(t, err)
	_, _, err = l.Append(&types.Record{Key: "a", ExpiresAt: types.NoExpiry, Body: []byte("one")})
	require.NoError(t, err)
	end := l.EndOffset()
	require.NoError(t, l.Close())

	// simulate a crash mid-append: garbage half-record at the tail.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{42, 0, 0, 0, 1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l2, err := Open(path, c)
	require.NoError(t, err)
	defer l2.Close()
	require.Equal(t, end, l2.EndOffset())
}
