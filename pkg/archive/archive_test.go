package archive

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/adammck/blobstream/pkg/seglog"
	"github.com/adammck/blobstream/pkg/testdeps"
	"github.com/adammck/blobstream/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, *Store) {
	ctx := context.Background()
	env := testdeps.New(ctx, t, testdeps.WithMinio())
	s := New(env.S3Bucket)

	err := s.Ping(ctx)
	require.NoError(t, err)

	return ctx, s
}

func TestPutGetDelete(t *testing.T) {
	ctx, s := setup(t)

	body := []byte("sealed segment bytes")
	err := s.Put(ctx, "000001.log", bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	rc, err := s.Get(ctx, "000001.log")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, body, got)

	err = s.Delete(ctx, "000001.log")
	require.NoError(t, err)

	_, err = s.Get(ctx, "000001.log")
	require.Error(t, err)
}

func TestArchiveSegment(t *testing.T) {
	ctx, s := setup(t)

	// build a real segment, seal it, upload it, and read it back.
	clock := clockwork.NewFakeClock()
	l, err := seglog.Create(filepath.Join(t.TempDir(), "000002.log"), clock)
	require.NoError(t, err)
	defer l.Close()

	_, _, err = l.Append(&types.Record{Key: "k", ExpiresAt: types.NoExpiry, Body: []byte("hello")})
	require.NoError(t, err)
	l.Seal()

	r, size := l.Reader()
	err = s.Put(ctx, l.Name(), r, size)
	require.NoError(t, err)

	rc, err := s.Get(ctx, l.Name())
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, size, int64(len(got)))

	// past the magic header, the first record reads back.
	rec, err := types.Read(bytes.NewReader(got[4:]))
	require.NoError(t, err)
	require.Equal(t, "k", rec.Key)
}
