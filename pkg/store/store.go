// Package store ties the streaming plane together for a single node: inbound
// content channels drain into the live log segment, and reads come back out
// as validated read-sets streamed range by range to a destination.
package store

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/adammck/blobstream/pkg/content"
	"github.com/adammck/blobstream/pkg/filter"
	"github.com/adammck/blobstream/pkg/index"
	"github.com/adammck/blobstream/pkg/readset"
	"github.com/adammck/blobstream/pkg/seglog"
	"github.com/adammck/blobstream/pkg/types"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// transferChunkSize bounds how much of a range a single Transfer call moves,
// so one huge blob can't monopolize a destination.
const transferChunkSize = 64 * 1024

const filterCacheSize = 64

const segmentName = "000001.log"

type Store struct {
	log   *seglog.Log
	idx   *index.Index
	ixs   api.IndexStore
	fc    *filter.Cache
	clock clockwork.Clock

	// filter over the live segment's keys, present only once sealed.
	filterMu sync.Mutex
	filter   filter.Filter
}

func New(dir string, ixs api.IndexStore, clock clockwork.Clock) (*Store, error) {
	l, err := seglog.Create(filepath.Join(dir, segmentName), clock)
	if err != nil {
		return nil, fmt.Errorf("seglog.Create: %w", err)
	}

	fc, err := filter.NewCache(filterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("filter.NewCache: %w", err)
	}

	return &Store{
		log:   l,
		idx:   index.New(clock),
		ixs:   ixs,
		fc:    fc,
		clock: clock,
	}, nil
}

// Open returns a store over an existing segment directory, restoring the key
// index which Seal persisted through ixs. Serves reads only in any useful
// sense: the segment may accept appends, but nothing re-persists the index.
func Open(ctx context.Context, dir string, ixs api.IndexStore, clock clockwork.Clock) (*Store, error) {
	l, err := seglog.Open(filepath.Join(dir, segmentName), clock)
	if err != nil {
		return nil, fmt.Errorf("seglog.Open: %w", err)
	}

	fc, err := filter.NewCache(filterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("filter.NewCache: %w", err)
	}

	entries, err := ixs.GetIndex(ctx, l.Name())
	if err != nil {
		return nil, fmt.Errorf("GetIndex: %w", err)
	}

	idx := index.New(clock)
	for _, e := range entries {
		idx.Put(e.Key, e.Offset, e.Size, e.ExpiresAt)
	}

	return &Store{
		log:   l,
		idx:   idx,
		ixs:   ixs,
		fc:    fc,
		clock: clock,
	}, nil
}

// bufferSink collects a content stream into memory until the record can be
// appended to the log in one piece. Acks are synchronous: the bytes are in
// our buffer, so they are as accepted as they will ever be.
type bufferSink struct {
	mu  sync.Mutex
	buf []byte
}

func (s *bufferSink) Write(p []byte, ack content.Callback) {
	s.mu.Lock()
	s.buf = append(s.buf, p...)
	s.mu.Unlock()
	ack(int64(len(p)), nil)
}

func (s *bufferSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// Put attaches to the content channel, waits for the body to stream in, and
// appends it to the live segment. The transport keeps calling
// Channel.AddContent concurrently; only this caller blocks. Returns the
// number of body bytes stored.
func (s *Store) Put(ctx context.Context, key string, expiresAt int64, ch *content.Channel) (int64, error) {
	sink := &bufferSink{}

	comp, err := ch.ReadInto(sink, nil)
	if err != nil {
		return 0, fmt.Errorf("ReadInto: %w", err)
	}

	n, err := comp.Wait(ctx)
	if err != nil {
		return n, fmt.Errorf("content: %w", err)
	}

	rec := &types.Record{
		Key:       key,
		ExpiresAt: expiresAt,
		Body:      sink.bytes(),
	}

	off, size, err := s.log.Append(rec)
	if err != nil {
		return n, fmt.Errorf("seglog.Append: %w", err)
	}

	s.idx.Put(key, off, size, expiresAt)
	return n, nil
}

// Delete appends a tombstone and drops the key from the index.
func (s *Store) Delete(ctx context.Context, key string) error {
	rec := &types.Record{
		Key:       key,
		ExpiresAt: types.NoExpiry,
		Tombstone: true,
	}

	_, _, err := s.log.Append(rec)
	if err != nil {
		return fmt.Errorf("seglog.Append: %w", err)
	}

	s.idx.Delete(key)
	return nil
}

// Get resolves keys to a validated read-set over the live segment. Once the
// segment is sealed its key filter runs first, so a definitely-absent key
// never touches the index.
func (s *Store) Get(keys ...string) (*readset.ReadSet, error) {
	s.filterMu.Lock()
	f := s.filter
	s.filterMu.Unlock()

	if f != nil {
		for _, key := range keys {
			if !f.Contains(key) {
				return nil, &api.NotFound{Key: key}
			}
		}
	}

	entries, err := s.idx.Get(keys...)
	if err != nil {
		return nil, err
	}

	rs, err := s.log.ReadSet(entries)
	if err != nil {
		return nil, fmt.Errorf("seglog.ReadSet: %w", err)
	}

	return rs, nil
}

// ServeTo streams every range of the read-set to w, in offset order, framed.
// Each Transfer call moves at most transferChunkSize bytes, so cancellation
// is honored between chunks.
func (s *Store) ServeTo(ctx context.Context, rs *readset.ReadSet, w io.Writer) (int64, error) {
	var total int64

	for i := 0; i < rs.Count(); i++ {
		size, err := rs.SizeAt(i)
		if err != nil {
			return total, err
		}

		var relOff int64
		for relOff < size {
			if err := ctx.Err(); err != nil {
				return total, err
			}

			n, err := rs.Transfer(i, w, relOff, transferChunkSize)
			if err != nil {
				return total, fmt.Errorf("Transfer: %w", err)
			}

			relOff += n
			total += n
		}
	}

	return total, nil
}

// ServeAll streams the read-set to every writer concurrently, one goroutine
// per destination. Transfers are positional, so the destinations proceed
// independently; a slow writer delays only itself. Fails on the first error.
func (s *Store) ServeAll(ctx context.Context, rs *readset.ReadSet, ws ...io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, w := range ws {
		g.Go(func() error {
			_, err := s.ServeTo(ctx, rs, w)
			return err
		})
	}

	return g.Wait()
}

// Seal freezes the live segment, then builds its key filter and persists its
// index concurrently. After sealing, appends fail and reads are served
// filter-first.
func (s *Store) Seal(ctx context.Context) error {
	s.log.Seal()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.ixs.StoreIndex(ctx, s.log.Name(), s.idx.Entries())
		if err != nil {
			return fmt.Errorf("StoreIndex: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		keys := s.idx.Keys()
		if len(keys) == 0 {
			return nil
		}

		f, err := filter.Create(keys)
		if err != nil {
			return fmt.Errorf("filter.Create: %w", err)
		}

		s.filterMu.Lock()
		s.filter = f
		s.filterMu.Unlock()
		s.fc.Add(s.log.Name(), f)
		return nil
	})

	return g.Wait()
}

// Segment exposes the live segment, for archival and tooling.
func (s *Store) Segment() *seglog.Log {
	return s.log
}

// Close closes the backing segment file.
func (s *Store) Close() error {
	return s.log.Close()
}
