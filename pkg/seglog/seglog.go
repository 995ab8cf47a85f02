// Package seglog implements the append-only log segment which blob records
// are streamed into and served out of. A single writer appends; the committed
// end offset (watermark) only advances once a record is fully on the file, so
// readers built against it can never observe torn bytes.
package seglog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/adammck/blobstream/pkg/readset"
	"github.com/adammck/blobstream/pkg/types"
	"github.com/jonboulle/clockwork"
)

const magicBytes = "sgl1"

type Log struct {
	f     *os.File
	name  string
	clock clockwork.Clock

	mu     sync.Mutex
	end    int64 // watermark: highest committed byte offset
	sealed bool
}

// Create starts a new empty segment at path.
func Create(path string, clock clockwork.Clock) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("OpenFile: %w", err)
	}

	n, err := f.Write([]byte(magicBytes))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("Write(magic): %w", err)
	}

	return &Log{
		f:     f,
		name:  filepath.Base(path),
		clock: clock,
		end:   int64(n),
	}, nil
}

// Open reopens an existing segment and scans it to find the watermark. A
// trailing partial record (a crashed append) is ignored; the watermark stops
// at the last complete record.
func Open(path string, clock clockwork.Clock) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("OpenFile: %w", err)
	}

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("read magic bytes: %w", err)
	}
	if string(magic) != magicBytes {
		f.Close()
		return nil, fmt.Errorf("wrong magic bytes: got=%x, want=%x", magic, magicBytes)
	}

	// scan forward one record at a time; the watermark stops at the last
	// record which reads back in full.
	end := int64(len(magicBytes))
	for {
		r := io.NewSectionReader(f, end, 1<<62)
		var sizeBytes [4]byte
		if _, err := io.ReadFull(r, sizeBytes[:]); err != nil {
			break
		}
		size := int64(binary.LittleEndian.Uint32(sizeBytes[:]))
		if size < 5 {
			break
		}
		rec, err := types.Read(io.NewSectionReader(f, end, size))
		if err != nil || rec == nil {
			break
		}
		end += size
	}

	return &Log{
		f:     f,
		name:  filepath.Base(path),
		clock: clock,
		end:   end,
	}, nil
}

// Name returns the segment's file name.
func (l *Log) Name() string {
	return l.name
}

// EndOffset returns the watermark: every byte below it is committed and safe
// to read.
func (l *Log) EndOffset() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.end
}

// Append writes one record, stamps it with the current time, and advances the
// watermark once the whole record is on the file. It returns the byte range
// the record occupies, for the index.
func (l *Log) Append(rec *types.Record) (offset, size int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sealed {
		return 0, 0, &SealedError{Segment: l.name}
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.clock.Now().UTC()
	}

	var buf bytes.Buffer
	_, err = rec.Write(&buf)
	if err != nil {
		return 0, 0, fmt.Errorf("Record.Write: %w", err)
	}

	offset = l.end
	n, err := l.f.WriteAt(buf.Bytes(), offset)
	if err != nil {
		return 0, 0, fmt.Errorf("WriteAt: %w", err)
	}

	l.end += int64(n)
	return offset, int64(n), nil
}

// ReadSet builds a validated read-set over the given index entries against
// the current watermark. The returned set shares the segment file; transfers
// are positional, so many read-sets can serve concurrently.
func (l *Log) ReadSet(entries []api.IndexEntry) (*readset.ReadSet, error) {
	ranges := make([]readset.Range, len(entries))
	for i, e := range entries {
		ranges[i] = readset.Range{
			Key:       e.Key,
			Offset:    e.Offset,
			Size:      e.Size,
			ExpiresAt: e.ExpiresAt,
		}
	}

	rs, err := readset.New(l.f, l.EndOffset(), ranges)
	if err != nil {
		return nil, fmt.Errorf("readset.New: %w", err)
	}

	return rs, nil
}

// Dump reads every committed record in order, calling fn for each. Used by
// tooling and recovery, not the serving path.
func (l *Log) Dump(fn func(*types.Record) error) error {
	end := l.EndOffset()
	r := io.NewSectionReader(l.f, int64(len(magicBytes)), end-int64(len(magicBytes)))

	for {
		rec, err := types.Read(r)
		if err != nil {
			return fmt.Errorf("types.Read: %w", err)
		}
		if rec == nil {
			return nil
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Seal makes the segment read-only. Appends fail afterwards; reads are
// unaffected.
func (l *Log) Seal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sealed = true
}

// Sealed returns whether the segment has been sealed.
func (l *Log) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// Reader returns a reader over the whole committed segment, magic included,
// for archival upload. The size is the current watermark.
func (l *Log) Reader() (io.Reader, int64) {
	end := l.EndOffset()
	return io.NewSectionReader(l.f, 0, end), end
}

// Close closes the backing file. In-flight read-sets must be drained first.
func (l *Log) Close() error {
	return l.f.Close()
}
