// This package contains only interfaces and shared types to be used by other
// packages. The implementations of these should be in pkg/impl/whatever. To
// avoid circular deps, this package should import nothing from pkg.
package api

import (
	"context"
	"io"
)

// NoExpiry marks an index entry or record which never expires.
const NoExpiry int64 = -1

type Index []IndexEntry

// IndexEntry locates one blob record inside a log segment. Offset and Size
// are the byte range of the record body, and ExpiresAt is a unix timestamp
// after which the blob is dead, or NoExpiry.
type IndexEntry struct {
	Key       string
	Offset    int64
	Size      int64
	ExpiresAt int64
}

type IndexStore interface {
	StoreIndex(ctx context.Context, segment string, entries Index) error
	GetIndex(ctx context.Context, segment string) (Index, error)
	DeleteIndex(ctx context.Context, segment string) error
}

// ArchiveStore moves sealed segments to and from long-term object storage.
type ArchiveStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// Method is the request verb which produced a content stream. Only Put
// carries a body; the rest may send an empty terminal chunk as an
// end-of-message marker.
type Method int

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPut
	MethodDelete
	MethodHead
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodHead:
		return "HEAD"
	default:
		return "UNKNOWN"
	}
}

// HasBody returns whether the method is expected to carry content.
func (m Method) HasBody() bool {
	return m == MethodPut
}
