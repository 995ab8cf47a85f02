package types

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// NoExpiry marks a record which never expires.
const NoExpiry int64 = -1

type Record struct {
	Key       string    `bson:"key"`
	Timestamp time.Time `bson:"ts"`
	ExpiresAt int64     `bson:"exp"`
	Body      []byte    `bson:"body,omitempty"`
	Tombstone bool      `bson:"tombstone"`
}

func (r *Record) Write(out io.Writer) (int, error) {
	b, err := bson.Marshal(r)
	if err != nil {
		return 0, err
	}

	return out.Write(b)
}

// Payload is a record marshaled once, ready to be framed for the wire.
type Payload struct {
	buf []byte
}

// Payload marshals the record and returns it as a wire payload. The record is
// serialized exactly once, here; a marshal failure surfaces from this call
// rather than as a size shortfall during framing.
func (r *Record) Payload() (*Payload, error) {
	b, err := bson.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("bson.Marshal: %w", err)
	}
	return &Payload{buf: b}, nil
}

func (p *Payload) SizeInBytes() int64 {
	return int64(len(p.buf))
}

func (p *Payload) Serialize(w io.Writer) error {
	_, err := w.Write(p.buf)
	return err
}

func Read(r io.Reader) (*Record, error) {
	b, err := readOne(r)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	rec := &Record{}
	if err := bson.Unmarshal(b, rec); err != nil {
		return nil, err
	}

	// If it's a tombstone record, ensure Body is nil
	if rec.Tombstone && len(rec.Body) == 0 {
		rec.Body = nil
	}

	return rec, nil
}

func readOne(r io.Reader) ([]byte, error) {
	// see: https://bsonspec.org/spec.html

	var sizeBytes [4]byte
	_, err := io.ReadFull(r, sizeBytes[:])
	if err != nil {
		// might be io.EOF; that's okay.
		return nil, err
	}

	size := int(binary.LittleEndian.Uint32(sizeBytes[:]))
	if size < 5 {
		return nil, fmt.Errorf("invalid BSON document length: want>=5, got=%d", size)
	}

	docBytes := make([]byte, size)
	copy(docBytes[0:4], sizeBytes[:])
	_, err = io.ReadFull(r, docBytes[4:])
	if err != nil {
		return nil, fmt.Errorf("ReadFull(doc): %w", err)
	}

	return docBytes, nil
}
