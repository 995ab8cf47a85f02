package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/adammck/blobstream/pkg/archive"
	"github.com/adammck/blobstream/pkg/content"
	mongostore "github.com/adammck/blobstream/pkg/impl/indexstore/mongo"
	"github.com/adammck/blobstream/pkg/seglog"
	"github.com/adammck/blobstream/pkg/store"
	"github.com/adammck/blobstream/pkg/types"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const readChunkSize = 64 * 1024

func main() {
	ctx := context.Background()

	if len(os.Args) < 3 {
		fmt.Println("Usage: blobstream <command> [arguments]")
		fmt.Println("Commands:")
		fmt.Println("  put <dir> <key>        store stdin under key (new segment dir)")
		fmt.Println("  get <dir> <key>...     stream framed records to stdout")
		fmt.Println("  dump <segment-file>    print segment records as JSON")
		fmt.Println("  upload <segment-file>  archive a segment to S3")
		os.Exit(1)
	}

	cmd := os.Args[1]
	flag.Parse()

	switch cmd {
	case "put":
		if len(os.Args) < 4 {
			log.Fatalf("Usage: blobstream put <dir> <key>")
		}
		cmdPut(ctx, os.Args[2], os.Args[3])
	case "get":
		if len(os.Args) < 4 {
			log.Fatalf("Usage: blobstream get <dir> <key>...")
		}
		cmdGet(ctx, os.Args[2], os.Args[3:])
	case "dump":
		cmdDump(openLog(os.Args[2]))
	case "upload":
		cmdUpload(ctx, openLog(os.Args[2]))
	default:
		log.Fatalf("Unknown command: %s", cmd)
	}
}

func openLog(path string) *seglog.Log {
	l, err := seglog.Open(path, clockwork.NewRealClock())
	if err != nil {
		log.Fatalf("seglog.Open: %v", err)
	}
	return l
}

func indexStore(ctx context.Context) *mongostore.IndexStore {
	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		log.Fatalf("Required: MONGO_URL")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		log.Fatalf("mongo.Connect: %v", err)
	}

	return mongostore.New(client.Database("blobstream"))
}

// cmdPut streams stdin into a fresh segment under dir, then seals it so the
// index lands in mongo and gets can find the key later.
func cmdPut(ctx context.Context, dir, key string) {
	s, err := store.New(dir, indexStore(ctx), clockwork.NewRealClock())
	if err != nil {
		log.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	ch := content.NewChannel(api.MethodPut, content.SizeUnknown)

	go func() {
		buf := make([]byte, readChunkSize)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if aerr := ch.AddContent(content.BorrowChunk(buf[:n], false)); aerr != nil {
					log.Fatalf("AddContent: %v", aerr)
				}
			}
			if err == io.EOF {
				if aerr := ch.AddContent(content.NewChunk(nil, true)); aerr != nil {
					log.Fatalf("AddContent: %v", aerr)
				}
				return
			}
			if err != nil {
				log.Fatalf("read stdin: %v", err)
			}
		}
	}()

	n, err := s.Put(ctx, key, types.NoExpiry, ch)
	if err != nil {
		log.Fatalf("store.Put: %v", err)
	}

	if err := s.Seal(ctx); err != nil {
		log.Fatalf("store.Seal: %v", err)
	}

	fmt.Printf("OK %s (%d bytes)\n", key, n)
}

// cmdGet serves the framed records for the given keys to stdout, in segment
// offset order.
func cmdGet(ctx context.Context, dir string, keys []string) {
	s, err := store.Open(ctx, dir, indexStore(ctx), clockwork.NewRealClock())
	if err != nil {
		log.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	rs, err := s.Get(keys...)
	if err != nil {
		log.Fatalf("store.Get: %v", err)
	}

	n, err := s.ServeTo(ctx, rs, os.Stdout)
	if err != nil {
		log.Fatalf("ServeTo: %v", err)
	}

	fmt.Fprintf(os.Stderr, "OK %d records (%d bytes)\n", rs.Count(), n)
}

func cmdDump(l *seglog.Log) {
	defer l.Close()
	enc := json.NewEncoder(os.Stdout)

	err := l.Dump(func(rec *types.Record) error {
		return enc.Encode(map[string]interface{}{
			"key":       rec.Key,
			"ts":        rec.Timestamp,
			"exp":       rec.ExpiresAt,
			"size":      len(rec.Body),
			"tombstone": rec.Tombstone,
		})
	})
	if err != nil {
		log.Fatalf("Dump: %v", err)
	}
}

func cmdUpload(ctx context.Context, l *seglog.Log) {
	defer l.Close()

	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		log.Fatalf("Required: S3_BUCKET")
	}

	arc := archive.New(bucket)

	err := arc.Ping(ctx)
	if err != nil {
		log.Fatalf("archive.Ping: %v", err)
	}

	r, size := l.Reader()
	err = arc.Put(ctx, l.Name(), r, size)
	if err != nil {
		log.Fatalf("archive.Put: %v", err)
	}

	fmt.Printf("OK %s (%d bytes)\n", l.Name(), size)
}
