// Package remote defines the contract the engine requires of the
// shared authoritative store, and provides the Redis-backed production
// implementation plus an in-memory one for offline/dev mode and tests.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Doc is one document as the remote store sees it: opaque entity JSON
// plus the modification timestamp (unix milliseconds) that drives
// delta queries and last-writer-wins merging.
type Doc struct {
	ID        string          `json:"id"`
	UpdatedAt int64           `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Ref names a document for transactional reads.
type Ref struct {
	Collection string
	ID         string
}

// Tx is the view inside RunTransaction. Reads see committed state;
// Put stages writes that apply atomically on commit, or not at all.
type Tx interface {
	Get(ref Ref) (*Doc, error) // nil, nil when the document does not exist
	Put(collection string, doc Doc)
}

type Store interface {
	Get(ctx context.Context, collection, id string) (*Doc, error)
	Put(ctx context.Context, collection string, doc Doc) error
	Delete(ctx context.Context, collection, id string) error

	// ChangedSince returns documents with UpdatedAt strictly greater
	// than watermark, oldest first, at most limit (0 = no limit).
	ChangedSince(ctx context.Context, collection string, watermark int64, limit int64) ([]Doc, error)

	// BatchPut and BatchDelete chunk internally (roughly 300 ops per
	// chunk with a short pause between chunks) to stay under the remote
	// batch ceiling.
	BatchPut(ctx context.Context, collection string, docs []Doc) error
	BatchDelete(ctx context.Context, collection string, ids []string) error

	// RunTransaction executes fn with reads pinned to the given refs;
	// staged writes commit atomically. Concurrent modification of a
	// read document aborts and retries the whole fn.
	RunTransaction(ctx context.Context, refs []Ref, fn func(tx Tx) error) error

	// Subscribe streams documents written after the given timestamp.
	// The returned func detaches the listener.
	Subscribe(ctx context.Context, collection string, after int64, handler func(Doc)) (func(), error)

	Close() error
}

// ErrNotFound reports a missing document on single-document reads.
var ErrNotFound = errors.New("remote: document not found")

// quotaSignatures are the substrings that mark a daily-quota /
// resource-exhaustion failure. Matching is case-insensitive.
var quotaSignatures = []string{
	"quota",
	"resource-exhausted",
	"resource exhausted",
	"usage limit",
	"max requests limit exceeded",
	"oom command not allowed",
}

// IsQuotaErr reports whether err carries a quota-exhaustion signature.
func IsQuotaErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
