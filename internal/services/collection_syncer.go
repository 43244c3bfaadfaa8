package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/remote"

	"go.uber.org/zap"
)

// Entity is anything the sync engine can merge by id and timestamp.
type Entity interface {
	EntityID() string
	EntityUpdatedAt() time.Time
}

// CollectionSyncer keeps one collection converged between the durable
// local store and the remote store: snapshot-first delivery, a one-time
// delta fetch above the local watermark, then a live subscription.
//
// Merging is last-writer-wins on the record's own updatedAt. Client
// clocks are trusted verbatim; skewed clocks can make a stale write
// win. Known weakness, kept as-is.
type CollectionSyncer[T Entity] struct {
	name      string
	loadLocal func() ([]T, error)
	saveLocal func([]T) error
	store     remote.Store
	brk       *breaker.Breaker
	topic     *pubsub.Topic[[]T]
	log       *zap.Logger

	debounce  time.Duration
	afterFunc func(d time.Duration, fn func()) *time.Timer
	now       func() time.Time

	mu          sync.Mutex
	items       map[string]T
	timer       *time.Timer
	unsubRemote func()
}

func NewCollectionSyncer[T Entity](
	name string,
	loadLocal func() ([]T, error),
	saveLocal func([]T) error,
	store remote.Store,
	brk *breaker.Breaker,
	topic *pubsub.Topic[[]T],
	debounce time.Duration,
	log *zap.Logger,
) *CollectionSyncer[T] {
	return &CollectionSyncer[T]{
		name:      name,
		loadLocal: loadLocal,
		saveLocal: saveLocal,
		store:     store,
		brk:       brk,
		topic:     topic,
		log:       log.With(zap.String("collection", name)),
		debounce:  debounce,
		afterFunc: time.AfterFunc,
		now:       time.Now,
		items:     make(map[string]T),
	}
}

// Start loads and publishes the local snapshot, then, when the remote
// is reachable, pulls the delta above the local watermark and opens the
// live subscription. Purely local operation otherwise; local writes
// still reach subscribers through ApplyLocal.
func (s *CollectionSyncer[T]) Start(ctx context.Context) error {
	local, err := s.loadLocal()
	if err != nil {
		return err
	}

	s.mu.Lock()
	watermark := int64(0)
	for _, item := range local {
		s.items[item.EntityID()] = item
		if ts := item.EntityUpdatedAt().UnixMilli(); ts > watermark {
			watermark = ts
		}
	}
	s.mu.Unlock()
	s.publish()

	if !s.brk.Available() {
		s.log.Info("remote unavailable, serving local snapshot only")
		return nil
	}

	syncStart := s.now().UnixMilli()
	err = s.brk.Guard(ctx, s.name+".delta", func(ctx context.Context) error {
		docs, err := s.store.ChangedSince(ctx, s.name, watermark, 0)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil // empty delta is a no-op
		}
		changed := s.merge(docs)
		s.log.Info("delta sync applied", zap.Int("fetched", len(docs)), zap.Int("changed", changed))
		if changed > 0 {
			if err := s.persist(); err != nil {
				s.log.Error("failed to persist delta", zap.Error(err))
			}
			s.publish()
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Only changes after the delta fetch started are streamed, so the
	// historical window just pulled is not re-processed.
	return s.brk.Guard(ctx, s.name+".subscribe", func(ctx context.Context) error {
		unsub, err := s.store.Subscribe(ctx, s.name, syncStart, s.onRemoteDoc)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.unsubRemote = unsub
		s.mu.Unlock()
		return nil
	})
}

// merge applies docs with strict-greater timestamp wins. Re-applying
// the same delta is a no-op, and arrival order does not matter. A
// malformed document is dropped with a warning; one corrupt record must
// not block the rest of the delta.
func (s *CollectionSyncer[T]) merge(docs []remote.Doc) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			s.log.Warn("dropping malformed remote document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		existing, ok := s.items[doc.ID]
		if ok && doc.UpdatedAt <= existing.EntityUpdatedAt().UnixMilli() {
			continue
		}
		s.items[doc.ID] = item
		changed++
	}
	return changed
}

func (s *CollectionSyncer[T]) onRemoteDoc(doc remote.Doc) {
	if s.merge([]remote.Doc{doc}) == 0 {
		return
	}
	s.publish()
	s.markDirty()
}

// markDirty schedules a debounced persist; bursts of live updates
// coalesce into one local write.
func (s *CollectionSyncer[T]) markDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return
	}
	s.timer = s.afterFunc(s.debounce, s.Flush)
}

// Flush writes the in-memory snapshot to the durable local store.
func (s *CollectionSyncer[T]) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		s.log.Error("failed to persist snapshot", zap.Error(err))
	}
}

func (s *CollectionSyncer[T]) persist() error {
	return s.saveLocal(s.Snapshot())
}

// Snapshot returns the current items ordered by id.
func (s *CollectionSyncer[T]) Snapshot() []T {
	s.mu.Lock()
	items := make([]T, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].EntityID() < items[j].EntityID() })
	return items
}

// Subscribe delivers the current snapshot synchronously, then streams
// every subsequent change until the returned func is called.
func (s *CollectionSyncer[T]) Subscribe(fn func([]T)) func() {
	fn(s.Snapshot())
	return s.topic.Subscribe(fn)
}

// ApplyLocal folds same-process writes (already persisted by their
// repository) into the cache and notifies subscribers. This is the
// local-only write path that keeps subscribers fed while the circuit
// is open.
func (s *CollectionSyncer[T]) ApplyLocal(items ...T) {
	s.mu.Lock()
	for _, item := range items {
		s.items[item.EntityID()] = item
	}
	s.mu.Unlock()
	s.publish()
}

// RemoveLocal drops entries deleted by the maintenance tools.
func (s *CollectionSyncer[T]) RemoveLocal(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.items, id)
	}
	s.mu.Unlock()
	s.publish()
}

func (s *CollectionSyncer[T]) publish() {
	s.topic.Publish(s.Snapshot())
}

// Stop detaches the live subscription and flushes any pending persist.
func (s *CollectionSyncer[T]) Stop() {
	s.mu.Lock()
	unsub := s.unsubRemote
	s.unsubRemote = nil
	pending := s.timer != nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if pending {
		s.Flush()
	}
}

// DocOf encodes an entity as its remote document.
func DocOf[T Entity](item T) remote.Doc {
	data, _ := json.Marshal(item)
	return remote.Doc{
		ID:        item.EntityID(),
		UpdatedAt: item.EntityUpdatedAt().UnixMilli(),
		Data:      data,
	}
}

// DocsOf encodes a batch.
func DocsOf[T Entity](items []T) []remote.Doc {
	docs := make([]remote.Doc, len(items))
	for i, item := range items {
		docs[i] = DocOf(item)
	}
	return docs
}
