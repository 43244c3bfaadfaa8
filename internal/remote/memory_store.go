package remote

import (
	"context"
	"sort"
	"sync"
)

// memoryStore implements Store entirely in process. It backs dev/
// offline mode (no REDIS_URL configured) and the engine tests.
type memoryStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]Doc // collection -> id -> doc
	nextSub int
	subs    map[string]map[int]*memorySub // collection -> sub id -> sub
}

type memorySub struct {
	after   int64
	handler func(Doc)
}

func NewMemoryStore() Store {
	return &memoryStore{
		docs: make(map[string]map[string]Doc),
		subs: make(map[string]map[int]*memorySub),
	}
}

func (s *memoryStore) collection(name string) map[string]Doc {
	c, ok := s.docs[name]
	if !ok {
		c = make(map[string]Doc)
		s.docs[name] = c
	}
	return c
}

func (s *memoryStore) Get(ctx context.Context, collection, id string) (*Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collection(collection)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *memoryStore) Put(ctx context.Context, collection string, doc Doc) error {
	s.mu.Lock()
	s.collection(collection)[doc.ID] = doc
	handlers := s.listeners(collection, doc)
	s.mu.Unlock()

	for _, h := range handlers {
		h(doc)
	}
	return nil
}

// listeners must be called with the lock held; delivery happens after
// release.
func (s *memoryStore) listeners(collection string, doc Doc) []func(Doc) {
	var out []func(Doc)
	for _, sub := range s.subs[collection] {
		if doc.UpdatedAt > sub.after {
			out = append(out, sub.handler)
		}
	}
	return out
}

func (s *memoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collection(collection), id)
	return nil
}

func (s *memoryStore) ChangedSince(ctx context.Context, collection string, watermark int64, limit int64) ([]Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []Doc
	for _, doc := range s.collection(collection) {
		if doc.UpdatedAt > watermark {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt < docs[j].UpdatedAt })
	if limit > 0 && int64(len(docs)) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *memoryStore) BatchPut(ctx context.Context, collection string, docs []Doc) error {
	for _, doc := range docs {
		if err := s.Put(ctx, collection, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(collection)
	for _, id := range ids {
		delete(c, id)
	}
	return nil
}

type memoryTx struct {
	store *memoryStore
	puts  []stagedPut
}

func (t *memoryTx) Get(ref Ref) (*Doc, error) {
	doc, ok := t.store.collection(ref.Collection)[ref.ID]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (t *memoryTx) Put(collection string, doc Doc) {
	t.puts = append(t.puts, stagedPut{collection: collection, doc: doc})
}

func (s *memoryStore) RunTransaction(ctx context.Context, refs []Ref, fn func(tx Tx) error) error {
	s.mu.Lock()
	t := &memoryTx{store: s}
	if err := fn(t); err != nil {
		s.mu.Unlock()
		return err
	}

	type delivery struct {
		doc      Doc
		handlers []func(Doc)
	}
	var deliveries []delivery
	for _, put := range t.puts {
		s.collection(put.collection)[put.doc.ID] = put.doc
		deliveries = append(deliveries, delivery{doc: put.doc, handlers: s.listeners(put.collection, put.doc)})
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		for _, h := range d.handlers {
			h(d.doc)
		}
	}
	return nil
}

func (s *memoryStore) Subscribe(ctx context.Context, collection string, after int64, handler func(Doc)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]*memorySub)
	}
	s.subs[collection][id] = &memorySub{after: after, handler: handler}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[collection], id)
	}, nil
}

func (s *memoryStore) Close() error {
	return nil
}
