package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const txRetries = 5

// redisStore keeps, per collection:
//   - doc:{col}:{id}  the marshaled Doc
//   - idx:{col}       zset of id scored by UpdatedAt, for delta queries
//   - ch:{col}        pub/sub channel carrying every written Doc
type redisStore struct {
	rdb        *redis.Client
	chunkSize  int
	chunkDelay time.Duration
}

// NewRedisStore connects to the shared remote store. chunkSize and
// chunkDelay bound batch writes (see Store.BatchPut).
func NewRedisStore(redisURL string, chunkSize int, chunkDelay time.Duration) (Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if chunkSize <= 0 {
		chunkSize = 300
	}
	return &redisStore{rdb: rdb, chunkSize: chunkSize, chunkDelay: chunkDelay}, nil
}

func docKey(collection, id string) string { return "doc:" + collection + ":" + id }
func idxKey(collection string) string     { return "idx:" + collection }
func chKey(collection string) string      { return "ch:" + collection }

func (s *redisStore) Get(ctx context.Context, collection, id string) (*Doc, error) {
	val, err := s.rdb.Get(ctx, docKey(collection, id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}

	var doc Doc
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

func (s *redisStore) Put(ctx context.Context, collection string, doc Doc) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		putDoc(ctx, p, collection, doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", collection, doc.ID, err)
	}
	return nil
}

// putDoc stages the three writes every document update consists of.
func putDoc(ctx context.Context, p redis.Pipeliner, collection string, doc Doc) {
	payload, _ := json.Marshal(doc)
	p.Set(ctx, docKey(collection, doc.ID), payload, 0)
	p.ZAdd(ctx, idxKey(collection), &redis.Z{Score: float64(doc.UpdatedAt), Member: doc.ID})
	p.Publish(ctx, chKey(collection), payload)
}

func (s *redisStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, docKey(collection, id))
		p.ZRem(ctx, idxKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *redisStore) ChangedSince(ctx context.Context, collection string, watermark int64, limit int64) ([]Doc, error) {
	by := &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(watermark, 10), // strictly greater
		Max: "+inf",
	}
	if limit > 0 {
		by.Count = limit
	}
	ids, err := s.rdb.ZRangeByScore(ctx, idxKey(collection), by).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s since %d: %w", collection, watermark, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(collection, id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s delta: %w", collection, err)
	}

	docs := make([]Doc, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // deleted between ZRANGEBYSCORE and MGET
		}
		var doc Doc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *redisStore) BatchPut(ctx context.Context, collection string, docs []Doc) error {
	for start := 0; start < len(docs); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(docs) {
			end = len(docs)
		}
		_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, doc := range docs[start:end] {
				putDoc(ctx, p, collection, doc)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to batch put %s: %w", collection, err)
		}
		if end < len(docs) {
			time.Sleep(s.chunkDelay)
		}
	}
	return nil
}

func (s *redisStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, id := range ids[start:end] {
				p.Del(ctx, docKey(collection, id))
				p.ZRem(ctx, idxKey(collection), id)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to batch delete %s: %w", collection, err)
		}
		if end < len(ids) {
			time.Sleep(s.chunkDelay)
		}
	}
	return nil
}

// redisTx buffers staged writes while reads go through the watched
// connection.
type redisTx struct {
	ctx  context.Context
	tx   *redis.Tx
	puts []stagedPut
}

type stagedPut struct {
	collection string
	doc        Doc
}

func (t *redisTx) Get(ref Ref) (*Doc, error) {
	val, err := t.tx.Get(t.ctx, docKey(ref.Collection, ref.ID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (t *redisTx) Put(collection string, doc Doc) {
	t.puts = append(t.puts, stagedPut{collection: collection, doc: doc})
}

func (s *redisStore) RunTransaction(ctx context.Context, refs []Ref, fn func(tx Tx) error) error {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = docKey(ref.Collection, ref.ID)
	}

	txf := func(rtx *redis.Tx) error {
		t := &redisTx{ctx: ctx, tx: rtx}
		if err := fn(t); err != nil {
			return err
		}
		_, err := rtx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, put := range t.puts {
				putDoc(ctx, p, put.collection, put.doc)
			}
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < txRetries; i++ {
		err = s.rdb.Watch(ctx, txf, keys...)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (s *redisStore) Subscribe(ctx context.Context, collection string, after int64, handler func(Doc)) (func(), error) {
	ps := s.rdb.Subscribe(ctx, chKey(collection))
	// Force the subscription to be established before returning so no
	// write between now and the first poll is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	go func() {
		for msg := range ps.Channel() {
			var doc Doc
			if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
				continue
			}
			if doc.UpdatedAt > after {
				handler(doc)
			}
		}
	}()

	return func() { ps.Close() }, nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
