package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps documents in process. It backs tests and the
// STORE_DRIVER=memory development mode.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any

	subMu sync.Mutex
	subs  map[*Subscription]Query
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[*Subscription]Query),
	}
}

func (m *MemoryStore) GetDoc(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(collection, id)
}

// GetDocForUpdate outside a transaction has nothing to hold.
func (m *MemoryStore) GetDocForUpdate(ctx context.Context, collection, id string) (Document, error) {
	return m.GetDoc(ctx, collection, id)
}

func (m *MemoryStore) SetDoc(ctx context.Context, collection, id string, data map[string]any) error {
	return m.write(collection, func(tx *memTx) error { return tx.SetDoc(ctx, collection, id, data) })
}

func (m *MemoryStore) UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) error {
	return m.write(collection, func(tx *memTx) error { return tx.UpdateDoc(ctx, collection, id, patch) })
}

func (m *MemoryStore) CreateDoc(ctx context.Context, collection, id string, data map[string]any) error {
	return m.write(collection, func(tx *memTx) error { return tx.CreateDoc(ctx, collection, id, data) })
}

func (m *MemoryStore) DeleteDoc(ctx context.Context, collection, id string) error {
	return m.write(collection, func(tx *memTx) error { return tx.DeleteDoc(ctx, collection, id) })
}

func (m *MemoryStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	return m.write(collection, func(tx *memTx) error { return tx.Increment(ctx, collection, id, field, delta) })
}

func (m *MemoryStore) ListCollection(ctx context.Context, collection string) ([]Document, error) {
	return m.Query(ctx, Query{Collection: collection})
}

func (m *MemoryStore) QueryRange(ctx context.Context, collection, field, lo, hi string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Document, 0)
	for _, d := range m.scan(collection) {
		v, ok := d.Data[field].(string)
		if !ok || v < lo || v > hi {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compareField(out[i].Data, out[j].Data, field) < 0
	})
	return out, nil
}

func (m *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.query(q), nil
}

func (m *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{store: m, touched: make(map[string]bool)}

	m.mu.Lock()
	err := fn(tx)
	if err != nil {
		tx.rollback()
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for coll := range tx.touched {
		m.notify(coll)
	}
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	sub := newSubscription(ctx)

	m.subMu.Lock()
	m.subs[sub] = q
	m.subMu.Unlock()

	m.mu.RLock()
	sub.publish(m.query(q))
	m.mu.RUnlock()

	go func() {
		<-sub.ctx.Done()
		m.subMu.Lock()
		delete(m.subs, sub)
		m.subMu.Unlock()
		sub.finish(nil)
	}()
	return sub, nil
}

func (m *MemoryStore) write(collection string, fn func(tx *memTx) error) error {
	tx := &memTx{store: m, touched: make(map[string]bool)}

	m.mu.Lock()
	err := fn(tx)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.notify(collection)
	return nil
}

func (m *MemoryStore) notify(collection string) {
	m.subMu.Lock()
	targets := make(map[*Subscription]Query)
	for sub, q := range m.subs {
		if q.Collection == collection {
			targets[sub] = q
		}
	}
	m.subMu.Unlock()

	if len(targets) == 0 {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for sub, q := range targets {
		sub.publish(m.query(q))
	}
}

// get, scan and query expect the caller to hold mu.
func (m *MemoryStore) get(collection, id string) (Document, error) {
	body, ok := m.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	data, err := normalize(body)
	if err != nil {
		return Document{}, err
	}
	return Document{Collection: collection, ID: id, Data: data}, nil
}

func (m *MemoryStore) scan(collection string) []Document {
	docs := m.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		d, err := m.get(collection, id)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (m *MemoryStore) query(q Query) []Document {
	out := make([]Document, 0)
	for _, d := range m.scan(q.Collection) {
		if matches(d.Data, q.Where) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareField(out[i].Data, out[j].Data, q.OrderBy)
			if c == 0 {
				c = strings.Compare(out[i].ID, out[j].ID)
			}
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

type undoEntry struct {
	collection string
	id         string
	prev       map[string]any
	existed    bool
}

// memTx runs with the store's write lock held.
type memTx struct {
	store   *MemoryStore
	undo    []undoEntry
	touched map[string]bool
}

func (tx *memTx) GetDoc(ctx context.Context, collection, id string) (Document, error) {
	return tx.store.get(collection, id)
}

func (tx *memTx) GetDocForUpdate(ctx context.Context, collection, id string) (Document, error) {
	return tx.store.get(collection, id)
}

func (tx *memTx) SetDoc(ctx context.Context, collection, id string, data map[string]any) error {
	body, err := normalize(data)
	if err != nil {
		return err
	}
	tx.put(collection, id, body)
	return nil
}

func (tx *memTx) UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) error {
	current, ok := tx.store.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	body, err := applyPatch(current, patch)
	if err != nil {
		return err
	}
	tx.put(collection, id, body)
	return nil
}

func (tx *memTx) CreateDoc(ctx context.Context, collection, id string, data map[string]any) error {
	if _, ok := tx.store.collections[collection][id]; ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return tx.SetDoc(ctx, collection, id, data)
}

func (tx *memTx) DeleteDoc(ctx context.Context, collection, id string) error {
	prev, ok := tx.store.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	tx.undo = append(tx.undo, undoEntry{collection: collection, id: id, prev: prev, existed: true})
	tx.touched[collection] = true
	delete(tx.store.collections[collection], id)
	return nil
}

func (tx *memTx) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	current, ok := tx.store.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	n, _ := current[field].(float64)
	body, err := applyPatch(current, map[string]any{field: n + float64(delta)})
	if err != nil {
		return err
	}
	tx.put(collection, id, body)
	return nil
}

func (tx *memTx) put(collection, id string, body map[string]any) {
	docs, ok := tx.store.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		tx.store.collections[collection] = docs
	}
	prev, existed := docs[id]
	tx.undo = append(tx.undo, undoEntry{collection: collection, id: id, prev: prev, existed: existed})
	tx.touched[collection] = true
	docs[id] = body
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		u := tx.undo[i]
		if u.existed {
			tx.store.collections[u.collection][u.id] = u.prev
		} else {
			delete(tx.store.collections[u.collection], u.id)
		}
	}
	tx.undo = nil
	tx.touched = map[string]bool{}
}
