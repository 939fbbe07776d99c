package store

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and by the memory backend.
// Writes take an exclusive lock, so mutations are serialized; reads work on
// copies and never observe a half-written record.
type Memory struct {
	mu   chan struct{} // exclusive access token; buffered size 1
	data *memData
}

type memData struct {
	seq         int64
	collections map[string]map[uuid.UUID]memRecord
}

type memRecord struct {
	seq int64
	doc map[string]any
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		mu:   make(chan struct{}, 1),
		data: &memData{collections: make(map[string]map[uuid.UUID]memRecord)},
	}
	m.mu <- struct{}{}
	return m
}

func (m *Memory) lock()   { <-m.mu }
func (m *Memory) unlock() { m.mu <- struct{}{} }

func (m *Memory) Insert(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock()
	defer m.unlock()
	return m.data.insert(collection, id, doc)
}

func (m *Memory) Get(ctx context.Context, collection string, id uuid.UUID) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lock()
	defer m.unlock()
	return m.data.get(collection, id)
}

func (m *Memory) Replace(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock()
	defer m.unlock()
	return m.data.replace(collection, id, doc)
}

func (m *Memory) Delete(ctx context.Context, collection string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock()
	defer m.unlock()
	return m.data.delete(collection, id)
}

func (m *Memory) List(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lock()
	defer m.unlock()
	return m.data.list(collection, q), nil
}

// Tx stages mutations on a copy and swaps it in only when fn succeeds and
// the context is still live, so a failed or cancelled transaction leaves no
// partial mutation behind.
func (m *Memory) Tx(ctx context.Context, fn func(tx Store) error) error {
	m.lock()
	defer m.unlock()
	staged := m.data.clone()
	if err := fn(&memTx{data: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data = staged
	return nil
}

// memTx is the transactional view handed to Tx callbacks. The outer lock is
// already held, so it operates on the staged data without locking.
type memTx struct {
	data *memData
}

func (t *memTx) Insert(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.data.insert(collection, id, doc)
}

func (t *memTx) Get(ctx context.Context, collection string, id uuid.UUID) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.data.get(collection, id)
}

func (t *memTx) Replace(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.data.replace(collection, id, doc)
}

func (t *memTx) Delete(ctx context.Context, collection string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.data.delete(collection, id)
}

func (t *memTx) List(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.data.list(collection, q), nil
}

func (t *memTx) Tx(_ context.Context, fn func(tx Store) error) error {
	// Already inside a transaction; flatten.
	return fn(t)
}

// ---------------- staged data operations ----------------

func (d *memData) insert(collection string, id uuid.UUID, doc map[string]any) error {
	coll := d.collections[collection]
	if coll == nil {
		coll = make(map[uuid.UUID]memRecord)
		d.collections[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return ErrDuplicateRecord
	}
	d.seq++
	coll[id] = memRecord{seq: d.seq, doc: cloneDoc(doc)}
	return nil
}

func (d *memData) get(collection string, id uuid.UUID) (map[string]any, error) {
	rec, ok := d.collections[collection][id]
	if !ok {
		return nil, ErrNoRecord
	}
	return cloneDoc(rec.doc), nil
}

func (d *memData) replace(collection string, id uuid.UUID, doc map[string]any) error {
	coll := d.collections[collection]
	rec, ok := coll[id]
	if !ok {
		return ErrNoRecord
	}
	coll[id] = memRecord{seq: rec.seq, doc: cloneDoc(doc)}
	return nil
}

func (d *memData) delete(collection string, id uuid.UUID) error {
	coll := d.collections[collection]
	if _, ok := coll[id]; !ok {
		return ErrNoRecord
	}
	delete(coll, id)
	return nil
}

func (d *memData) list(collection string, q Query) []map[string]any {
	recs := make([]memRecord, 0, len(d.collections[collection]))
	for _, rec := range d.collections[collection] {
		if matchAll(rec.doc, q.Filters) {
			recs = append(recs, rec)
		}
	}
	// Insertion order first; the sort key is then applied stably on top so
	// ties keep their original relative order.
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	if q.Sort != nil {
		field, desc := q.Sort.Field, q.Sort.Desc
		sort.SliceStable(recs, func(i, j int) bool {
			c := compareValues(recs[i].doc[field], recs[j].doc[field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneDoc(rec.doc))
	}
	return out
}

func (d *memData) clone() *memData {
	out := &memData{seq: d.seq, collections: make(map[string]map[uuid.UUID]memRecord, len(d.collections))}
	for name, coll := range d.collections {
		c := make(map[uuid.UUID]memRecord, len(coll))
		for id, rec := range coll {
			c[id] = memRecord{seq: rec.seq, doc: cloneDoc(rec.doc)}
		}
		out.collections[name] = c
	}
	return out
}

// ---------------- predicate evaluation ----------------

func matchAll(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !match(doc, f) {
			return false
		}
	}
	return true
}

func match(doc map[string]any, f Filter) bool {
	switch f.Op {
	case OpEq:
		return compareValues(doc[f.Field], f.Value) == 0
	case OpGte:
		return compareValues(doc[f.Field], f.Value) >= 0
	case OpLte:
		return compareValues(doc[f.Field], f.Value) <= 0
	case OpMatchAny:
		needle := strings.ToLower(asString(f.Value))
		if needle == "" {
			return true
		}
		for _, field := range f.Fields {
			if strings.Contains(strings.ToLower(asString(doc[field])), needle) {
				return true
			}
		}
		return false
	}
	return false
}

// compareValues orders JSON-shaped scalars: nil first, then numbers, then
// strings (case-folded), then bools.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := asString(a), asString(b)
	if c := strings.Compare(strings.ToLower(as), strings.ToLower(bs)); c != 0 {
		return c
	}
	return strings.Compare(as, bs)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		if f, ok := asFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return ""
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneDoc(nested)
			continue
		}
		out[k] = v
	}
	return out
}
