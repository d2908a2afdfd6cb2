package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Memory is an in-process document store. Commit is all-or-nothing.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Record

	// Commits counts successful Commit calls.
	Commits int
	// FailCollection makes every write touching it fail.
	FailCollection string
}

var _ Client = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{collections: map[string]map[string]Record{}}
}

func (m *Memory) GetCollection(ctx context.Context, name string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.collections[name]
	if !ok {
		return nil, nil
	}
	out := make([]Record, 0, len(docs))
	for _, id := range sortedIDs(docs) {
		out = append(out, clone(docs[id]))
	}
	return out, nil
}

func (m *Memory) GetOne(ctx context.Context, name, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[name][id]
	if !ok {
		return nil, nil
	}
	return clone(doc), nil
}

func (m *Memory) QueryByField(ctx context.Context, name, field string, value interface{}) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[name]
	out := []Record{}
	for _, id := range sortedIDs(docs) {
		if v, ok := docs[id][field]; ok && equalValues(v, value) {
			out = append(out, clone(docs[id]))
		}
	}
	return out, nil
}

func (m *Memory) SetMerge(ctx context.Context, name, id string, fields map[string]interface{}) error {
	return m.Commit(ctx, []Op{SetOp(name, id, fields)})
}

func (m *Memory) Update(ctx context.Context, name, id string, fields map[string]interface{}) error {
	return m.Commit(ctx, []Op{UpdateOp(name, id, fields)})
}

func (m *Memory) Delete(ctx context.Context, name, id string) error {
	return m.Commit(ctx, []Op{DeleteOp(name, id)})
}

func (m *Memory) Commit(ctx context.Context, ops []Op) error {
	if len(ops) > MaxBatchSize {
		return fmt.Errorf("%w: %d ops", ErrBatchTooLarge, len(ops))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// validate everything before touching state
	for _, op := range ops {
		if m.FailCollection != "" && op.Collection == m.FailCollection {
			return fmt.Errorf("injected failure writing %s/%s", op.Collection, op.ID)
		}
		if op.Kind == OpUpdate {
			if _, ok := m.collections[op.Collection][op.ID]; !ok {
				return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
		}
	}

	for _, op := range ops {
		docs, ok := m.collections[op.Collection]
		if !ok {
			docs = map[string]Record{}
			m.collections[op.Collection] = docs
		}
		switch op.Kind {
		case OpDelete:
			delete(docs, op.ID)
		default:
			doc, ok := docs[op.ID]
			if !ok {
				doc = Record{}
			}
			for k, v := range op.Fields {
				doc[k] = v
			}
			doc["id"] = op.ID
			docs[op.ID] = doc
		}
	}
	m.Commits++
	return nil
}

func sortedIDs(docs map[string]Record) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func clone(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// equalValues compares loosely so an int query matches an int64 field.
func equalValues(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
