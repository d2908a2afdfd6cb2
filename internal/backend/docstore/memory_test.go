package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBatchCommitChunks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ops := make([]Op, 0, 1001)
	for i := 0; i < 1001; i++ {
		ops = append(ops, SetOp("Devices", fmt.Sprintf("d%04d", i), map[string]interface{}{"quantity": 1}))
	}
	chunks, err := BatchCommit(ctx, m, ops)
	if err != nil {
		t.Fatalf("BatchCommit failed: %v", err)
	}
	if chunks != 3 {
		t.Errorf("Expected 3 chunks for 1001 ops, got %d", chunks)
	}
	if m.Commits != 3 {
		t.Errorf("Expected 3 commits, got %d", m.Commits)
	}
	docs, _ := m.GetCollection(ctx, "Devices")
	if len(docs) != 1001 {
		t.Errorf("Expected 1001 documents, got %d", len(docs))
	}
}

func TestCommitRejectsOversizedBatch(t *testing.T) {
	m := NewMemory()
	ops := make([]Op, MaxBatchSize+1)
	for i := range ops {
		ops[i] = DeleteOp("Devices", fmt.Sprint(i))
	}
	if err := m.Commit(context.Background(), ops); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("Expected ErrBatchTooLarge, got %v", err)
	}
}

func TestCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.SetMerge(ctx, "Devices", "D1", map[string]interface{}{"status": "In Use"}); err != nil {
		t.Fatalf("SetMerge failed: %v", err)
	}

	err := m.Commit(ctx, []Op{
		DeleteOp("Devices", "D1"),
		UpdateOp("Devices", "missing", map[string]interface{}{"status": "Available"}),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	doc, _ := m.GetOne(ctx, "Devices", "D1")
	if doc == nil {
		t.Error("Expected D1 to survive a failed batch")
	}
}

func TestMemoryMissingVersusEmptyCollection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	docs, err := m.GetCollection(ctx, "Locations")
	if err != nil || docs != nil {
		t.Errorf("Expected nil for a never-written collection, got %v (%v)", docs, err)
	}

	_ = m.SetMerge(ctx, "Locations", "Z1", map[string]interface{}{"name": "Old"})
	_ = m.Delete(ctx, "Locations", "Z1")
	docs, err = m.GetCollection(ctx, "Locations")
	if err != nil || docs == nil || len(docs) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v (%v)", docs, err)
	}

	one, err := m.GetOne(ctx, "Locations", "Z1")
	if err != nil || one != nil {
		t.Errorf("Expected nil record for deleted doc, got %v (%v)", one, err)
	}
}

func TestQueryByFieldAndMerge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.SetMerge(ctx, "DeviceInstances", "i1", map[string]interface{}{"deviceId": "D1", "quantity": 2})
	_ = m.SetMerge(ctx, "DeviceInstances", "i2", map[string]interface{}{"deviceId": "D2", "quantity": 1})
	_ = m.SetMerge(ctx, "DeviceInstances", "i3", map[string]interface{}{"deviceId": "D1", "quantity": 4})

	got, _ := m.QueryByField(ctx, "DeviceInstances", "deviceId", "D1")
	if len(got) != 2 {
		t.Fatalf("Expected 2 instances for D1, got %d", len(got))
	}

	_ = m.SetMerge(ctx, "DeviceInstances", "i1", map[string]interface{}{"notes": "x"})
	one, _ := m.GetOne(ctx, "DeviceInstances", "i1")
	if one["deviceId"] != "D1" || one["notes"] != "x" || one.ID() != "i1" {
		t.Errorf("Expected merge to keep existing fields, got %v", one)
	}
}
