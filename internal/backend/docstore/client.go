// Package docstore adapts a document database with single-field equality
// queries and bounded atomic batches.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("document store permission denied")
	ErrNotFound         = errors.New("document not found")
	ErrBatchTooLarge    = errors.New("batch exceeds maximum size")
)

const (
	// MaxBatchSize is the hard cap of mutations in one atomic batch.
	MaxBatchSize = 500
	// ChunkSize is the sub-batch size BatchCommit uses.
	ChunkSize = 400
)

// Record is one document's fields. The document id is carried under "id".
type Record map[string]interface{}

// ID returns the record's document id.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

type OpKind int

const (
	OpSet OpKind = iota // merge-set
	OpUpdate
	OpDelete
)

// Op is one mutation inside a batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     map[string]interface{}
}

func SetOp(collection, id string, fields map[string]interface{}) Op {
	return Op{Kind: OpSet, Collection: collection, ID: id, Fields: fields}
}

func UpdateOp(collection, id string, fields map[string]interface{}) Op {
	return Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}
}

func DeleteOp(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

// Client is the collection/document contract both implementations satisfy.
// GetOne returns nil, nil for a missing document.
type Client interface {
	GetCollection(ctx context.Context, name string) ([]Record, error)
	GetOne(ctx context.Context, name, id string) (Record, error)
	QueryByField(ctx context.Context, name, field string, value interface{}) ([]Record, error)
	SetMerge(ctx context.Context, name, id string, fields map[string]interface{}) error
	Update(ctx context.Context, name, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, name, id string) error
	// Commit applies ops atomically. len(ops) must not exceed MaxBatchSize.
	Commit(ctx context.Context, ops []Op) error
}

// BatchCommit commits ops in sequential sub-batches of ChunkSize. Each chunk
// is atomic on its own; a failure stops the sequence and leaves earlier
// chunks committed. Returns the number of chunks committed.
func BatchCommit(ctx context.Context, c Client, ops []Op) (int, error) {
	committed := 0
	for start := 0; start < len(ops); start += ChunkSize {
		end := start + ChunkSize
		if end > len(ops) {
			end = len(ops)
		}
		if err := c.Commit(ctx, ops[start:end]); err != nil {
			return committed, fmt.Errorf("batch chunk %d (ops %d-%d): %w", committed+1, start, end-1, err)
		}
		committed++
	}
	return committed, nil
}
