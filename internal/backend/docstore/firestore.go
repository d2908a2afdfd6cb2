package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements Client on a Cloud Firestore database.
type Firestore struct {
	client *firestore.Client
}

var _ Client = (*Firestore)(nil)

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// Close releases the underlying gRPC connection.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) GetCollection(ctx context.Context, name string) ([]Record, error) {
	return f.collect(f.client.Collection(name).Documents(ctx), "list "+name)
}

func (f *Firestore) GetOne(ctx context.Context, name, id string) (Record, error) {
	snap, err := f.client.Collection(name).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, classify(err, fmt.Sprintf("get %s/%s", name, id))
	}
	return toRecord(snap), nil
}

func (f *Firestore) QueryByField(ctx context.Context, name, field string, value interface{}) ([]Record, error) {
	iter := f.client.Collection(name).Where(field, "==", value).Documents(ctx)
	return f.collect(iter, fmt.Sprintf("query %s.%s", name, field))
}

func (f *Firestore) SetMerge(ctx context.Context, name, id string, fields map[string]interface{}) error {
	_, err := f.client.Collection(name).Doc(id).Set(ctx, withID(fields, id), firestore.MergeAll)
	return classify(err, fmt.Sprintf("set %s/%s", name, id))
}

func (f *Firestore) Update(ctx context.Context, name, id string, fields map[string]interface{}) error {
	_, err := f.client.Collection(name).Doc(id).Update(ctx, toUpdates(fields))
	return classify(err, fmt.Sprintf("update %s/%s", name, id))
}

func (f *Firestore) Delete(ctx context.Context, name, id string) error {
	_, err := f.client.Collection(name).Doc(id).Delete(ctx)
	return classify(err, fmt.Sprintf("delete %s/%s", name, id))
}

func (f *Firestore) Commit(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchSize {
		return fmt.Errorf("%w: %d ops", ErrBatchTooLarge, len(ops))
	}
	batch := f.client.Batch()
	for _, op := range ops {
		ref := f.client.Collection(op.Collection).Doc(op.ID)
		switch op.Kind {
		case OpSet:
			batch.Set(ref, withID(op.Fields, op.ID), firestore.MergeAll)
		case OpUpdate:
			batch.Update(ref, toUpdates(op.Fields))
		case OpDelete:
			batch.Delete(ref)
		}
	}
	_, err := batch.Commit(ctx)
	return classify(err, fmt.Sprintf("commit %d ops", len(ops)))
}

func (f *Firestore) collect(iter *firestore.DocumentIterator, op string) ([]Record, error) {
	defer iter.Stop()
	out := []Record{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, classify(err, op)
		}
		out = append(out, toRecord(snap))
	}
}

func toRecord(snap *firestore.DocumentSnapshot) Record {
	r := Record(snap.Data())
	if r == nil {
		r = Record{}
	}
	r["id"] = snap.Ref.ID
	return r
}

func withID(fields map[string]interface{}, id string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["id"] = id
	return out
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates
}

func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w: %s", op, ErrPermissionDenied, status.Convert(err).Message())
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
