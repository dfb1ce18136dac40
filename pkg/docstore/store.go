// Package docstore is the document gateway the rest of the service talks to.
// Documents live in named collections, are keyed by id and carry a JSON body.
// Collections may be nested with slash-separated paths such as
// "groups/founders/members".
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrAlreadyExists     = errors.New("document already exists")
	ErrRemoteUnavailable = errors.New("document store unavailable")
)

// Document is one stored record. Data holds JSON-compatible values only:
// numbers are float64 after a read.
type Document struct {
	Collection string         `json:"-"`
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
}

// Decode copies the document body into v, exposing the document id as "id".
func (d Document) Decode(v any) error {
	body := make(map[string]any, len(d.Data)+1)
	for k, val := range d.Data {
		body[k] = val
	}
	body["id"] = d.ID

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// DecodeAll decodes every document into a T, preserving order.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode turns a struct into a document body. The "id" key is dropped since
// the id is part of the document key, not its body.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	delete(body, "id")
	return body, nil
}

// Filter is an equality constraint on a top-level field.
type Filter struct {
	Field string
	Value any
}

type Query struct {
	Collection string
	Where      []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Tx is the set of single-document operations available inside RunInTx.
type Tx interface {
	GetDoc(ctx context.Context, collection, id string) (Document, error)
	// GetDocForUpdate reads like GetDoc and holds the row until the
	// surrounding transaction ends, so concurrent read-modify-write cycles on
	// the same document run one after another.
	GetDocForUpdate(ctx context.Context, collection, id string) (Document, error)
	SetDoc(ctx context.Context, collection, id string, data map[string]any) error
	// UpdateDoc merges patch into an existing document. Dotted keys address
	// nested fields ("startupDetails.T").
	UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) error
	// CreateDoc writes only if no document exists under the key, returning
	// ErrAlreadyExists otherwise.
	CreateDoc(ctx context.Context, collection, id string, data map[string]any) error
	DeleteDoc(ctx context.Context, collection, id string) error
	// Increment adds delta to a top-level numeric field, treating a missing
	// field as zero.
	Increment(ctx context.Context, collection, id, field string, delta int64) error
}

type Store interface {
	Tx
	ListCollection(ctx context.Context, collection string) ([]Document, error)
	// QueryRange returns documents whose string field lies in [lo, hi] by
	// byte order, ordered by that field.
	QueryRange(ctx context.Context, collection, field, lo, hi string) ([]Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// RunInTx runs fn atomically. Any error returned by fn rolls back every
	// write made through the Tx.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	// Subscribe delivers the result of q now and again after every change to
	// q.Collection until ctx is done or the subscription is closed.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
}
