package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownCollection is returned for collections the store does not expose.
var ErrUnknownCollection = errors.New("platform/db: unknown collection")

// collectionQueries whitelists the lookups the document store can perform.
// Only the columns relevant to authorization (ownership and branch) are
// exposed.
var collectionQueries = map[string]string{
	"students": `SELECT id, branch_id, user_id, parent_id, class_id FROM students WHERE id = $1`,
	"staff":    `SELECT id, branch_id, user_id FROM staff WHERE id = $1`,
	"classes":  `SELECT id, branch_id FROM classes WHERE id = $1`,
}

// DocStore fetches resource snapshots by collection and id for cross-branch
// reference validation. Concurrent lookups of the same document are
// deduplicated.
type DocStore struct {
	pool  *pgxpool.Pool
	group singleflight.Group
}

// NewDocStore constructs a DocStore on the given pool.
func NewDocStore(pool *pgxpool.Pool) *DocStore {
	return &DocStore{pool: pool}
}

// FetchDocument returns the referenced row as a field map.
func (s *DocStore) FetchDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	query, ok := collectionQueries[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	v, err, _ := s.group.Do(collection+"/"+id, func() (any, error) {
		return s.fetch(ctx, query, collection, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func (s *DocStore) fetch(ctx context.Context, query, collection, id string) (map[string]any, error) {
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("platform/db: fetch %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any, len(values))
	for i, fd := range rows.FieldDescriptions() {
		doc[fd.Name] = values[i]
	}
	return doc, nil
}
