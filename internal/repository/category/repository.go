// Package category answers category tree lookups from Postgres.
package category

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/db/postgres"
)

// querier is the consumer interface for the category repository (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	existsSQL   = `SELECT EXISTS (SELECT 1 FROM category WHERE id = $1)`
	childrenSQL = `SELECT id FROM category WHERE parent_id = $1 ORDER BY position, id`
	rootsSQL    = `SELECT id FROM category WHERE parent_id IS NULL ORDER BY position, id`
)

// Repository reads the category tree.
type Repository struct {
	q       querier
	timeout time.Duration
}

// New creates a category repository.
func New(q querier, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = postgres.DefaultQueryTimeout
	}
	return &Repository{q: q, timeout: timeout}
}

// Exists reports whether the category id is known.
func (r *Repository) Exists(parentCtx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(parentCtx, r.timeout)
	defer cancel()

	var exists bool
	if err := r.q.QueryRow(ctx, existsSQL, id).Scan(&exists); err != nil {
		return false, postgres.WrapError(db.OpQuery, err)
	}
	return exists, nil
}

// Children returns the ids of the direct children of id; "" selects root categories.
func (r *Repository) Children(parentCtx context.Context, id string) ([]string, error) {
	ctx, cancel := context.WithTimeout(parentCtx, r.timeout)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if id == "" {
		rows, err = r.q.Query(ctx, rootsSQL)
	} else {
		rows, err = r.q.Query(ctx, childrenSQL, id)
	}
	if err != nil {
		return nil, postgres.WrapError(db.OpQuery, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		ids = append(ids, child)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError(db.OpQuery, err)
	}
	return ids, nil
}
