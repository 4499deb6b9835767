// Package facetconfig stores facet configuration rows in Postgres.
package facetconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/db/postgres"
	domfacet "github.com/gally-search/gally/internal/domain/facet"
)

// querier is the consumer interface for the facet configuration repository (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const columns = `entity_type, field_code, category_id, display_mode, coverage_rate,
	max_size, sort_order, position, interval, format`

// A NULL category_id selects the default rows of the entity.
const findSQL = `SELECT ` + columns + `
FROM facet_configuration
WHERE entity_type = $1 AND category_id IS NOT DISTINCT FROM $2
ORDER BY field_code`

// The unique key is declared NULLS NOT DISTINCT so default rows conflict too.
const upsertSQL = `INSERT INTO facet_configuration (` + columns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (entity_type, field_code, category_id) DO UPDATE SET
	display_mode = EXCLUDED.display_mode,
	coverage_rate = EXCLUDED.coverage_rate,
	max_size = EXCLUDED.max_size,
	sort_order = EXCLUDED.sort_order,
	position = EXCLUDED.position,
	interval = EXCLUDED.interval,
	format = EXCLUDED.format`

// Repository reads and writes facet configuration rows.
type Repository struct {
	q       querier
	timeout time.Duration
}

// New creates a facet configuration repository.
func New(q querier, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = postgres.DefaultQueryTimeout
	}
	return &Repository{q: q, timeout: timeout}
}

// FindByEntityAndCategory returns the rows of one scope. A nil categoryID selects default rows.
func (r *Repository) FindByEntityAndCategory(
	parentCtx context.Context, entityType string, categoryID *string,
) ([]domfacet.Row, error) {
	ctx, cancel := context.WithTimeout(parentCtx, r.timeout)
	defer cancel()

	rows, err := r.q.Query(ctx, findSQL, entityType, categoryID)
	if err != nil {
		return nil, postgres.WrapError(db.OpQuery, err)
	}
	defer rows.Close()

	out := []domfacet.Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError(db.OpQuery, err)
	}
	return out, nil
}

// Upsert inserts the row or replaces the stored row of the same scope.
func (r *Repository) Upsert(parentCtx context.Context, row domfacet.Row) error {
	ctx, cancel := context.WithTimeout(parentCtx, r.timeout)
	defer cancel()

	var displayMode, sortOrder *string
	if row.DisplayMode != nil {
		v := string(*row.DisplayMode)
		displayMode = &v
	}
	if row.SortOrder != nil {
		v := string(*row.SortOrder)
		sortOrder = &v
	}

	_, err := r.q.Exec(ctx, upsertSQL,
		row.EntityType, row.SourceField, row.CategoryID, displayMode, row.CoverageRate,
		row.MaxSize, sortOrder, row.Position, row.Interval, row.Format)
	if err != nil {
		return postgres.WrapError(db.OpExec, err)
	}
	return nil
}

func scanRow(rows pgx.Rows) (domfacet.Row, error) {
	var (
		row                    domfacet.Row
		displayMode, sortOrder *string
	)
	err := rows.Scan(&row.EntityType, &row.SourceField, &row.CategoryID, &displayMode, &row.CoverageRate,
		&row.MaxSize, &sortOrder, &row.Position, &row.Interval, &row.Format)
	if err != nil {
		return domfacet.Row{}, fmt.Errorf("scan facet configuration: %w", err)
	}
	if displayMode != nil {
		m := domfacet.DisplayMode(*displayMode)
		row.DisplayMode = &m
	}
	if sortOrder != nil {
		o := domfacet.SortOrder(*sortOrder)
		row.SortOrder = &o
	}
	return row, nil
}
