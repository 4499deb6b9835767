// Package catalog resolves localized catalogs from Postgres.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/db/postgres"
	"github.com/gally-search/gally/internal/domain"
	domcatalog "github.com/gally-search/gally/internal/domain/catalog"
)

// querier is the consumer interface for the catalog repository (ISP).
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// A code match wins over an id match when both exist.
const resolveSQL = `SELECT lc.id::text, lc.code, lc.name, lc.locale, c.code
FROM localized_catalog lc
JOIN catalog c ON c.id = lc.catalog_id
WHERE lc.code = $1 OR lc.id::text = $1
ORDER BY (lc.code = $1) DESC
LIMIT 1`

// Repository resolves localized catalogs by id or code.
type Repository struct {
	q       querier
	timeout time.Duration
}

// New creates a catalog repository.
func New(q querier, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = postgres.DefaultQueryTimeout
	}
	return &Repository{q: q, timeout: timeout}
}

// Resolve returns the localized catalog identified by idOrCode.
func (r *Repository) Resolve(parentCtx context.Context, idOrCode string) (domcatalog.LocalizedCatalog, error) {
	if idOrCode == "" {
		return domcatalog.LocalizedCatalog{}, &domain.MissingLocalizedCatalogError{}
	}

	ctx, cancel := context.WithTimeout(parentCtx, r.timeout)
	defer cancel()

	var id, code, name, locale, catalogCode string
	err := r.q.QueryRow(ctx, resolveSQL, idOrCode).Scan(&id, &code, &name, &locale, &catalogCode)
	if err != nil {
		err = postgres.WrapError(db.OpQuery, err)
		if errors.Is(err, db.ErrNoRows) {
			return domcatalog.LocalizedCatalog{}, &domain.MissingLocalizedCatalogError{Catalog: idOrCode}
		}
		return domcatalog.LocalizedCatalog{}, err
	}
	return domcatalog.Reconstruct(id, code, name, locale, catalogCode), nil
}
