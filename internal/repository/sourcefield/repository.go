// Package sourcefield builds entity mappings from the source_field table.
package sourcefield

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/db/postgres"
	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/mapping"
)

// querier is the consumer interface for the source field repository (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listSQL = `SELECT sf.code, sf.type, COALESCE(sf.default_label, ''),
	sf.is_searchable, sf.is_filterable, sf.is_sortable, sf.is_spannable,
	sf.is_used_in_aggregation, COALESCE(sf.weight, 1)
FROM source_field sf
JOIN metadata m ON m.id = sf.metadata_id
WHERE m.entity = $1
ORDER BY sf.code`

// Repository loads mappings of entity types.
type Repository struct {
	q       querier
	timeout time.Duration
}

// New creates a source field repository.
func New(q querier, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = postgres.DefaultQueryTimeout
	}
	return &Repository{q: q, timeout: timeout}
}

// GetMapping returns the mapping of entityType.
// An entity without source fields is reported as domain.UnknownEntityError.
func (r *Repository) GetMapping(parentCtx context.Context, entityType string) (*mapping.Mapping, error) {
	ctx, cancel := context.WithTimeout(parentCtx, r.timeout)
	defer cancel()

	rows, err := r.q.Query(ctx, listSQL, entityType)
	if err != nil {
		return nil, postgres.WrapError(db.OpQuery, err)
	}
	defer rows.Close()

	var fields []mapping.Field
	for rows.Next() {
		var (
			code, sourceType string
			p                mapping.Props
		)
		if err := rows.Scan(&code, &sourceType, &p.Label, &p.Searchable, &p.Filterable,
			&p.Sortable, &p.Spannable, &p.UsedInAggregation, &p.Weight); err != nil {
			return nil, fmt.Errorf("scan source field: %w", err)
		}
		expanded, err := Expand(code, sourceType, p)
		if err != nil {
			return nil, fmt.Errorf("source field %s.%s: %w", entityType, code, err)
		}
		fields = append(fields, expanded...)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError(db.OpQuery, err)
	}
	if len(fields) == 0 {
		return nil, &domain.UnknownEntityError{EntityType: entityType}
	}

	m, err := mapping.New(entityType, fields)
	if err != nil {
		return nil, fmt.Errorf("build %s mapping: %w", entityType, err)
	}
	return m, nil
}

// Source field types that do not map one to one onto a document field.
const (
	typePrice    = "price"
	typeCategory = "category"
	typeStock    = "stock"
	typeSelect   = "select"
	typeLocation = "location"
)

// Expand turns one source field into the document fields it is indexed as.
// Price and category source fields become nested documents; stock becomes
// an object holding its status.
func Expand(code, sourceType string, p mapping.Props) ([]mapping.Field, error) {
	switch sourceType {
	case typePrice:
		return newFields(
			spec(code, mapping.Nested, mapping.Props{Label: p.Label}),
			spec(code+".price", mapping.Price, p),
			spec(code+".group_id", mapping.Keyword, mapping.Props{}),
		)
	case typeCategory:
		return newFields(
			spec(code, mapping.Nested, mapping.Props{Label: p.Label}),
			spec(code+".id", mapping.Category, p),
		)
	case typeStock:
		return newFields(spec(code+".status", mapping.Stock, p))
	case typeSelect:
		return newFields(spec(code, mapping.Keyword, p))
	case typeLocation:
		return newFields(spec(code, mapping.GeoPoint, p))
	default:
		return newFields(spec(code, mapping.Type(sourceType), p))
	}
}

type fieldSpec struct {
	code  string
	ftype mapping.Type
	props mapping.Props
}

func spec(code string, ft mapping.Type, p mapping.Props) fieldSpec {
	return fieldSpec{code: code, ftype: ft, props: p}
}

func newFields(specs ...fieldSpec) ([]mapping.Field, error) {
	out := make([]mapping.Field, 0, len(specs))
	for _, s := range specs {
		f, err := mapping.NewField(s.code, s.ftype, s.props)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
