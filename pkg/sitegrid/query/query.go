// Package query is the shared filter -> sort -> paginate pipeline used by
// the site and group list endpoints. Filtering and sorting are pushed
// into the store query, never applied in-process on a materialized list.
package query

import (
	"strings"

	"gorm.io/gorm"

	"sitegrid/pkg/sitegrid/errs"
)

// Kind classifies a filterable field. String fields match by
// case-insensitive substring; Date and Number fields additionally accept
// the __gte/__lte range operators; Enum and Number fields match exactly.
type Kind int

const (
	String Kind = iota
	Number
	Date
	Enum
)

// Field maps an external field name to its store column.
type Field struct {
	Column string
	Kind   Kind
}

// Fields is the per-entity schema of filterable/sortable fields.
type Fields map[string]Field

// Params carries one list request through the pipeline. Filter keys are
// field names, optionally suffixed with __gte or __lte for ordered
// fields. Unknown keys are ignored.
type Params struct {
	Page         int
	ItemsPerPage int
	SortBy       string
	SortOrder    string
	Filters      map[string]any
}

// Page is one page of results.
type Page[T any] struct {
	Data         []T   `json:"data"`
	Page         int   `json:"page"`
	ItemsPerPage int   `json:"items_per_page"`
	TotalCount   int64 `json:"total_count"`
	HasMore      bool  `json:"has_more"`
}

// Run executes the pipeline for entity type T against the store.
func Run[T any](db *gorm.DB, fields Fields, p Params) (*Page[T], error) {
	if p.Page < 1 || p.ItemsPerPage < 1 {
		return nil, errs.Validation(errs.ReasonBadPagination)
	}

	var model T
	// New session so the filtered query can run both Count and Find.
	q := applyFilters(db.Model(&model), fields, p.Filters).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, errs.Store(err)
	}

	if order, ok := sortClause(fields, p.SortBy, p.SortOrder); ok {
		q = q.Order(order)
	}

	offset := (p.Page - 1) * p.ItemsPerPage
	data := make([]T, 0, p.ItemsPerPage)
	if err := q.Offset(offset).Limit(p.ItemsPerPage).Find(&data).Error; err != nil {
		return nil, errs.Store(err)
	}

	return &Page[T]{
		Data:         data,
		Page:         p.Page,
		ItemsPerPage: p.ItemsPerPage,
		TotalCount:   total,
		HasMore:      offset+len(data) < int(total),
	}, nil
}

func applyFilters(q *gorm.DB, fields Fields, filters map[string]any) *gorm.DB {
	for key, val := range filters {
		name, op := splitOperator(key)
		f, ok := fields[name]
		if !ok {
			continue // unknown keys are ignored, not an error
		}
		switch {
		case op != "":
			if f.Kind == Date || f.Kind == Number {
				q = q.Where(f.Column+" "+op+" ?", val)
			}
		case f.Kind == String:
			s, ok := val.(string)
			if !ok {
				continue
			}
			q = q.Where("LOWER("+f.Column+") LIKE ?", "%"+strings.ToLower(s)+"%")
		default:
			q = q.Where(f.Column+" = ?", val)
		}
	}
	return q
}

// splitOperator peels a __gte/__lte suffix off a filter key.
func splitOperator(key string) (name, op string) {
	switch {
	case strings.HasSuffix(key, "__gte"):
		return strings.TrimSuffix(key, "__gte"), ">="
	case strings.HasSuffix(key, "__lte"):
		return strings.TrimSuffix(key, "__lte"), "<="
	default:
		return key, ""
	}
}

func sortClause(fields Fields, sortBy, sortOrder string) (string, bool) {
	if sortBy == "" {
		return "", false
	}
	f, ok := fields[sortBy]
	if !ok {
		return "", false
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return f.Column + " " + dir, true
}
