package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// ValidateSortOrder normalizes a direction to ASC or DESC. Only "desc"
// (any case) sorts descending.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField returns sortField when it is in allowed, otherwise
// defaultField.
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderBy sorts List results. The column must exist on the model; an
// unknown column fails the query with an UnknownFieldError.
func OrderBy(field, dir string) QueryOption {
	return func(q *query) {
		q.order = append(q.order, sortKey{field: strings.TrimSpace(field), desc: ValidateSortOrder(dir) == "DESC"})
	}
}

type sortKey struct {
	field string
	desc  bool
}

func (k sortKey) orderBy(column string) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Table: clause.CurrentTable, Name: column},
		Desc:   k.desc,
	}
}
