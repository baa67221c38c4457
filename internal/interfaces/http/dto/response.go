package dto

import (
	"maps"
	"time"

	"github.com/stuffkit/backend/internal/infrastructure/persistence"
)

// ErrorSO is the error half of every response envelope.
type ErrorSO struct {
	Spec    Spec           `json:"spec"`
	Detail  *string        `json:"detail"`
	Context map[string]any `json:"context"`
}

// ResponseSO is the envelope every endpoint answers with. Exactly one of
// Payload and Error is set.
type ResponseSO[T any] struct {
	Payload *T       `json:"payload"`
	Error   *ErrorSO `json:"error"`
}

// NewResponse wraps a payload.
func NewResponse[T any](payload T) ResponseSO[T] {
	return ResponseSO[T]{Payload: &payload}
}

// NewErrorResponse wraps an error.
func NewErrorResponse(e ErrorSO) ResponseSO[any] {
	return ResponseSO[any]{Error: &e}
}

// MappingSO carries the bookkeeping columns of persistence.BaseMapping.
type MappingSO struct {
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMappingSO copies the bookkeeping columns of m.
func NewMappingSO(m persistence.BaseMapping) MappingSO {
	return MappingSO{IsActive: m.IsActive, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// MappingFields renders a mapping and extra values as one camelCase
// object, extra winning on key clashes.
func MappingFields(m persistence.BaseMapping, extra map[string]any) map[string]any {
	out := map[string]any{
		"isActive":  m.IsActive,
		"createdAt": m.CreatedAt,
		"updatedAt": m.UpdatedAt,
	}
	maps.Copy(out, extra)
	return out
}

// ListSO is the payload of paged list endpoints.
type ListSO[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// PageQuery binds the paging query parameters. Pages are 0-based.
type PageQuery struct {
	Page int `form:"page" binding:"omitempty,min=0"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}

// DefaultPageSize applies when the size parameter is omitted.
const DefaultPageSize = 20

// SizeOrDefault returns Size or DefaultPageSize when unset.
func (q PageQuery) SizeOrDefault() int {
	if q.Size == 0 {
		return DefaultPageSize
	}
	return q.Size
}

// ErrorResponse documents the envelope of a failed request.
type ErrorResponse struct {
	Payload *struct{} `json:"payload"`
	Error   *ErrorSO  `json:"error"`
}
