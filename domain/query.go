package domain

import "net/http"

// QueryLimit is the reserved query key limiting the number of returned records.
const QueryLimit = "$limit"

// Query filters records by exact field match (JSON field names). QueryLimit caps the result.
type Query map[string]any

// Patch is a partial update keyed by JSON field names; a nil value clears the field.
type Patch map[string]any

// Headers are the caller's request headers propagated to the record service.
type Headers = http.Header

// Paginated is a page of records.
type Paginated[T any] struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
	Data  []T `json:"data"`
}

// First returns the first record of the page, or false when the page is empty.
func (p Paginated[T]) First() (T, bool) {
	if len(p.Data) == 0 {
		var zero T
		return zero, false
	}
	return p.Data[0], true
}
