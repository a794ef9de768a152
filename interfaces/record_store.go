package interfaces

import (
	"context"

	"myinstanceserver/domain"
)

// RecordStore is the record-service facade for one record type.
//
//go:generate moq -stub -out mock/record_store.go -pkg mock . RecordStore
type RecordStore[T any] interface {
	// Find returns the records matching query (exact match per field, domain.QueryLimit caps the page).
	// Returns:
	// 1) (page, nil) on success, page.Total == 0 when nothing matches;
	// 2) (empty, transient_record) when the backing service fails.
	Find(ctx context.Context, query domain.Query, headers domain.Headers) (domain.Paginated[T], error)

	// Get returns the record with the given id.
	// Returns:
	// 1) (record, nil) on success;
	// 2) (zero, entity_not_found) when the record does not exist;
	// 3) (zero, transient_record) when the backing service fails.
	Get(ctx context.Context, id string, headers domain.Headers) (T, error)

	// Create stores a new record and returns it with its id assigned.
	Create(ctx context.Context, item T, headers domain.Headers) (T, error)

	// Patch applies patch to the record with the given id. An empty id patches every record
	// matching query and returns the last patched one.
	// Returns entity_not_found when no record was patched.
	Patch(ctx context.Context, id string, patch domain.Patch, query domain.Query, headers domain.Headers) (T, error)

	// Remove deletes the record with the given id and returns it.
	// Returns entity_not_found when it is already gone.
	Remove(ctx context.Context, id string, query domain.Query, headers domain.Headers) (T, error)
}
