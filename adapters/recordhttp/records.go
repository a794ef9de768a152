package recordhttp

import (
	"context"
	"net/http"
	"net/url"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
	"myinstanceserver/service"
)

type recordStore[T any] struct {
	client *Client
	path   string
}

// NewRecordStore creates a RecordStore for recordType served at "/<recordType>".
func NewRecordStore[T any](client *Client, recordType string) interfaces.RecordStore[T] {
	return &recordStore[T]{
		client: helpers.NilPanic(client, "recordhttp.records.go: client is required"),
		path:   "/" + helpers.StrPanic(recordType, "recordhttp.records.go: record type is required"),
	}
}

func (s *recordStore[T]) itemPath(id string) string {
	return s.path + "/" + url.PathEscape(id)
}

func (s *recordStore[T]) Find(ctx context.Context, query domain.Query, headers domain.Headers) (domain.Paginated[T], error) {
	var page domain.Paginated[T]
	if err := s.client.do(ctx, http.MethodGet, s.path, encodeQuery(query), headers, nil, &page); err != nil {
		if service.IsEntityNotFoundError(err) {
			return domain.Paginated[T]{}, service.NewMyError(service.ErrTransientRecord, "record collection missing", err)
		}
		return domain.Paginated[T]{}, err
	}
	return page, nil
}

func (s *recordStore[T]) Get(ctx context.Context, id string, headers domain.Headers) (T, error) {
	var item T
	err := s.client.do(ctx, http.MethodGet, s.itemPath(id), nil, headers, nil, &item)
	return item, err
}

func (s *recordStore[T]) Create(ctx context.Context, item T, headers domain.Headers) (T, error) {
	var created T
	err := s.client.do(ctx, http.MethodPost, s.path, nil, headers, item, &created)
	return created, err
}

// Patch with an empty id is a multi patch: the service returns every patched record.
func (s *recordStore[T]) Patch(ctx context.Context, id string, patch domain.Patch, query domain.Query, headers domain.Headers) (T, error) {
	var zero T
	if id != "" {
		var patched T
		err := s.client.do(ctx, http.MethodPatch, s.itemPath(id), encodeQuery(query), headers, patch, &patched)
		return patched, err
	}

	var patched []T
	if err := s.client.do(ctx, http.MethodPatch, s.path, encodeQuery(query), headers, patch, &patched); err != nil {
		return zero, err
	}
	if len(patched) == 0 {
		return zero, service.NewEntityNotFoundError("no record matches the query", nil)
	}
	return patched[len(patched)-1], nil
}

func (s *recordStore[T]) Remove(ctx context.Context, id string, query domain.Query, headers domain.Headers) (T, error) {
	var removed T
	err := s.client.do(ctx, http.MethodDelete, s.itemPath(id), encodeQuery(query), headers, nil, &removed)
	return removed, err
}
