package myredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
	"myinstanceserver/service"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	scanBatch      = 100
	patchRetries   = 5
	recordIDField  = "id"
	keySeparator   = ":"
	anyKeyWildcard = "*"
)

type recordStore[T any] struct {
	client     redis.UniversalClient
	recordType string
	events     interfaces.RecordEvents
}

// NewRecordStore creates a RecordStore keeping records of recordType as JSON documents under
// "<recordType>:<id>". Mutations are published on events when it is not nil. Headers are not
// used: Redis is only reachable from inside the cluster.
func NewRecordStore[T any](client redis.UniversalClient, recordType string, events interfaces.RecordEvents) interfaces.RecordStore[T] {
	return &recordStore[T]{
		client:     helpers.NilPanic(client, "myredis.records.go: redis client is required"),
		recordType: helpers.StrPanic(recordType, "myredis.records.go: record type is required"),
		events:     events,
	}
}

func (s *recordStore[T]) key(id string) string {
	return s.recordType + keySeparator + id
}

func (s *recordStore[T]) Find(ctx context.Context, query domain.Query, _ domain.Headers) (domain.Paginated[T], error) {
	rows, err := s.findRows(ctx, query)
	if err != nil {
		return domain.Paginated[T]{}, err
	}
	limit := queryLimit(query)
	page := domain.Paginated[T]{Total: len(rows), Limit: limit, Data: make([]T, 0, len(rows))}
	for _, row := range rows {
		if limit > 0 && len(page.Data) >= limit {
			break
		}
		item, err := fromRow[T](row)
		if err != nil {
			return domain.Paginated[T]{}, err
		}
		page.Data = append(page.Data, item)
	}
	return page, nil
}

// findRows returns the rows matching query ordered by key.
func (s *recordStore[T]) findRows(ctx context.Context, query domain.Query) ([]map[string]any, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(anyKeyWildcard), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, service.NewTransientRecordError("Redis scan error", fmt.Errorf("can't scan %s records: %w", s.recordType, err))
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, service.NewTransientRecordError("Redis get error", fmt.Errorf("can't get %s records: %w", s.recordType, err))
	}
	want := normalizeQuery(query)
	rows := make([]map[string]any, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		row := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			continue
		}
		if matches(row, want) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *recordStore[T]) Get(ctx context.Context, id string, _ domain.Headers) (T, error) {
	var zero T
	row, err := s.getRow(ctx, s.client, id)
	if err != nil {
		return zero, err
	}
	return fromRow[T](row)
}

// stringGetter is satisfied by the client and by a WATCH transaction.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *recordStore[T]) getRow(ctx context.Context, c stringGetter, id string) (map[string]any, error) {
	data, err := c.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, service.NewEntityNotFoundError(fmt.Sprintf("%s %s not found", s.recordType, id), err)
		}
		return nil, service.NewTransientRecordError("Redis get error", fmt.Errorf("can't get %s %s: %w", s.recordType, id, err))
	}
	row := make(map[string]any)
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, service.NewInternalServerError("Redis unmarshal error", fmt.Errorf("can't unmarshal %s %s: %w", s.recordType, id, err))
	}
	return row, nil
}

func (s *recordStore[T]) Create(ctx context.Context, item T, _ domain.Headers) (T, error) {
	var zero T
	row, err := toRow(item)
	if err != nil {
		return zero, err
	}
	id, _ := row[recordIDField].(string)
	if id == "" {
		id = uuid.NewString()
		row[recordIDField] = id
	}
	data, err := json.Marshal(row)
	if err != nil {
		return zero, service.NewInternalServerError("Redis marshal item error", err)
	}
	created, err := s.client.SetNX(ctx, s.key(id), data, 0).Result()
	if err != nil {
		return zero, service.NewTransientRecordError("Redis write key error", fmt.Errorf("can't write %s %s: %w", s.recordType, id, err))
	}
	if !created {
		return zero, service.NewConflictError(fmt.Sprintf("%s %s already exists", s.recordType, id), nil)
	}
	result, err := fromRow[T](row)
	if err != nil {
		return zero, err
	}
	s.publish(ctx, interfaces.EventCreated, result)
	return result, nil
}

func (s *recordStore[T]) Patch(ctx context.Context, id string, patch domain.Patch, query domain.Query, _ domain.Headers) (T, error) {
	var zero T
	ids := []string{id}
	if id == "" {
		rows, err := s.findRows(ctx, query)
		if err != nil {
			return zero, err
		}
		ids = ids[:0]
		for _, row := range rows {
			if rowID, ok := row[recordIDField].(string); ok {
				ids = append(ids, rowID)
			}
		}
		if len(ids) == 0 {
			return zero, service.NewEntityNotFoundError(fmt.Sprintf("no %s matches the query", s.recordType), nil)
		}
	}

	var last T
	for _, id := range ids {
		row, err := s.patchOne(ctx, id, patch)
		if err != nil {
			return zero, err
		}
		if last, err = fromRow[T](row); err != nil {
			return zero, err
		}
		s.publish(ctx, interfaces.EventPatched, last)
	}
	return last, nil
}

// patchOne applies patch under WATCH so concurrent patches of one record do not lose fields.
func (s *recordStore[T]) patchOne(ctx context.Context, id string, patch domain.Patch) (map[string]any, error) {
	key := s.key(id)
	var result map[string]any
	txf := func(tx *redis.Tx) error {
		row, err := s.getRow(ctx, tx, id)
		if err != nil {
			return err
		}
		for k, v := range patch {
			if k == recordIDField {
				continue
			}
			row[k] = normalize(v)
		}
		data, err := json.Marshal(row)
		if err != nil {
			return service.NewInternalServerError("Redis marshal item error", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		result = row
		return err
	}

	for i := 0; i < patchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			if service.ToMyError(err) != nil {
				return nil, err
			}
			return nil, service.NewTransientRecordError("Redis patch error", fmt.Errorf("can't patch %s %s: %w", s.recordType, id, err))
		}
	}
	return nil, service.NewTransientRecordError("Redis patch error", fmt.Errorf("%s %s changed concurrently %d times", s.recordType, id, patchRetries))
}

func (s *recordStore[T]) Remove(ctx context.Context, id string, _ domain.Query, _ domain.Headers) (T, error) {
	var zero T
	data, err := s.client.GetDel(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, service.NewEntityNotFoundError(fmt.Sprintf("%s %s not found", s.recordType, id), err)
		}
		return zero, service.NewTransientRecordError("Redis delete key error", fmt.Errorf("can't delete %s %s: %w", s.recordType, id, err))
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return zero, service.NewInternalServerError("Redis unmarshal error", err)
	}
	s.publish(ctx, interfaces.EventRemoved, item)
	return item, nil
}

// publish is best effort: the write already happened.
func (s *recordStore[T]) publish(ctx context.Context, event string, item T) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, s.recordType, event, item)
}

func queryLimit(query domain.Query) int {
	switch v := query[domain.QueryLimit].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func normalizeQuery(query domain.Query) map[string]any {
	out := make(map[string]any, len(query))
	for k, v := range query {
		if k == domain.QueryLimit {
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

func matches(row map[string]any, want map[string]any) bool {
	for k, v := range want {
		if !reflect.DeepEqual(row[k], v) {
			return false
		}
	}
	return true
}

// normalize turns v into the shape json.Unmarshal produces, so it compares equal to stored fields.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func toRow(item any) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, service.NewInternalServerError("Redis marshal item error", fmt.Errorf("can't marshal item of type %T: %w", item, err))
	}
	row := make(map[string]any)
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, service.NewBadParameterError(fmt.Sprintf("item of type %T is not an object", item), err)
	}
	return row, nil
}

func fromRow[T any](row map[string]any) (T, error) {
	var item T
	raw, err := json.Marshal(row)
	if err != nil {
		return item, service.NewInternalServerError("Redis marshal item error", err)
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, service.NewInternalServerError("Redis unmarshal error", fmt.Errorf("can't unmarshal item of type %T: %w", item, err))
	}
	return item, nil
}
