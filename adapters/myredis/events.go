package myredis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
	"myinstanceserver/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
)

const subscribeConfirmTimeout = 5 * time.Second

// EventChannel is the pub/sub channel of one record type and event.
func EventChannel(recordType, event string) string {
	return "records:" + recordType + ":" + event
}

type recordEvents struct {
	client redis.UniversalClient
	logger log.Logger
}

// NewRecordEvents creates the record event bus over Redis pub/sub.
func NewRecordEvents(client redis.UniversalClient, logger log.Logger) interfaces.RecordEvents {
	return &recordEvents{
		client: helpers.NilPanic(client, "myredis.events.go: redis client is required"),
		logger: log.With(helpers.NilPanic(logger, "myredis.events.go: logger is required"), "component", "record_events"),
	}
}

func (e *recordEvents) Publish(ctx context.Context, recordType, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return service.NewInternalServerError("Redis marshal event error", err)
	}
	if err := e.client.Publish(ctx, EventChannel(recordType, event), raw).Err(); err != nil {
		return service.NewTransientRecordError("Redis publish error", err)
	}
	return nil
}

// Subscribe returns once Redis confirmed the subscription. Handlers of one subscription run
// sequentially on its own goroutine; unsubscribe does not wait for a running handler.
func (e *recordEvents) Subscribe(recordType, event string, handler interfaces.EventHandler) func() {
	channel := EventChannel(recordType, event)
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := e.client.Subscribe(ctx, channel)

	confirmCtx, confirmCancel := context.WithTimeout(ctx, subscribeConfirmTimeout)
	if _, err := pubsub.Receive(confirmCtx); err != nil {
		level.Error(e.logger).Log("msg", "subscription not confirmed", "channel", channel, "err", err)
	}
	confirmCancel()

	messages := pubsub.Channel()
	go func() {
		for msg := range messages {
			handler(ctx, []byte(msg.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				level.Warn(e.logger).Log("msg", "unsubscribe failed", "channel", channel, "err", err)
			}
		})
	}
}
