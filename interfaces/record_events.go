package interfaces

import "context"

// Record events published by record stores.
const (
	EventCreated = "created"
	EventPatched = "patched"
	EventUpdated = "updated"
	EventRemoved = "removed"
)

// EventHandler receives the JSON payload of a record event.
type EventHandler func(ctx context.Context, payload []byte)

// RecordEvents is the record-service event surface (the "service.on('patched', ...)" style
// subscriptions). Every Subscribe returns the func releasing that subscription; the subscriber
// owns it.
//
//go:generate moq -stub -out mock/record_events.go -pkg mock . RecordEvents
type RecordEvents interface {
	// Publish sends payload to the subscribers of (recordType, event).
	Publish(ctx context.Context, recordType, event string, payload any) error

	// Subscribe registers handler for (recordType, event) and returns its unsubscribe func.
	// Unsubscribe is idempotent.
	Subscribe(recordType, event string, handler EventHandler) (unsubscribe func())
}
