package interfaces

import "context"

// Transport is the raw connection of one peer.
//
//go:generate moq -stub -out mock/transport.go -pkg mock . Transport
type Transport interface {
	// ID is unique per connection.
	ID() string
	// Send delivers one message to the peer.
	Send(ctx context.Context, msg []byte) error
	// Close ends the connection. Safe to call more than once.
	Close() error
}
