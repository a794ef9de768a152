package interfaces

import "time"

// TimeProvider supplies the current time for token expiry checks and record timestamps.
//
//go:generate moq -stub -out mock/time_provider.go -pkg mock . TimeProvider
type TimeProvider interface {
	Now() time.Time
}
