package service

import (
	"time"

	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
)

type timeProvider struct {
	now func() time.Time
}

// NewTimeProvider creates a TimeProvider backed by now (time.Now().UTC in main, a fixed clock in tests).
func NewTimeProvider(now func() time.Time) interfaces.TimeProvider {
	return &timeProvider{now: helpers.NilPanic(now, "service.time_provider.go: now is required")}
}

func (t *timeProvider) Now() time.Time {
	return t.now()
}
