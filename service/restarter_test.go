package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
)

func TestProcessRestarter_RunsOnce(t *testing.T) {
	var respawns, cleanups int
	r := NewProcessRestarter(func() error {
		respawns++
		return nil
	}, log.NewNopLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Restart(context.Background(), func(ctx context.Context) {
				mu.Lock()
				cleanups++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, respawns)
	assert.Equal(t, 1, cleanups)
}

func TestProcessRestarter_CleanupBeforeRespawn(t *testing.T) {
	var order []string
	r := NewProcessRestarter(func() error {
		order = append(order, "respawn")
		return errors.New("exec failed")
	}, log.NewNopLogger())

	r.Restart(context.Background(), func(ctx context.Context) { order = append(order, "cleanup") })
	r.Restart(context.Background(), nil)

	assert.Equal(t, []string{"cleanup", "respawn"}, order)
}

func TestNewProcessRestarter_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "service.restarter.go: respawn is required", func() {
		NewProcessRestarter(nil, log.NewNopLogger())
	})
	assert.PanicsWithValue(t, "service.restarter.go: logger is required", func() {
		NewProcessRestarter(func() error { return nil }, nil)
	})
}
