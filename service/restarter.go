package service

import (
	"context"
	"sync"

	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// processRestarter implements interfaces.Restarter by running the cleanup and then the respawn
// func (re-exec of the binary in main). Only the first Restart has effect.
type processRestarter struct {
	respawn func() error
	logger  log.Logger
	once    sync.Once
}

// NewProcessRestarter creates a Restarter. Panics on nil respawn or logger.
func NewProcessRestarter(respawn func() error, logger log.Logger) interfaces.Restarter {
	return &processRestarter{
		respawn: helpers.NilPanic(respawn, "service.restarter.go: respawn is required"),
		logger:  log.With(helpers.NilPanic(logger, "service.restarter.go: logger is required"), "component", "restarter"),
	}
}

func (r *processRestarter) Restart(ctx context.Context, cleanup func(ctx context.Context)) {
	r.once.Do(func() {
		level.Info(r.logger).Log("msg", "restarting instance server for a new session")
		if cleanup != nil {
			cleanup(ctx)
		}
		if err := r.respawn(); err != nil {
			level.Error(r.logger).Log("msg", "respawn failed", "err", err)
		}
	})
}
