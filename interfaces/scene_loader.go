package interfaces

import (
	"context"

	"myinstanceserver/domain"
)

// SceneHandle is a scene being loaded by the scene engine.
type SceneHandle interface {
	// Loaded is closed once the scene is fully loaded.
	Loaded() <-chan struct{}
	// Unload releases the scene. Safe to call more than once.
	Unload()
}

// SceneLoader starts loading scenes in the scene engine.
//
//go:generate moq -stub -out mock/scene_loader.go -pkg mock . SceneLoader
type SceneLoader interface {
	// Load starts loading the scene and returns immediately with its handle.
	Load(ctx context.Context, scene domain.StaticResource) (SceneHandle, error)
}
