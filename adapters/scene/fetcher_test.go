package scene

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/service"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("glTF-binary-scene"))
	}))
	defer server.Close()
	f := NewFetcher(server.Client(), log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	handle, err := f.Load(ctx, domain.StaticResource{ID: "scene-1", URL: server.URL + "/plaza.glb"})
	require.NoError(t, err)
	cancel()

	select {
	case <-handle.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("scene did not load")
	}
	h := handle.(*Handle)
	assert.Equal(t, len("glTF-binary-scene"), h.Size())
	assert.Equal(t, "scene-1", h.Scene().ID)

	handle.Unload()
	handle.Unload()
	assert.Zero(t, h.Size())
}

func TestFetcher_LoadFailureNeverSignals(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	f := NewFetcher(server.Client(), log.NewNopLogger())

	handle, err := f.Load(context.Background(), domain.StaticResource{ID: "scene-1", URL: server.URL + "/missing.glb"})
	require.NoError(t, err)
	select {
	case <-handle.Loaded():
		t.Fatal("failed download signalled loaded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFetcher_UnloadStopsDownload(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	f := NewFetcher(server.Client(), log.NewNopLogger())

	handle, err := f.Load(context.Background(), domain.StaticResource{ID: "scene-1", URL: server.URL})
	require.NoError(t, err)
	handle.Unload()

	select {
	case <-handle.Loaded():
		t.Fatal("unloaded scene signalled loaded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFetcher_LoadWithoutURL(t *testing.T) {
	f := NewFetcher(nil, log.NewNopLogger())
	_, err := f.Load(context.Background(), domain.StaticResource{ID: "scene-1"})
	assert.True(t, service.IsBadParameterError(err))
}
