package scene

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
	"myinstanceserver/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// maxSceneSize caps a scene download.
const maxSceneSize = 256 << 20

// Fetcher loads scenes by downloading their asset. The scene counts as loaded once the whole
// asset is in memory.
type Fetcher struct {
	httpClient *http.Client
	logger     log.Logger
}

var _ interfaces.SceneLoader = (*Fetcher)(nil)

// NewFetcher creates a Fetcher. httpClient may be nil.
func NewFetcher(httpClient *http.Client, logger log.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{
		httpClient: httpClient,
		logger:     log.With(helpers.NilPanic(logger, "scene.fetcher.go: logger is required"), "component", "scene"),
	}
}

// Load starts the download and returns at once. The download outlives ctx and stops on Unload.
func (f *Fetcher) Load(ctx context.Context, scene domain.StaticResource) (interfaces.SceneHandle, error) {
	if scene.URL == "" {
		return nil, service.NewBadParameterError(fmt.Sprintf("scene %s has no url", scene.ID), nil)
	}
	dlCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle{scene: scene, loaded: make(chan struct{}), cancel: cancel}
	go f.download(dlCtx, h)
	return h, nil
}

func (f *Fetcher) download(ctx context.Context, h *Handle) {
	start := time.Now()
	data, err := f.fetch(ctx, h.scene.URL)
	if err != nil {
		if ctx.Err() == nil {
			level.Error(f.logger).Log("msg", "scene download failed", "scene_id", h.scene.ID, "url", h.scene.URL, "err", err)
		}
		return
	}
	if !h.finish(data) {
		return
	}
	level.Info(f.logger).Log("msg", "scene loaded", "scene_id", h.scene.ID, "bytes", len(data), "took", time.Since(start))
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSceneSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSceneSize {
		return nil, fmt.Errorf("scene larger than %d bytes", maxSceneSize)
	}
	return data, nil
}

// Handle is one scene being loaded.
type Handle struct {
	scene  domain.StaticResource
	loaded chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	data     []byte
	unloaded bool
}

var _ interfaces.SceneHandle = (*Handle)(nil)

// finish stores data and signals Loaded, unless the handle was unloaded meanwhile.
func (h *Handle) finish(data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return false
	}
	h.data = data
	close(h.loaded)
	return true
}

func (h *Handle) Loaded() <-chan struct{} {
	return h.loaded
}

// Unload stops a running download and drops the asset.
func (h *Handle) Unload() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloaded = true
	h.data = nil
}

// Scene returns the static resource this handle loads.
func (h *Handle) Scene() domain.StaticResource {
	return h.scene
}

// Size returns the size of the loaded asset, 0 before it loaded or after Unload.
func (h *Handle) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}
