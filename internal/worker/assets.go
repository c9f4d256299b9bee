package worker

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"

	"cafeteria-storefront/internal/common/logger"
)

// CacheName versions the asset cache. Bump it to drop stale assets on deploy.
const CacheName = "cafeteria-v1"

// PrecacheURLs are fetched when the cache is installed.
var PrecacheURLs = []string{"/", "/manifest.json", "/favicon.ico"}

// MaxAssets caps the number of cached paths. Past it, misses are served
// without being stored.
const MaxAssets = 256

var staticExt = map[string]bool{
	".html": true, ".js": true, ".css": true, ".json": true, ".webmanifest": true,
	".ico": true, ".png": true, ".jpg": true, ".jpeg": true, ".svg": true, ".webp": true,
	".woff": true, ".woff2": true,
}

// cacheable reports whether p is a precached path or a static file.
func cacheable(p string) bool {
	return slices.Contains(PrecacheURLs, p) || staticExt[strings.ToLower(path.Ext(p))]
}

type cachedAsset struct {
	header http.Header
	body   []byte
}

// AssetCache serves GET requests for static assets cache-first. Entries are
// keyed by path, so query strings never create new entries. Misses go to the
// fallback and successful responses are stored while there is room.
type AssetCache struct {
	name     string
	fallback http.Handler
	lg       *logger.Logger

	mu      sync.RWMutex
	entries map[string]cachedAsset
}

func NewAssetCache(name string, fallback http.Handler, lg *logger.Logger) *AssetCache {
	return &AssetCache{name: name, fallback: fallback, lg: lg, entries: make(map[string]cachedAsset)}
}

// Assets wraps fallback with the worker's asset cache.
func (w *Worker) Assets(fallback http.Handler) *AssetCache {
	return NewAssetCache(CacheName, fallback, w.lg)
}

func (c *AssetCache) Name() string { return c.name }

// Install precaches urls. Failures are logged and skipped.
func (c *AssetCache) Install(ctx context.Context, urls []string) int {
	stored := 0
	for _, u := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			c.lg.Warn("asset_precache_failed", err, map[string]any{"url": u})
			continue
		}
		rec := newCapture()
		c.fallback.ServeHTTP(rec, req)
		if rec.status != http.StatusOK {
			c.lg.Warn("asset_precache_failed", nil, map[string]any{"url": u, "status": rec.status})
			continue
		}
		if c.store(req.URL.Path, rec) {
			stored++
		}
	}
	c.lg.Info("asset_cache_installed", map[string]any{"cache": c.name, "stored": stored})
	return stored
}

func (c *AssetCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.fallback.ServeHTTP(w, r)
		return
	}
	key := r.URL.Path
	if !cacheable(key) {
		c.fallback.ServeHTTP(w, r)
		return
	}

	c.mu.RLock()
	hit, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		for k, v := range hit.header {
			w.Header()[k] = v
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(hit.body)
		return
	}

	rec := newCapture()
	c.fallback.ServeHTTP(rec, r)
	if rec.status == http.StatusOK {
		c.store(key, rec)
	}
	for k, v := range rec.header {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.status)
	_, _ = w.Write(rec.body.Bytes())
}

// Len is the number of cached assets.
func (c *AssetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *AssetCache) store(key string, rec *capture) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= MaxAssets {
		return false
	}
	c.entries[key] = cachedAsset{header: rec.header.Clone(), body: bytes.Clone(rec.body.Bytes())}
	return true
}

type capture struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func newCapture() *capture { return &capture{header: make(http.Header), status: http.StatusOK} }

func (c *capture) Header() http.Header { return c.header }

func (c *capture) WriteHeader(status int) {
	if c.wrote {
		return
	}
	c.status = status
	c.wrote = true
}

func (c *capture) Write(p []byte) (int, error) {
	c.wrote = true
	return c.body.Write(p)
}
