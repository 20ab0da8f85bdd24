package cache

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Config is the cache identity, injected once at startup. Version must be
// rotated whenever the precache list or serving logic changes so stale
// generations get evicted on the next activation.
type Config struct {
	Version     string
	Precache    []string
	Bypass      []string
	OfflinePath string
}

type entry struct {
	status int
	header http.Header
	body   []byte
}

// Manager owns the versioned response cache in front of the static site.
// Generations are append/evict only and safe for concurrent readers.
type Manager struct {
	cfg    Config
	origin http.Handler
	logger *slog.Logger

	mu          sync.RWMutex
	generations map[string]map[string]*entry
	current     string
}

func New(cfg Config, origin http.Handler, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:         cfg,
		origin:      origin,
		logger:      logger,
		generations: make(map[string]map[string]*entry),
		current:     "static-" + cfg.Version,
	}
}

// CurrentName returns the active generation's cache name.
func (m *Manager) CurrentName() string {
	return m.current
}

// Names lists all cache generations, current included.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.generations))
	for name := range m.generations {
		names = append(names, name)
	}
	return names
}

// Install creates the current generation and warms it with the precache
// allow-list. Population failures are swallowed: a stale or missing entry
// is acceptable, a blocked install is not. The new generation takes over
// immediately.
func (m *Manager) Install(ctx context.Context) {
	m.mu.Lock()
	if _, ok := m.generations[m.current]; !ok {
		m.generations[m.current] = make(map[string]*entry)
	}
	m.mu.Unlock()

	for _, path := range m.cfg.Precache {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			m.logger.Warn("Failed to precache path", "path", path, "error", err)
			continue
		}

		rec := newRecorder()
		m.origin.ServeHTTP(rec, req)

		if rec.code != http.StatusOK {
			m.logger.Warn("Failed to precache path", "path", path, "status", rec.code)
			continue
		}

		m.put(path, rec.entry())
	}

	m.logger.Info("Cache installed", "cache", m.current, "precached", len(m.cfg.Precache))
}

// Activate evicts every generation whose name differs from the current
// version and takes over in-flight traffic without a restart.
func (m *Manager) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name := range m.generations {
		if name != m.current {
			delete(m.generations, name)
			m.logger.Info("Deleted stale cache", "cache", name)
		}
	}
	if _, ok := m.generations[m.current]; !ok {
		m.generations[m.current] = make(map[string]*entry)
	}
}

// Middleware serves GET requests cache-or-origin. Bypass-prefixed paths
// (admin, API, tracking) always go straight to the origin so their
// failures surface unmasked. A cacheable miss is stored on 200; the body
// is copied before writing since it can only be consumed once. Origin
// failure on a navigation request falls back to the offline document;
// other failures propagate unmodified.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.bypassed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()

		if e := m.get(key); e != nil {
			writeEntry(w, e)
			return
		}

		rec := newRecorder()
		next.ServeHTTP(rec, r)

		if rec.code >= http.StatusInternalServerError {
			if isNavigation(r) {
				if offline := m.get(m.cfg.OfflinePath); offline != nil {
					writeEntry(w, offline)
					return
				}
			}
			rec.flush(w)
			return
		}

		if rec.code == http.StatusOK {
			m.put(key, rec.entry())
		}

		rec.flush(w)
	})
}

func (m *Manager) bypassed(path string) bool {
	for _, prefix := range m.cfg.Bypass {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *Manager) get(key string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gen, ok := m.generations[m.current]
	if !ok {
		return nil
	}
	return gen[key]
}

func (m *Manager) put(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen, ok := m.generations[m.current]
	if !ok {
		gen = make(map[string]*entry)
		m.generations[m.current] = gen
	}
	gen[key] = e
}

// isNavigation reports whether the request is a top-level page load rather
// than an asset or API fetch.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeEntry(w http.ResponseWriter, e *entry) {
	for key, values := range e.header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body) //nolint:errcheck
}

// recorder buffers an origin response so it can be both stored and
// replayed; the original body can only be consumed once.
type recorder struct {
	header      http.Header
	code        int
	body        bytes.Buffer
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), code: http.StatusOK}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.code = code
		r.wroteHeader = true
	}
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}

func (r *recorder) entry() *entry {
	return &entry{
		status: r.code,
		header: r.header.Clone(),
		body:   append([]byte(nil), r.body.Bytes()...),
	}
}

func (r *recorder) flush(w http.ResponseWriter) {
	for key, values := range r.header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(r.code)
	_, _ = w.Write(r.body.Bytes()) //nolint:errcheck
}
