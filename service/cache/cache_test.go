package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"herald/service/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOrigin struct {
	hits    atomic.Int64
	status  int
	body    string
	perPath map[string]string
}

func (o *countingOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.hits.Add(1)
	if o.perPath != nil {
		if body, ok := o.perPath[r.URL.Path]; ok {
			_, _ = w.Write([]byte(body))
			return
		}
	}
	status := o.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(o.body))
}

func testConfig() Config {
	return Config{
		Version:     "v7",
		Precache:    []string{"/", "/offline.html"},
		Bypass:      []string{"/api/", "/admin", "/track-open"},
		OfflinePath: "/offline.html",
	}
}

func newTestManager(cfg Config, origin http.Handler) *Manager {
	return New(cfg, origin, util.NewLogger(false))
}

func TestInstall_WarmsPrecacheList(t *testing.T) {
	origin := &countingOrigin{perPath: map[string]string{
		"/":             "home",
		"/offline.html": "offline",
	}}
	m := newTestManager(testConfig(), origin)

	m.Install(context.Background())

	assert.Equal(t, int64(2), origin.hits.Load())

	// precached entries now serve without touching the origin
	rr := httptest.NewRecorder()
	m.Middleware(origin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "home", rr.Body.String())
	assert.Equal(t, int64(2), origin.hits.Load())
}

func TestInstall_PopulationFailureIsSwallowed(t *testing.T) {
	origin := &countingOrigin{status: http.StatusNotFound}
	m := newTestManager(testConfig(), origin)

	m.Install(context.Background())

	assert.Equal(t, []string{"static-v7"}, m.Names())
}

func TestActivate_EvictsAllStaleGenerations(t *testing.T) {
	origin := &countingOrigin{body: "x"}
	m := newTestManager(testConfig(), origin)

	m.generations["static-v5"] = map[string]*entry{}
	m.generations["static-v6"] = map[string]*entry{}
	m.Install(context.Background())

	m.Activate()

	assert.Equal(t, []string{"static-v7"}, m.Names())
	assert.Equal(t, "static-v7", m.CurrentName())
}

func TestMiddleware_CachesSuccessfulGET(t *testing.T) {
	origin := &countingOrigin{body: "page"}
	m := newTestManager(testConfig(), origin)
	m.Install(context.Background())
	h := m.Middleware(origin)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/curriculum.html", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "page", rr.Body.String())
	}

	// 2 precache hits + exactly 1 miss for the repeated path
	assert.Equal(t, int64(3), origin.hits.Load())
}

func TestMiddleware_BypassPathsNeverServedFromCache(t *testing.T) {
	origin := &countingOrigin{body: "fresh"}
	m := newTestManager(testConfig(), origin)
	h := m.Middleware(origin)

	// plant a poisoned entry for the bypass path; it must be ignored
	m.put("/api/admin/stats", &entry{status: http.StatusOK, header: http.Header{}, body: []byte("stale")})

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
		assert.Equal(t, "fresh", rr.Body.String())
	}
	assert.Equal(t, int64(2), origin.hits.Load())
}

func TestMiddleware_BypassErrorsSurfaceUnmasked(t *testing.T) {
	origin := &countingOrigin{status: http.StatusBadGateway, body: "upstream down"}
	m := newTestManager(testConfig(), origin)
	h := m.Middleware(origin)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "upstream down", rr.Body.String())
}

func TestMiddleware_NonGETPassesThrough(t *testing.T) {
	origin := &countingOrigin{body: "ok"}
	m := newTestManager(testConfig(), origin)
	h := m.Middleware(origin)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/form", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, int64(2), origin.hits.Load())
}

func TestMiddleware_NavigationFailureFallsBackToOffline(t *testing.T) {
	warm := &countingOrigin{perPath: map[string]string{
		"/":             "home",
		"/offline.html": "you are offline",
	}}
	m := newTestManager(testConfig(), warm)
	m.Install(context.Background())

	failing := &countingOrigin{status: http.StatusInternalServerError}
	h := m.Middleware(failing)

	req := httptest.NewRequest(http.MethodGet, "/announcements.html", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "you are offline", rr.Body.String())
}

func TestMiddleware_NonNavigationFailurePropagates(t *testing.T) {
	warm := &countingOrigin{perPath: map[string]string{
		"/":             "home",
		"/offline.html": "you are offline",
	}}
	m := newTestManager(testConfig(), warm)
	m.Install(context.Background())

	failing := &countingOrigin{status: http.StatusInternalServerError, body: "broken"}
	h := m.Middleware(failing)

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "broken", rr.Body.String())
}

func TestMiddleware_ErrorResponsesAreNotCached(t *testing.T) {
	origin := &countingOrigin{status: http.StatusNotFound, body: "nope"}
	m := newTestManager(testConfig(), origin)
	h := m.Middleware(origin)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}
	assert.Equal(t, int64(2), origin.hits.Load())
}

func TestIsNavigation(t *testing.T) {
	nav := httptest.NewRequest(http.MethodGet, "/", nil)
	nav.Header.Set("Sec-Fetch-Mode", "navigate")
	require.True(t, isNavigation(nav))

	accept := httptest.NewRequest(http.MethodGet, "/", nil)
	accept.Header.Set("Accept", "text/html,*/*")
	require.True(t, isNavigation(accept))

	asset := httptest.NewRequest(http.MethodGet, "/x.js", nil)
	asset.Header.Set("Accept", "*/*")
	require.False(t, isNavigation(asset))
}

func TestNames_IncludesOnlyKnownGenerations(t *testing.T) {
	m := newTestManager(testConfig(), &countingOrigin{})
	assert.Empty(t, m.Names())

	m.Install(context.Background())
	names := m.Names()
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "static-"))
}
