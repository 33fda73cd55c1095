package views

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/format"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/state"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

// fakeBackend serves canned resources and records every call as "METHOD path".
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]int
	hold  chan struct{}

	clients   []*models.Client
	websites  []*models.Website
	scans     []*models.Scan
	schedules []*models.Schedule
	status    *models.SchedulerStatus
	registry  []*models.IssueDefinition
	pages     []*models.Page
	issues    []*models.Issue
	bodies    map[string]map[string]any
}

// newFakeBackend holds 3 clients and 5 websites, two of them owned by client 1
// and one pointing at a client that does not exist.
func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		fail:   make(map[string]int),
		bodies: make(map[string]map[string]any),
		clients: []*models.Client{
			{ID: 1, Name: "Acme", ContactEmail: "info@acme.it", IsActive: true},
			{ID: 2, Name: "Bottega Rossi", Description: "Artigiani", IsActive: true},
			{ID: 3, Name: "Caffè Nero", IsActive: false},
		},
		websites: []*models.Website{
			{ID: 10, Domain: "https://acme.it", Name: "Acme", ClientID: 1, IsActive: true, ScanFrequency: models.FrequencyWeekly, LastScanDate: tp(testNow.Add(-48 * time.Hour))},
			{ID: 11, Domain: "https://shop.acme.it", Name: "Acme Shop", ClientID: 1, IsActive: true, ScanFrequency: models.FrequencyDaily},
			{ID: 12, Domain: "https://rossi.it", Name: "Rossi", ClientID: 2, IsActive: true, ScanFrequency: models.FrequencyMonthly},
			{ID: 13, Domain: "https://nero.it", Name: "", ClientID: 3, IsActive: false},
			{ID: 14, Domain: "https://orfano.it", Name: "Orfano", ClientID: 99, IsActive: true},
		},
		scans: []*models.Scan{
			{ID: 1, WebsiteID: 10, Status: models.ScanStatusRunning, PagesFound: 40, PagesScanned: 10, CreatedAt: testNow.Add(-10 * time.Minute)},
			{ID: 2, WebsiteID: 11, Status: models.ScanStatusFailed, ErrorMessage: "timeout", CreatedAt: testNow.Add(-2 * time.Hour)},
			{ID: 3, WebsiteID: 10, Status: models.ScanStatusCompleted, SEOScore: score(82), TotalIssues: 12, CriticalIssuesCount: 2, CreatedAt: testNow.Add(-72 * time.Hour), CompletedAt: tp(testNow.Add(-71 * time.Hour))},
			{ID: 4, WebsiteID: 12, Status: models.ScanStatusCompleted, SEOScore: score(58), TotalIssues: 30, CriticalIssuesCount: 5, CreatedAt: testNow.Add(-20 * 24 * time.Hour)},
			{ID: 5, WebsiteID: 99, Status: models.ScanStatusPending, CreatedAt: testNow.Add(-time.Minute)},
		},
		schedules: []*models.Schedule{
			{ID: 7, WebsiteID: 10, Frequency: models.FrequencyDaily, Time: "03:00", IsActive: true},
			{ID: 8, WebsiteID: 12, Frequency: models.FrequencyWeekly, Time: "08:30", Day: intp(1), IsActive: false},
		},
		status: &models.SchedulerStatus{Running: true, ActiveSchedules: 1, QueuedScans: 4},
		registry: []*models.IssueDefinition{
			{IssueType: "missing_title", NameIT: "Titolo mancante", Category: "contenuto", Severity: models.SeverityCritical, Recommendations: []string{"Aggiungi un titolo"}},
			{IssueType: "slow_page", NameIT: "Pagina lenta", Category: "prestazioni", Severity: models.SeverityMedium},
			{IssueType: "missing_alt", NameIT: "Alt mancante", Category: "accessibilità", Severity: models.SeverityLow},
		},
		pages: []*models.Page{
			{ID: 100, ScanID: 3, URL: "https://acme.it/", StatusCode: 200, Title: "Home", IssuesCount: 2},
			{ID: 101, ScanID: 3, URL: "https://acme.it/chi-siamo", StatusCode: 200, Title: "Chi siamo", IssuesCount: 5},
			{ID: 102, ScanID: 3, URL: "https://acme.it/vecchia", StatusCode: 404, IssuesCount: 1},
		},
		issues: []*models.Issue{
			{ID: 1, ScanID: 3, IssueType: "missing_title", Page: "https://acme.it/vecchia"},
			{ID: 2, ScanID: 3, IssueType: "slow_page", Severity: models.SeverityMedium, Category: "prestazioni", Page: "https://acme.it/"},
			{ID: 3, ScanID: 3, IssueType: "missing_alt", Page: "https://acme.it/chi-siamo"},
			{ID: 4, ScanID: 3, IssueType: "unknown_check", Title: "Controllo sconosciuto", Severity: models.SeverityMinor, Page: "https://acme.it/"},
		},
	}
}

func intp(v int) *int { return &v }

func (fb *fakeBackend) record(r *http.Request) (int, bool) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")

	fb.mu.Lock()
	fb.calls = append(fb.calls, key)
	status, failing := fb.fail[key]
	hold := fb.hold
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		var body map[string]any
		if json.NewDecoder(r.Body).Decode(&body) == nil {
			fb.bodies[key] = body
		}
	}
	fb.mu.Unlock()

	if hold != nil && r.Method == http.MethodGet {
		<-hold
	}
	return status, failing
}

func (fb *fakeBackend) count(key string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (fb *fakeBackend) body(key string) map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[key]
}

func (fb *fakeBackend) failWith(key string, status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.fail[key] = status
}

func (fb *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status, failing := fb.record(r); failing {
				http.Error(w, `{"detail":"boom"}`, status)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/clients", fb.list(func() any { return fb.clients }))
		r.Get("/websites", fb.list(func() any { return fb.websites }))
		r.Get("/scans", fb.list(func() any { return fb.scans }))
		r.Get("/schedules", fb.list(func() any { return fb.schedules }))
		r.Get("/scheduler/status", fb.list(func() any { return fb.status }))
		r.Get("/issues/registry", fb.list(func() any { return fb.registry }))
		r.Get("/scans/{id}", func(w http.ResponseWriter, r *http.Request) {
			for _, s := range fb.scans {
				if fmt.Sprint(s.ID) == chi.URLParam(r, "id") {
					writeJSON(w, http.StatusOK, s)
					return
				}
			}
			http.NotFound(w, r)
		})
		r.Get("/scans/{id}/pages", fb.list(func() any { return fb.pages }))
		r.Get("/scans/{id}/issues", fb.list(func() any { return fb.issues }))
		r.Get("/scans/{id}/report", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="report-acme.pdf"`)
			_, _ = w.Write([]byte("%PDF-1.4"))
		})
		r.Post("/scheduler/purge", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]int{"purged": 4})
		})
		r.Post("/scheduler/{action}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		for _, res := range []string{"clients", "websites", "scans", "schedules"} {
			r.Post("/"+res, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusCreated, map[string]any{"id": 500})
			})
			r.Put("/"+res+"/{id}", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"id": 1})
			})
			r.Delete("/"+res+"/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			r.Post("/"+res+"/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		}
	})
	return r
}

func (fb *fakeBackend) list(get func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		v := get()
		fb.mu.Unlock()
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	deps    Deps
	backend *fakeBackend
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fb := newFakeBackend()
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	clock := clockwork.NewFakeClockAt(testNow)
	f := format.NewFormatter(time.UTC, clock)
	renderer, err := NewRenderer(f)
	require.NoError(t, err)

	store := state.New()
	api := apiclient.New(apiclient.Config{BaseURL: srv.URL})

	return &testEnv{
		deps: Deps{
			API:      api,
			Store:    store,
			Toasts:   notifications.NewService(notifications.Config{MaxToasts: 20}, nil, notifications.WithClock(clock)),
			Format:   f,
			Renderer: renderer,
			Loader:   NewLoader(api, store, nil),
			PerPage:  10,
		},
		backend: fb,
		clock:   clock,
	}
}

// lastToast returns the newest toast, or nil.
func (e *testEnv) lastToast() *notifications.Toast {
	active := e.deps.Toasts.Active()
	if len(active) == 0 {
		return nil
	}
	return active[0]
}
