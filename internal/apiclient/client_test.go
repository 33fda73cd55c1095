package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoaudit/seoconsole/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL: srv.URL,
		Headers: map[string]string{"X-Tenant": "acme"},
	}), srv
}

func TestClient_URL(t *testing.T) {
	c := New(Config{BaseURL: "http://seo.local/", BasePath: "api/v1/"})

	tests := []struct {
		endpoint string
		expected string
	}{
		{"/clients", "http://seo.local/api/v1/clients"},
		{"clients/3", "http://seo.local/api/v1/clients/3"},
		{"https://cdn.example.com/report.pdf", "https://cdn.example.com/report.pdf"},
		{"http://other/x", "http://other/x"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.URL(tt.endpoint))
		})
	}
}

func TestClient_RequestHeadersAndBody(t *testing.T) {
	var got struct {
		method  string
		path    string
		tenant  string
		trace   string
		reqID   string
		payload ClientInput
	}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.tenant = r.Header.Get("X-Tenant")
		got.trace = r.Header.Get("X-Trace")
		got.reqID = r.Header.Get(RequestIDHeader)
		_ = json.NewDecoder(r.Body).Decode(&got.payload)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"id": 7, "name": "Acme"}`))
	})

	resp, err := c.Request(context.Background(), http.MethodPost, "/clients",
		ClientInput{Name: "Acme"}, WithHeader("X-Trace", "t1"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v1/clients", got.path)
	assert.Equal(t, "acme", got.tenant)
	assert.Equal(t, "t1", got.trace)
	assert.NotEmpty(t, got.reqID)
	assert.Equal(t, "Acme", got.payload.Name)

	assert.Equal(t, KindJSON, resp.Kind)
	var client models.Client
	require.NoError(t, resp.Decode("client", &client))
	assert.Equal(t, int64(7), client.ID)
}

func TestClient_GetSendsNoBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Empty(t, data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Request(context.Background(), http.MethodGet, "/clients", map[string]string{"ignored": "x"})
	require.NoError(t, err)
}

func TestClient_HTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := c.GetClient(context.Background(), 42)
	require.Error(t, err)

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
	assert.Equal(t, "Not Found", he.Status)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, StatusCode(errors.New("other")))
}

func TestClient_ResponseKinds(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		kind        ResponseKind
	}{
		{"json", "application/json", `{"a":1}`, KindJSON},
		{"problem json", "application/problem+json", `{"a":1}`, KindJSON},
		{"pdf", "application/pdf", "%PDF-1.4", KindBlob},
		{"octet", "application/octet-stream", "\x00\x01", KindBlob},
		{"text", "text/plain", "ok", KindText},
		{"empty", "application/json", "", KindEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := c.Request(context.Background(), http.MethodGet, "/x", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestClient_DecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})

	_, err := c.ListWebsites(context.Background())
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "websites", de.Resource)
}

func TestClient_ScanReport(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scans/5/report", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="example.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	report, err := c.ScanReport(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "example.pdf", report.Filename)
	assert.Equal(t, []byte("%PDF-1.4"), report.Data)
}

func TestClient_ScanReportDefaultFilename(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	})

	report, err := c.ScanReport(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "seo-report-9.pdf", report.Filename)
}

func TestClient_ListScansQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("website_id"))
		assert.Equal(t, "failed", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"website_id":3,"status":"failed"}]`))
	})

	scans, err := c.ListScans(context.Background(), ScanListOptions{WebsiteID: 3, Status: models.ScanStatusFailed})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.True(t, scans[0].CanRetry())
}

func TestClient_MutationsWithoutBody(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()
	require.NoError(t, c.RetryScan(ctx, 1))
	require.NoError(t, c.CancelScan(ctx, 2))
	require.NoError(t, c.PauseSchedule(ctx, 3))
	require.NoError(t, c.ResumeSchedule(ctx, 3))
	require.NoError(t, c.RunScheduleNow(ctx, 3))
	require.NoError(t, c.DeleteClient(ctx, 4))
	require.NoError(t, c.StartScheduler(ctx))

	assert.Equal(t, []string{
		"POST /api/v1/scans/1/retry",
		"POST /api/v1/scans/2/cancel",
		"POST /api/v1/schedules/3/pause",
		"POST /api/v1/schedules/3/resume",
		"POST /api/v1/schedules/3/run",
		"DELETE /api/v1/clients/4",
		"POST /api/v1/scheduler/start",
	}, paths)
}

func TestClient_IssueRegistryShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"list", `[{"issue_type":"missing_title","severity":"high"},{"issue_type":"broken_link","severity":"critical"}]`},
		{"keyed", `{"missing_title":{"severity":"high"},"broken_link":{"severity":"critical"}}`},
		{"list with null", `[{"issue_type":"missing_title","severity":"high"},null,{"issue_type":"broken_link","severity":"critical"}]`},
		{"keyed with null", `{"missing_title":{"severity":"high"},"gone":null,"broken_link":{"severity":"critical"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			defs, err := c.IssueRegistry(context.Background())
			require.NoError(t, err)
			require.Len(t, defs, 2)
			assert.Equal(t, "broken_link", defs[0].IssueType)
			assert.Equal(t, models.SeverityCritical, defs[0].Severity)
			assert.Equal(t, "missing_title", defs[1].IssueType)
		})
	}
}

func TestClient_ListsDropNullElements(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/clients":
			_, _ = w.Write([]byte(`[null,{"id":1,"name":"Acme"},null]`))
		case "/api/v1/scans":
			_, _ = w.Write([]byte(`[{"id":3,"status":"completed"},null]`))
		default:
			_, _ = w.Write([]byte(`null`))
		}
	})
	ctx := context.Background()

	clients, err := c.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Acme", clients[0].Name)

	scans, err := c.ListScans(ctx, ScanListOptions{})
	require.NoError(t, err)
	require.Len(t, scans, 1)

	websites, err := c.ListWebsites(ctx)
	require.NoError(t, err)
	assert.Empty(t, websites)
}
