package views

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoaudit/seoconsole/internal/notifications"
)

func loadedScans(t *testing.T) (*testEnv, *Scans) {
	t.Helper()
	env := newTestEnv(t)
	m := NewScans(env.deps)
	require.NoError(t, m.Load(context.Background()))
	return env, m
}

func TestScans_UnmatchedSearchShowsEmptyState(t *testing.T) {
	_, m := loadedScans(t)

	m.ApplyFilters(map[string]string{"search": "nessun-sito-del-genere"})
	doc := render(t, func(w *bytes.Buffer) error { return m.RenderTable(w) })

	assert.Equal(t, 1, doc.Find("[data-empty-state]").Length())
	assert.Equal(t, 0, doc.Find("tbody tr").Length())
	assert.Contains(t, doc.Find("[data-empty-state]").Text(), "Azzera filtri")
}

func TestScans_ActionsFollowStatus(t *testing.T) {
	_, m := loadedScans(t)
	doc := render(t, func(w *bytes.Buffer) error { return m.RenderTable(w) })

	running := doc.Find(`tr[data-scan="1"]`)
	require.Equal(t, 1, running.Length())
	assert.Equal(t, 1, running.Find(`[data-action="cancel"]`).Length())
	assert.Equal(t, 0, running.Find(`[data-action="retry"]`).Length())

	failed := doc.Find(`tr[data-scan="2"]`)
	require.Equal(t, 1, failed.Length())
	assert.Equal(t, 0, failed.Find(`[data-action="cancel"]`).Length())
	assert.Equal(t, 1, failed.Find(`[data-action="retry"]`).Length())

	completed := doc.Find(`tr[data-scan="3"]`)
	assert.Equal(t, 0, completed.Find(`[data-action="cancel"], [data-action="retry"]`).Length())
	assert.Equal(t, 1, completed.Find(`[data-action="report"]`).Length())
}

func TestScans_NewestFirstAndJoined(t *testing.T) {
	_, m := loadedScans(t)
	doc := render(t, func(w *bytes.Buffer) error { return m.RenderTable(w) })

	var ids []string
	doc.Find("tr[data-scan]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("data-scan")
		ids = append(ids, id)
	})
	assert.Equal(t, []string{"5", "1", "2", "3", "4"}, ids)

	// scan 5 points at a website that does not exist
	assert.Contains(t, doc.Find(`tr[data-scan="5"]`).Text(), "Sito #99")
	assert.Contains(t, doc.Find(`tr[data-scan="3"]`).Text(), "Acme")
}

func TestScans_Filters(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]string
		want    int
	}{
		{"status", map[string]string{"status": "completed"}, 2},
		{"client name", map[string]string{"search": "bottega"}, 1},
		{"today", map[string]string{"date": "today"}, 3},
		{"week", map[string]string{"date": "week"}, 4},
		{"month", map[string]string{"date": "month"}, 5},
		{"combined", map[string]string{"search": "acme", "status": "failed"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m := loadedScans(t)
			m.ApplyFilters(tt.filters)
			assert.Len(t, m.view().Rows, tt.want)
		})
	}
}

func TestScans_FilterChangeResetsPage(t *testing.T) {
	env, m := loadedScans(t)
	env.deps.PerPage = 2
	m.deps.PerPage = 2

	m.view()
	m.GoToPage(3)
	assert.Equal(t, 3, env.deps.Store.Pagination("scans").Page)

	assert.False(t, m.ApplyFilters(map[string]string{"search": ""}))
	assert.Equal(t, 3, env.deps.Store.Pagination("scans").Page)

	assert.True(t, m.ApplyFilters(map[string]string{"status": "completed"}))
	assert.Equal(t, 1, env.deps.Store.Pagination("scans").Page)

	m.GoToPage(99)
	v := m.view()
	assert.Equal(t, 1, v.Pagination.TotalPages)
	assert.Equal(t, 1, v.Pagination.Page)
}

func TestScans_RetryAndCancelGuards(t *testing.T) {
	env, m := loadedScans(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.Retry(ctx, "1"), ErrNotAllowed)
	assert.ErrorIs(t, m.Cancel(ctx, "2"), ErrNotAllowed)
	assert.Zero(t, env.backend.count("POST /scans/1/retry"))
	assert.Zero(t, env.backend.count("POST /scans/2/cancel"))

	require.NoError(t, m.Retry(ctx, "2"))
	assert.Equal(t, 1, env.backend.count("POST /scans/2/retry"))
	assert.Equal(t, notifications.MsgScanRetried, env.lastToast().Message)

	require.NoError(t, m.Cancel(ctx, "1"))
	assert.Equal(t, 1, env.backend.count("POST /scans/1/cancel"))
}

func TestScans_StartFromForm(t *testing.T) {
	env, m := loadedScans(t)
	ctx := context.Background()

	require.Error(t, m.Save(ctx, "", url.Values{}))
	assert.Zero(t, env.backend.count("POST /scans"))

	require.NoError(t, m.Save(ctx, "", url.Values{"website_id": {"12"}}))
	assert.Equal(t, 1, env.backend.count("POST /scans"))
	assert.EqualValues(t, 12, env.backend.body("POST /scans")["website_id"])

	assert.ErrorIs(t, m.Save(ctx, "3", url.Values{"website_id": {"12"}}), ErrNotAllowed)
}

func TestScans_Report(t *testing.T) {
	env, m := loadedScans(t)

	report, err := m.Report(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "report-acme.pdf", report.Filename)
	assert.Equal(t, []byte("%PDF-1.4"), report.Data)

	env.backend.failWith("GET /scans/4/report", 500)
	_, err = m.Report(context.Background(), "4")
	require.Error(t, err)
	assert.Equal(t, notifications.MsgReportFailed, env.lastToast().Message)
}
