package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoaudit/seoconsole/internal/models"
)

func TestScanResults_Open(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.deps.Loader.Load(ctx, ResClients, ResWebsites))

	m := NewScanResults(env.deps)
	require.NoError(t, m.Open(ctx, "3"))

	id, ok := env.deps.Store.Selected("scan")
	require.True(t, ok)
	assert.EqualValues(t, 3, id)
	assert.Equal(t, 1, env.backend.count("GET /issues/registry"))

	res := env.deps.Store.ScanResults()
	require.NotNil(t, res)
	require.NotNil(t, res.Scan.Website)
	assert.Equal(t, "Acme", res.Scan.Client.Name)

	byID := make(map[int64]*models.Issue)
	for _, i := range res.Issues {
		byID[i.ID] = i
	}
	assert.Equal(t, models.SeverityCritical, byID[1].Severity)
	assert.Equal(t, "contenuto", byID[1].Category)
	assert.Equal(t, "Titolo mancante", byID[1].Name())
	assert.Nil(t, byID[4].Definition)
	assert.Equal(t, "Controllo sconosciuto", byID[4].Name())

	assert.Equal(t, 4, res.Counts.Total)
	assert.Equal(t, 1, res.Counts.BySeverity[models.SeverityCritical])
	assert.Equal(t, 1, res.Counts.BySeverity[models.SeverityMinor])
	assert.Equal(t, map[string]int{"contenuto": 1, "prestazioni": 1, "accessibilità": 1}, res.Counts.ByCategory)
}

func TestScanResults_Tabs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := NewScanResults(env.deps)
	require.NoError(t, m.Open(ctx, "3"))

	v, err := m.view()
	require.NoError(t, err)
	var order []int64
	for _, i := range v.Issues.Rows {
		order = append(order, i.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, order)
	order = nil
	for _, p := range v.Pages.Rows {
		order = append(order, p.ID)
	}
	assert.Equal(t, []int64{101, 100, 102}, order)

	m.Issues.ApplyFilters(map[string]string{"category": "prestazioni"})
	m.Pages.ApplyFilters(map[string]string{"status_code": "404"})
	v, err = m.view()
	require.NoError(t, err)
	require.Len(t, v.Issues.Rows, 1)
	assert.EqualValues(t, 2, v.Issues.Rows[0].ID)
	require.Len(t, v.Pages.Rows, 1)
	assert.EqualValues(t, 102, v.Pages.Rows[0].ID)

	// refresh keeps tab filters, reopening clears them
	require.NoError(t, m.Load(ctx))
	assert.Equal(t, "prestazioni", env.deps.Store.Filter("scanIssues", "category"))
	require.NoError(t, m.Open(ctx, "3"))
	assert.Empty(t, env.deps.Store.Filter("scanIssues", "category"))
	assert.Empty(t, env.deps.Store.Filter("scanPages", "status_code"))
}

func TestScanResults_Render(t *testing.T) {
	env := newTestEnv(t)
	m := NewScanResults(env.deps)

	var buf bytes.Buffer
	assert.ErrorIs(t, m.Render(&buf), ErrNotFound)

	require.NoError(t, m.Open(context.Background(), "3"))
	doc := render(t, func(w *bytes.Buffer) error { return m.Render(w) })

	total, _ := doc.Find("[data-counts-total]").Attr("data-counts-total")
	assert.Equal(t, "4", total)
	assert.Equal(t, 4, doc.Find("#table-scanIssues tr[data-issue]").Length())
	assert.Contains(t, doc.Find(`tr[data-issue="missing_title"]`).Text(), "Aggiungi un titolo")
	assert.Equal(t, 3, doc.Find("#table-scanPages tbody tr").Length())
}

func TestScanResults_OpenFailure(t *testing.T) {
	env := newTestEnv(t)
	env.backend.failWith("GET /scans/3/issues", 500)
	m := NewScanResults(env.deps)

	require.Error(t, m.Open(context.Background(), "3"))
	assert.Nil(t, env.deps.Store.ScanResults())
	_, ok := env.deps.Store.Selected("scan")
	assert.False(t, ok)
	assert.Equal(t, "error", string(env.lastToast().Kind))
}
