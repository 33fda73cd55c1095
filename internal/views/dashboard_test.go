package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	fb := newFakeBackend()
	st := ComputeStats(fb.clients, fb.websites, fb.scans)

	assert.Equal(t, 3, st.Clients)
	assert.Equal(t, 5, st.Websites)
	assert.Equal(t, 4, st.ActiveWebsites)
	assert.Equal(t, 5, st.Scans)
	assert.Equal(t, 1, st.RunningScans)
	assert.Equal(t, 2, st.CompletedScans)
	assert.Equal(t, 1, st.FailedScans)
	assert.Equal(t, 7, st.CriticalIssues)
	require.NotNil(t, st.AverageScore)
	assert.InDelta(t, 70.0, *st.AverageScore, 0.001)

	empty := ComputeStats(nil, nil, nil)
	assert.Nil(t, empty.AverageScore)
}

func TestRecentScansAndNeverScanned(t *testing.T) {
	fb := newFakeBackend()

	recent := RecentScans(fb.scans, 3)
	require.Len(t, recent, 3)
	assert.EqualValues(t, []int64{5, 1, 2}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})
	assert.EqualValues(t, 1, fb.scans[0].ID, "source order is kept")

	never := NeverScanned(fb.websites, fb.scans)
	require.Len(t, never, 1)
	assert.EqualValues(t, 14, never[0].ID)
}

func TestDashboard_Render(t *testing.T) {
	env := newTestEnv(t)
	m := NewDashboard(env.deps)
	require.NoError(t, m.Load(context.Background()))

	doc := render(t, func(w *bytes.Buffer) error { return m.Render(w) })
	assert.Equal(t, 5, doc.Find("[data-recent-scans] tr[data-scan]").Length())
	assert.Contains(t, doc.Find(".stats").Text(), "70,0")
	assert.Contains(t, doc.Find(".never-scanned").Text(), "Orfano")
}
