package views

import (
	"context"
	"io"
	"sort"

	"github.com/seoaudit/seoconsole/internal/models"
)

const recentScansLimit = 5

// Stats are the dashboard's headline numbers.
type Stats struct {
	Clients        int
	Websites       int
	ActiveWebsites int
	Scans          int
	RunningScans   int
	CompletedScans int
	FailedScans    int
	AverageScore   *float64
	CriticalIssues int
	TotalIssues    int
}

// ComputeStats derives dashboard numbers. The average only counts completed
// scans that carry a score.
func ComputeStats(cs []*models.Client, ws []*models.Website, ss []*models.Scan) Stats {
	st := Stats{Clients: len(cs), Websites: len(ws), Scans: len(ss)}

	for _, w := range ws {
		if w.IsActive {
			st.ActiveWebsites++
		}
	}

	var sum float64
	var scored int
	for _, s := range ss {
		switch s.Status {
		case models.ScanStatusRunning:
			st.RunningScans++
		case models.ScanStatusFailed:
			st.FailedScans++
		case models.ScanStatusCompleted:
			st.CompletedScans++
			if s.SEOScore != nil {
				sum += *s.SEOScore
				scored++
			}
		}
		st.CriticalIssues += s.CriticalIssuesCount
		st.TotalIssues += s.TotalIssues
	}
	if scored > 0 {
		avg := sum / float64(scored)
		st.AverageScore = &avg
	}
	return st
}

// RecentScans returns up to n scans, newest first.
func RecentScans(ss []*models.Scan, n int) []*models.Scan {
	out := make([]*models.Scan, len(ss))
	copy(out, ss)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// NeverScanned lists active websites with no scan on record.
func NeverScanned(ws []*models.Website, ss []*models.Scan) []*models.Website {
	scanned := make(map[int64]bool, len(ss))
	for _, s := range ss {
		scanned[s.WebsiteID] = true
	}
	var out []*models.Website
	for _, w := range ws {
		if w.IsActive && w.LastScanDate == nil && !scanned[w.ID] {
			out = append(out, w)
		}
	}
	return out
}

type Dashboard struct {
	list
}

func NewDashboard(deps Deps) *Dashboard {
	return &Dashboard{list{name: "dashboard", deps: deps.withDefaults()}}
}

func (m *Dashboard) Load(ctx context.Context) error {
	if err := m.deps.Loader.Load(ctx, ResClients, ResWebsites, ResScans, ResSchedulerStatus); err != nil {
		return m.loadFailed(err)
	}
	return nil
}

type dashboardView struct {
	Stats        Stats
	RecentScans  []*models.Scan
	NeverScanned []*models.Website
	Scheduler    *models.SchedulerStatus
}

func (m *Dashboard) view() dashboardView {
	cs, ws, ss := clients(m.deps.Store), websites(m.deps.Store), scans(m.deps.Store)
	return dashboardView{
		Stats:        ComputeStats(cs, ws, ss),
		RecentScans:  RecentScans(EnrichScans(ss, ws, cs), recentScansLimit),
		NeverScanned: NeverScanned(EnrichWebsites(ws, cs), ss),
		Scheduler:    schedulerStatus(m.deps.Store),
	}
}

func (m *Dashboard) Render(w io.Writer) error {
	return m.deps.Renderer.Render(w, "dashboard", m.view())
}
