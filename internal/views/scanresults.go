package views

import (
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/table"
)

var issueSpec = table.Spec[*models.Issue]{
	SearchText: func(i *models.Issue) []string {
		out := []string{i.Name(), i.IssueType, i.Description, i.Page}
		if i.Definition != nil {
			out = append(out, i.Definition.DescriptionIT)
		}
		return out
	},
	Field: func(i *models.Issue, name string) (string, bool) {
		switch name {
		case "severity":
			return string(i.Severity), true
		case "category":
			return i.Category, true
		}
		return "", false
	},
	Less: func(a, b *models.Issue, key string) bool {
		if key == "page" {
			return a.Page < b.Page
		}
		return a.Severity.Rank() < b.Severity.Rank()
	},
	DefaultSort: "severity",
}

var pageSpec = table.Spec[*models.Page]{
	SearchText: func(p *models.Page) []string { return []string{p.URL, p.Title} },
	Field: func(p *models.Page, name string) (string, bool) {
		if name == "status_code" {
			return fmt.Sprint(p.StatusCode), true
		}
		return "", false
	},
	Less: func(a, b *models.Page, key string) bool {
		switch key {
		case "url":
			return a.URL < b.URL
		case "response_time":
			return a.ResponseTime < b.ResponseTime
		}
		return a.IssuesCount < b.IssuesCount
	},
	DefaultSort: "issues",
	DefaultDesc: true,
}

// ScanResults shows one scan's pages and issues. Its two tabs are listers of
// their own so each keeps separate filters and pagination.
type ScanResults struct {
	list
	Issues *ScanIssues
	Pages  *ScanPages
}

type ScanIssues struct{ list }

type ScanPages struct{ list }

func NewScanResults(deps Deps) *ScanResults {
	deps = deps.withDefaults()
	return &ScanResults{
		list:   list{name: "scanResults", deps: deps},
		Issues: &ScanIssues{list{name: "scanIssues", filterKeys: []string{"search", "severity", "category"}, deps: deps}},
		Pages:  &ScanPages{list{name: "scanPages", filterKeys: []string{"search", "status_code"}, deps: deps}},
	}
}

// Open loads a scan with its pages and issues and makes it the current
// results, starting both tabs unfiltered on page 1.
func (m *ScanResults) Open(ctx context.Context, id string) error {
	scanID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := m.fetch(ctx, scanID); err != nil {
		return err
	}
	m.Issues.reset()
	m.Pages.reset()
	return nil
}

// Load refreshes the currently open scan, if any, keeping tab filters.
func (m *ScanResults) Load(ctx context.Context) error {
	id, ok := m.deps.Store.Selected("scan")
	if !ok {
		return nil
	}
	return m.fetch(ctx, id)
}

func (m *ScanResults) fetch(ctx context.Context, scanID int64) error {
	res := &models.ScanResults{ScanID: scanID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scan, err := m.deps.API.GetScan(gctx, scanID)
		res.Scan = scan
		return err
	})
	g.Go(func() error {
		pages, err := m.deps.API.ScanPages(gctx, scanID)
		res.Pages = pages
		return err
	})
	g.Go(func() error {
		issues, err := m.deps.API.ScanIssues(gctx, scanID)
		res.Issues = issues
		return err
	})
	if definitions(m.deps.Store) == nil {
		g.Go(func() error {
			return m.deps.Loader.Load(gctx, ResIssueRegistry)
		})
	}
	if err := g.Wait(); err != nil {
		return m.loadFailed(err)
	}

	res.Scan = EnrichScans([]*models.Scan{res.Scan}, websites(m.deps.Store), clients(m.deps.Store))[0]
	res.Issues = EnrichIssues(res.Issues, definitions(m.deps.Store))
	res.Counts = models.CountIssues(res.Issues)

	m.deps.Store.SetSelected("scan", scanID)
	m.deps.Store.SetScanResults(res)
	return nil
}

// SeverityCount is one bar of the severity breakdown.
type SeverityCount struct {
	Severity models.Severity
	Count    int
}

type CategoryCount struct {
	Category string
	Count    int
}

type scanResultsView struct {
	Results    *models.ScanResults
	Severities []SeverityCount
	Categories []CategoryCount
	Issues     TableView[*models.Issue]
	Pages      TableView[*models.Page]
}

func (m *ScanResults) view() (scanResultsView, error) {
	res := m.deps.Store.ScanResults()
	if res == nil {
		return scanResultsView{}, fmt.Errorf("scan results: %w", ErrNotFound)
	}

	v := scanResultsView{
		Results: res,
		Issues:  m.Issues.view(res),
		Pages:   m.Pages.view(res),
	}
	for _, s := range models.Severities {
		v.Severities = append(v.Severities, SeverityCount{Severity: s, Count: res.Counts.BySeverity[s]})
	}
	for c, n := range res.Counts.ByCategory {
		v.Categories = append(v.Categories, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(v.Categories, func(i, j int) bool {
		if v.Categories[i].Count != v.Categories[j].Count {
			return v.Categories[i].Count > v.Categories[j].Count
		}
		return v.Categories[i].Category < v.Categories[j].Category
	})
	return v, nil
}

func (m *ScanResults) Render(w io.Writer) error {
	v, err := m.view()
	if err != nil {
		return err
	}
	return m.deps.Renderer.Render(w, "scan_results", v)
}

func (m *ScanIssues) view(res *models.ScanResults) TableView[*models.Issue] {
	return apply(&m.list, res.Issues, issueSpec)
}

func (m *ScanIssues) Load(ctx context.Context) error { return nil }

func (m *ScanIssues) Render(w io.Writer) error { return m.RenderTable(w) }

func (m *ScanIssues) RenderTable(w io.Writer) error {
	res := m.deps.Store.ScanResults()
	if res == nil {
		return fmt.Errorf("scan results: %w", ErrNotFound)
	}
	return m.deps.Renderer.Render(w, "scan_issues_table", m.view(res))
}

func (m *ScanPages) view(res *models.ScanResults) TableView[*models.Page] {
	return apply(&m.list, res.Pages, pageSpec)
}

func (m *ScanPages) Load(ctx context.Context) error { return nil }

func (m *ScanPages) Render(w io.Writer) error { return m.RenderTable(w) }

func (m *ScanPages) RenderTable(w io.Writer) error {
	res := m.deps.Store.ScanResults()
	if res == nil {
		return fmt.Errorf("scan results: %w", ErrNotFound)
	}
	return m.deps.Renderer.Render(w, "scan_pages_table", m.view(res))
}
