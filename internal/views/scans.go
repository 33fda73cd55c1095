package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/table"
)

var scanRules = forms.Rules{
	"website_id": {Label: "Il sito", Required: true, Integer: true},
}

func scoreOf(s *models.Scan) float64 {
	if s.SEOScore == nil {
		return -1
	}
	return *s.SEOScore
}

var scanSpec = table.Spec[*models.Scan]{
	SearchText: func(s *models.Scan) []string {
		var out []string
		if s.Website != nil {
			out = append(out, s.Website.Domain, s.Website.Name)
		}
		if s.Client != nil {
			out = append(out, s.Client.Name)
		}
		return out
	},
	Field: func(s *models.Scan, name string) (string, bool) {
		switch name {
		case "status":
			return string(s.Status), true
		case "website_id":
			return formatID(s.WebsiteID), true
		}
		return "", false
	},
	Date: func(s *models.Scan) time.Time { return s.CreatedAt },
	Less: func(a, b *models.Scan, key string) bool {
		switch key {
		case "score":
			return scoreOf(a) < scoreOf(b)
		case "issues":
			return a.TotalIssues < b.TotalIssues
		}
		return a.CreatedAt.Before(b.CreatedAt)
	},
	DefaultSort: "created",
	DefaultDesc: true,
}

type Scans struct {
	list
}

func NewScans(deps Deps) *Scans {
	return &Scans{list{name: "scans", filterKeys: []string{"search", "status", "date", "website_id"}, deps: deps.withDefaults()}}
}

func (m *Scans) Load(ctx context.Context) error {
	if err := m.deps.Loader.Load(ctx, ResScans, ResWebsites, ResClients); err != nil {
		return m.loadFailed(err)
	}
	return nil
}

func (m *Scans) Rows() []*models.Scan {
	return EnrichScans(scans(m.deps.Store), websites(m.deps.Store), clients(m.deps.Store))
}

type scansView struct {
	TableView[*models.Scan]
	Statuses []models.ScanStatus
}

func (m *Scans) view() scansView {
	return scansView{
		TableView: apply(&m.list, m.Rows(), scanSpec),
		Statuses:  models.ScanStatuses,
	}
}

func (m *Scans) Render(w io.Writer) error {
	return m.deps.Renderer.Render(w, "scans", m.view())
}

func (m *Scans) RenderTable(w io.Writer) error {
	return m.deps.Renderer.Render(w, "scans_table", m.view())
}

func (m *Scans) find(id int64) *models.Scan {
	for _, s := range scans(m.deps.Store) {
		if s.ID == id {
			return s
		}
	}
	return nil
}

type scanModal struct {
	*Form
	Websites []*models.Website
}

// RenderModal shows the start-scan form. Scans are never edited.
func (m *Scans) RenderModal(w io.Writer, id string, form *Form) error {
	if id != "" {
		return fmt.Errorf("%w: scans cannot be edited", ErrNotAllowed)
	}
	if form == nil {
		form = &Form{Values: url.Values{}}
	}
	m.deps.Store.SetModal("scan", true)
	return m.deps.Renderer.Render(w, "scan_modal", scanModal{
		Form:     form,
		Websites: EnrichWebsites(websites(m.deps.Store), clients(m.deps.Store)),
	})
}

// Save starts a scan for the submitted website.
func (m *Scans) Save(ctx context.Context, id string, values url.Values) error {
	if id != "" {
		return fmt.Errorf("%w: scans cannot be edited", ErrNotAllowed)
	}
	if errs := forms.Validate(values, scanRules); errs != nil {
		return m.invalid(errs)
	}
	websiteID, _ := strconv.ParseInt(values.Get("website_id"), 10, 64)
	return m.Start(ctx, websiteID)
}

func (m *Scans) Start(ctx context.Context, websiteID int64) error {
	return m.act(ctx, "l'avvio della scansione", notifications.MsgScanStarted, m.Load, func(ctx context.Context) error {
		if _, err := m.deps.API.CreateScan(ctx, apiclient.ScanInput{WebsiteID: websiteID}); err != nil {
			return err
		}
		m.deps.Store.SetModal("scan", false)
		return nil
	})
}

// guard rejects actions the scan's last known status does not offer. Unknown
// scans are left to the backend.
func (m *Scans) guard(id int64, allowed func(*models.Scan) bool) error {
	if s := m.find(id); s != nil && !allowed(s) {
		m.deps.Toasts.Warning(fmt.Sprintf("Azione non disponibile per una scansione %s", s.Status))
		return fmt.Errorf("scan %d is %s: %w", id, s.Status, ErrNotAllowed)
	}
	return nil
}

func (m *Scans) Retry(ctx context.Context, id string) error {
	scanID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := m.guard(scanID, (*models.Scan).CanRetry); err != nil {
		return err
	}
	return m.act(ctx, "il riavvio della scansione", notifications.MsgScanRetried, m.Load, func(ctx context.Context) error {
		return m.deps.API.RetryScan(ctx, scanID)
	})
}

func (m *Scans) Cancel(ctx context.Context, id string) error {
	scanID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := m.guard(scanID, (*models.Scan).CanCancel); err != nil {
		return err
	}
	return m.act(ctx, "l'annullamento della scansione", notifications.MsgScanCancelled, m.Load, func(ctx context.Context) error {
		return m.deps.API.CancelScan(ctx, scanID)
	})
}

func (m *Scans) Delete(ctx context.Context, id string) error {
	scanID, err := parseID(id)
	if err != nil {
		return err
	}
	return m.act(ctx, "l'eliminazione della scansione", notifications.MsgScanDeleted, m.Load, func(ctx context.Context) error {
		return m.deps.API.DeleteScan(ctx, scanID)
	})
}

// Report fetches the PDF report. Failures are toasted; nothing is reloaded.
func (m *Scans) Report(ctx context.Context, id string) (*apiclient.Report, error) {
	scanID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	report, err := m.deps.API.ScanReport(ctx, scanID)
	if err != nil {
		m.deps.Logger.Warn("report download failed", "scan_id", scanID, "error", err)
		m.deps.Toasts.Error(notifications.MsgReportFailed)
		return nil, err
	}
	return report, nil
}
