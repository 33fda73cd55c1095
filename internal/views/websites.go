package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/format"
	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/table"
)

func frequencyValues() []string {
	out := make([]string, len(models.Frequencies))
	for i, f := range models.Frequencies {
		out[i] = string(f)
	}
	return out
}

var websiteRules = forms.Rules{
	"domain":         {Label: "Il dominio", Required: true, URL: true, MaxLength: 255},
	"name":           {Label: "Il nome", Required: true, MaxLength: 255},
	"client_id":      {Label: "Il cliente", Required: true, Integer: true},
	"scan_frequency": {Label: "La frequenza", OneOf: frequencyValues()},
	"description":    {Label: "La descrizione", MaxLength: 1000},
}

var websiteSpec = table.Spec[*models.Website]{
	SearchText: func(w *models.Website) []string {
		out := []string{w.Domain, w.Name}
		if w.Client != nil {
			out = append(out, w.Client.Name)
		}
		return out
	},
	Field: func(w *models.Website, name string) (string, bool) {
		switch name {
		case "client_id":
			return formatID(w.ClientID), true
		case "active":
			return strconv.FormatBool(w.IsActive), true
		case "frequency":
			return string(w.ScanFrequency), true
		}
		return "", false
	},
	Less: func(a, b *models.Website, key string) bool {
		switch key {
		case "domain":
			return less(a.Domain, b.Domain)
		case "last_scan":
			return lastScan(a).Before(lastScan(b))
		}
		return less(a.DisplayName(), b.DisplayName())
	},
	DefaultSort: "name",
}

func lastScan(w *models.Website) time.Time {
	if w.LastScanDate != nil {
		return *w.LastScanDate
	}
	return time.Time{}
}

type Websites struct {
	list
}

func NewWebsites(deps Deps) *Websites {
	return &Websites{list{name: "websites", filterKeys: []string{"search", "client_id", "active", "frequency"}, deps: deps.withDefaults()}}
}

func (m *Websites) Load(ctx context.Context) error {
	if err := m.deps.Loader.Load(ctx, ResWebsites, ResClients); err != nil {
		return m.loadFailed(err)
	}
	return nil
}

func (m *Websites) Rows() []*models.Website {
	return EnrichWebsites(websites(m.deps.Store), clients(m.deps.Store))
}

type websitesView struct {
	TableView[*models.Website]
	Clients []*models.Client
}

func (m *Websites) view() websitesView {
	return websitesView{
		TableView: apply(&m.list, m.Rows(), websiteSpec),
		Clients:   clients(m.deps.Store),
	}
}

func (m *Websites) Render(w io.Writer) error {
	return m.deps.Renderer.Render(w, "websites", m.view())
}

func (m *Websites) RenderTable(w io.Writer) error {
	return m.deps.Renderer.Render(w, "websites_table", m.view())
}

func (m *Websites) find(id int64) *models.Website {
	for _, site := range websites(m.deps.Store) {
		if site.ID == id {
			return site
		}
	}
	return nil
}

type websiteModal struct {
	*Form
	Clients     []*models.Client
	Frequencies []models.Frequency
}

func (m *Websites) RenderModal(w io.Writer, id string, form *Form) error {
	if form == nil {
		form = &Form{ID: id, Values: url.Values{}}
		form.Values.Set("is_active", "true")
		form.Values.Set("scan_frequency", string(models.FrequencyWeekly))
		if id != "" {
			websiteID, err := parseID(id)
			if err != nil {
				return err
			}
			site := m.find(websiteID)
			if site == nil {
				return fmt.Errorf("website %d: %w", websiteID, ErrNotFound)
			}
			form.Values.Set("domain", site.Domain)
			form.Values.Set("name", site.Name)
			form.Values.Set("client_id", formatID(site.ClientID))
			form.Values.Set("description", site.Description)
			form.Values.Set("is_active", strconv.FormatBool(site.IsActive))
			form.Values.Set("scan_frequency", string(site.ScanFrequency))
			m.deps.Store.SetSelected("website", websiteID)
		}
	}
	m.deps.Store.SetModal("website", true)
	return m.deps.Renderer.Render(w, "website_modal", websiteModal{
		Form:        form,
		Clients:     clients(m.deps.Store),
		Frequencies: models.Frequencies,
	})
}

func (m *Websites) Save(ctx context.Context, id string, values url.Values) error {
	if errs := forms.Validate(values, websiteRules); errs != nil {
		return m.invalid(errs)
	}

	clientID, _ := strconv.ParseInt(values.Get("client_id"), 10, 64)
	in := apiclient.WebsiteInput{
		Domain:        format.NormalizeURL(values.Get("domain")),
		Name:          strings.TrimSpace(values.Get("name")),
		ClientID:      clientID,
		Description:   strings.TrimSpace(values.Get("description")),
		IsActive:      checkbox(values.Get("is_active")),
		ScanFrequency: models.Frequency(values.Get("scan_frequency")),
	}

	save := func(ctx context.Context) error {
		_, err := m.deps.API.CreateWebsite(ctx, in)
		return err
	}
	action, success := "la creazione del sito", notifications.Created("Sito")
	if id != "" {
		websiteID, err := parseID(id)
		if err != nil {
			return err
		}
		save = func(ctx context.Context) error {
			_, err := m.deps.API.UpdateWebsite(ctx, websiteID, in)
			return err
		}
		action, success = "l'aggiornamento del sito", notifications.Updated("Sito")
	}

	return m.act(ctx, action, success, m.Load, func(ctx context.Context) error {
		if err := save(ctx); err != nil {
			return err
		}
		m.deps.Store.SetModal("website", false)
		return nil
	})
}

func (m *Websites) Delete(ctx context.Context, id string) error {
	websiteID, err := parseID(id)
	if err != nil {
		return err
	}
	return m.act(ctx, "l'eliminazione del sito", notifications.Removed("Sito"), m.Load, func(ctx context.Context) error {
		return m.deps.API.DeleteWebsite(ctx, websiteID)
	})
}

// StartScan queues a scan for the website and refreshes websites and scans.
func (m *Websites) StartScan(ctx context.Context, id string) error {
	websiteID, err := parseID(id)
	if err != nil {
		return err
	}
	reload := func(ctx context.Context) error {
		return m.deps.Loader.Load(ctx, ResWebsites, ResScans)
	}
	return m.act(ctx, "l'avvio della scansione", notifications.MsgScanStarted, reload, func(ctx context.Context) error {
		_, err := m.deps.API.CreateScan(ctx, apiclient.ScanInput{WebsiteID: websiteID})
		return err
	})
}
