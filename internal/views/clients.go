package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/table"
)

var clientRules = forms.Rules{
	"name":          {Label: "Il nome", Required: true, MinLength: 2, MaxLength: 255},
	"contact_email": {Email: true, MaxLength: 255},
	"description":   {Label: "La descrizione", MaxLength: 1000},
}

var clientSpec = table.Spec[*models.Client]{
	SearchText: func(c *models.Client) []string {
		return []string{c.Name, c.ContactEmail, c.Description}
	},
	Field: func(c *models.Client, name string) (string, bool) {
		if name == "active" {
			return fmt.Sprint(c.IsActive), true
		}
		return "", false
	},
	Less: func(a, b *models.Client, key string) bool {
		if key == "websites" {
			return len(a.Websites) < len(b.Websites)
		}
		return less(a.Name, b.Name)
	},
	DefaultSort: "name",
}

type Clients struct {
	list
}

func NewClients(deps Deps) *Clients {
	return &Clients{list{name: "clients", filterKeys: []string{"search", "active"}, deps: deps.withDefaults()}}
}

func (m *Clients) Load(ctx context.Context) error {
	if err := m.deps.Loader.Load(ctx, ResClients, ResWebsites); err != nil {
		return m.loadFailed(err)
	}
	return nil
}

// Rows returns every client with its websites attached.
func (m *Clients) Rows() []*models.Client {
	return EnrichClients(clients(m.deps.Store), websites(m.deps.Store))
}

func (m *Clients) view() TableView[*models.Client] {
	return apply(&m.list, m.Rows(), clientSpec)
}

func (m *Clients) Render(w io.Writer) error {
	return m.deps.Renderer.Render(w, "clients", m.view())
}

func (m *Clients) RenderTable(w io.Writer) error {
	return m.deps.Renderer.Render(w, "clients_table", m.view())
}

func (m *Clients) find(id int64) *models.Client {
	for _, c := range clients(m.deps.Store) {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *Clients) RenderModal(w io.Writer, id string, form *Form) error {
	if form == nil {
		form = &Form{ID: id, Values: url.Values{}}
		if id != "" {
			clientID, err := parseID(id)
			if err != nil {
				return err
			}
			c := m.find(clientID)
			if c == nil {
				return fmt.Errorf("client %d: %w", clientID, ErrNotFound)
			}
			form.Values.Set("name", c.Name)
			form.Values.Set("contact_email", c.ContactEmail)
			form.Values.Set("description", c.Description)
			m.deps.Store.SetSelected("client", clientID)
		}
	}
	m.deps.Store.SetModal("client", true)
	return m.deps.Renderer.Render(w, "client_modal", form)
}

func (m *Clients) Save(ctx context.Context, id string, values url.Values) error {
	if errs := forms.Validate(values, clientRules); errs != nil {
		return m.invalid(errs)
	}

	in := apiclient.ClientInput{
		Name:         strings.TrimSpace(values.Get("name")),
		ContactEmail: strings.TrimSpace(values.Get("contact_email")),
		Description:  strings.TrimSpace(values.Get("description")),
	}

	if id == "" {
		return m.act(ctx, "la creazione del cliente", notifications.Created("Cliente"), m.Load, func(ctx context.Context) error {
			_, err := m.deps.API.CreateClient(ctx, in)
			if err == nil {
				m.deps.Store.SetModal("client", false)
			}
			return err
		})
	}

	clientID, err := parseID(id)
	if err != nil {
		return err
	}
	return m.act(ctx, "l'aggiornamento del cliente", notifications.Updated("Cliente"), m.Load, func(ctx context.Context) error {
		_, err := m.deps.API.UpdateClient(ctx, clientID, in)
		if err == nil {
			m.deps.Store.SetModal("client", false)
		}
		return err
	})
}

func (m *Clients) Delete(ctx context.Context, id string) error {
	clientID, err := parseID(id)
	if err != nil {
		return err
	}
	return m.act(ctx, "l'eliminazione del cliente", notifications.Removed("Cliente"), m.Load, func(ctx context.Context) error {
		err := m.deps.API.DeleteClient(ctx, clientID)
		if apiclient.IsNotFound(err) {
			return errors.New("cliente non trovato")
		}
		return err
	})
}
