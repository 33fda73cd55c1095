// Package views implements the console's feature modules. Each module loads
// its entities through the API client into the state store, joins related
// entities for display, applies the module's filters and pagination, and
// renders HTML fragments.
package views

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/format"
	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/state"
	"github.com/seoaudit/seoconsole/internal/table"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	ErrNotFound       = errors.New("not found")
	ErrNotAllowed     = errors.New("action not allowed in current state")
	ErrMalformedRules = errors.New("malformed escalation rules")
)

// Module is one section of the console.
type Module interface {
	Name() string
	Load(ctx context.Context) error
	Render(w io.Writer) error
}

// Lister is a module with a filterable, paginated table.
type Lister interface {
	Module
	ApplyFilters(filters map[string]string) bool
	GoToPage(page int)
	FilterKeys() []string
	RenderTable(w io.Writer) error
}

// Editor is a module whose entities are created, edited and deleted through a
// modal form. An empty id means a new entity.
type Editor interface {
	Module
	RenderModal(w io.Writer, id string, form *Form) error
	Save(ctx context.Context, id string, values url.Values) error
	Delete(ctx context.Context, id string) error
}

// Deps is what every module needs.
type Deps struct {
	API      *apiclient.Client
	Store    *state.Store
	Toasts   *notifications.Service
	Format   *format.Formatter
	Renderer *Renderer
	Loader   *Loader
	Logger   *slog.Logger
	PerPage  int
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.PerPage <= 0 {
		d.PerPage = table.DefaultPerPage
	}
	if d.Loader == nil {
		d.Loader = NewLoader(d.API, d.Store, d.Logger)
	}
	return d
}

// Renderer executes the embedded fragment templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer(f *format.Formatter) (*Renderer, error) {
	funcs := f.FuncMap()
	funcs["pageLinks"] = table.Links
	funcs["inc"] = func(n int) int { return n + 1 }

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// Form carries submitted values and their validation errors back into a modal.
type Form struct {
	ID     string
	Values url.Values
	Errors forms.Errors
}

func (f *Form) Get(field string) string {
	if f == nil || f.Values == nil {
		return ""
	}
	return f.Values.Get(field)
}

func (f *Form) Error(field string) string {
	if f == nil {
		return ""
	}
	return f.Errors[field]
}

func (f *Form) Checked(field string) bool {
	return checkbox(f.Get(field))
}

func (f *Form) IsNew() bool {
	return f == nil || f.ID == ""
}

func checkbox(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// TableView is the data handed to every *_table template.
type TableView[T any] struct {
	Module     string
	Rows       []T
	Pagination table.Pagination
	Filters    map[string]string
	Total      int

	// CreateLabel is the empty-state call to action; empty means none.
	CreateLabel string
}

var createLabels = map[string]string{
	"clients":   "Nuovo cliente",
	"websites":  "Nuovo sito",
	"scans":     "Nuova scansione",
	"scheduler": "Nuova pianificazione",
	"issues":    "Nuovo tipo di problema",
}

// Empty is true when filtering left nothing to show.
func (v TableView[T]) Empty() bool { return len(v.Rows) == 0 }

// Filtered is true when at least one filter is set.
func (v TableView[T]) Filtered() bool {
	for _, f := range v.Filters {
		if f != "" {
			return true
		}
	}
	return false
}

// list holds the filter, pagination and action plumbing shared by modules.
type list struct {
	name       string
	filterKeys []string
	deps       Deps
}

func (l *list) Name() string { return l.name }

func (l *list) FilterKeys() []string { return l.filterKeys }

// ApplyFilters stores the module's filters. Keys missing from filters are left
// alone. Any change sends the view back to page 1 and is reported.
func (l *list) ApplyFilters(filters map[string]string) bool {
	current := l.deps.Store.Filters(l.name)
	changed := false
	for _, key := range l.filterKeys {
		v, ok := filters[key]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if current[key] != v {
			l.deps.Store.SetFilter(l.name, key, v)
			changed = true
		}
	}
	if changed {
		l.deps.Store.SetPage(l.name, 1)
	}
	return changed
}

// reset clears every filter and returns to page 1.
func (l *list) reset() {
	current := l.deps.Store.Filters(l.name)
	for _, key := range l.filterKeys {
		if current[key] != "" {
			l.deps.Store.SetFilter(l.name, key, "")
		}
	}
	l.deps.Store.SetPage(l.name, 1)
}

// GoToPage clamps page against the last known total and stores it.
func (l *list) GoToPage(page int) {
	p := l.deps.Store.Pagination(l.name)
	clamped := table.Paginate(p.Total, l.deps.PerPage, page)
	l.deps.Store.SetPage(l.name, clamped.Page)
}

func (l *list) query() table.Query {
	filters := l.deps.Store.Filters(l.name)
	q := table.Query{
		Search:   filters["search"],
		Equals:   make(map[string]string),
		Range:    table.DateRange(filters["date"]),
		SortKey:  filters["sort"],
		SortDesc: filters["dir"] == "desc",
		Page:     l.deps.Store.Pagination(l.name).Page,
		PerPage:  l.deps.PerPage,
		Now:      l.deps.Format.Now(),
	}
	for k, v := range filters {
		switch k {
		case "search", "date", "sort", "dir":
		default:
			q.Equals[k] = v
		}
	}
	return q
}

// record writes the computed pagination back unless nothing moved.
func (l *list) record(p table.Pagination) {
	current := l.deps.Store.Pagination(l.name)
	next := state.Pagination{Page: p.Page, PerPage: p.PerPage, Total: p.Total}
	if current != next {
		l.deps.Store.SetPagination(l.name, next)
	}
}

func apply[T any](l *list, items []T, spec table.Spec[T]) TableView[T] {
	res := table.Apply(items, spec, l.query())
	l.record(res.Pagination)
	return TableView[T]{
		Module:      l.name,
		Rows:        res.Items,
		Pagination:  res.Pagination,
		Filters:     l.deps.Store.Filters(l.name),
		Total:       len(items),
		CreateLabel: createLabels[l.name],
	}
}

// loadFailed keeps the previous data and tells the user.
func (l *list) loadFailed(err error) error {
	l.deps.Logger.Warn("load failed", "module", l.name, "error", err)
	l.deps.Toasts.Error(notifications.MsgLoadFailed)
	return err
}

// act performs one mutating call, reports the outcome and reloads on success.
func (l *list) act(ctx context.Context, action, success string, reload func(context.Context) error, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		l.deps.Logger.Warn("action failed", "module", l.name, "action", action, "error", err)
		l.deps.Toasts.Error(notifications.Failed(action, err))
		return err
	}
	if success != "" {
		l.deps.Toasts.Success(success)
	}
	if reload != nil {
		_ = reload(ctx)
	}
	return nil
}

// invalid reports a form that failed validation. No request is made.
func (l *list) invalid(errs forms.Errors) error {
	l.deps.Toasts.Warning(notifications.MsgInvalidForm)
	return errs
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// less compares case-insensitively for name-like sort keys.
func less(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
