package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/app"
	"github.com/seoaudit/seoconsole/internal/format"
	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/views"
)

// Fragment responses name their swap target in X-Target. X-Close-Modal asks
// the page to close the open modal.
const (
	headerTarget     = "X-Target"
	headerCloseModal = "X-Close-Modal"

	targetContent    = "#content"
	targetModal      = "#modal"
	targetModalAlert = "#modal-alert"
	targetToasts     = "#toasts"
)

func tableTarget(module string) string {
	return "#table-" + module
}

// fragment renders into a buffer first so a failing template never leaves a
// half-written response.
func (s *Server) fragment(w http.ResponseWriter, r *http.Request, status int, target string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(headerTarget, target)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// reported tells whether the failing module already pushed a toast for err.
func reported(err error) bool {
	var httpErr *apiclient.HTTPError
	var decodeErr *apiclient.DecodeError
	var urlErr *url.Error
	return errors.As(err, &httpErr) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &urlErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// fail maps an error onto a status. Anything no module reported becomes the
// generic toast.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, views.ErrNotFound), errors.Is(err, app.ErrUnknownSection):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, views.ErrNotAllowed):
		http.Error(w, err.Error(), http.StatusConflict)
	case reported(err):
		s.logger.Debug("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		s.app.HandleUnexpected(err)
		http.Error(w, notifications.MsgUnexpected, http.StatusInternalServerError)
	}
}

func (s *Server) renderSection(w http.ResponseWriter, r *http.Request, m views.Module) {
	s.fragment(w, r, http.StatusOK, targetContent, m.Render)
}

func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, l views.Lister) {
	s.fragment(w, r, http.StatusOK, tableTarget(l.Name()), l.RenderTable)
}

// renderCurrent re-renders the visible section from the store.
func (s *Server) renderCurrent(w http.ResponseWriter, r *http.Request) {
	m, ok := s.app.Module(s.app.Current())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.renderSection(w, r, m)
}

// afterChange answers a mutation of module: its table when it is the visible
// section, the whole visible section otherwise.
func (s *Server) afterChange(w http.ResponseWriter, r *http.Request, module string) {
	if s.app.Current() == module {
		if l, ok := s.app.Lister(module); ok {
			s.renderTable(w, r, l)
			return
		}
	}
	s.renderCurrent(w, r)
}

func (s *Server) serveLayout(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.layout.Execute(&buf, layoutData{
		Section:    s.app.Current(),
		DebounceMS: s.cfg.UI.Debounce.Milliseconds(),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// showSection switches section and loads it. With cached=1 it only renders
// what the store already holds.
func (s *Server) showSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")

	if r.URL.Query().Get("cached") == "1" {
		m, ok := s.app.Module(section)
		if !ok {
			s.fail(w, r, app.ErrUnknownSection)
			return
		}
		s.renderSection(w, r, m)
		return
	}

	m, err := s.app.Show(r.Context(), section)
	if errors.Is(err, app.ErrUnknownSection) {
		s.fail(w, r, err)
		return
	}
	// a failed load already left a toast; render what we have
	s.renderSection(w, r, m)
}

func (s *Server) table(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := s.app.Lister(name)
		if !ok {
			s.fail(w, r, views.ErrNotFound)
			return
		}

		q := r.URL.Query()
		filters := make(map[string]string)
		for _, key := range l.FilterKeys() {
			if q.Get("clear") == "1" {
				filters[key] = ""
			} else if q.Has(key) {
				filters[key] = q.Get(key)
			}
		}

		changed := l.ApplyFilters(filters)
		if page, err := strconv.Atoi(q.Get("page")); err == nil && !changed {
			l.GoToPage(page)
		}

		s.renderTable(w, r, l)
	}
}

func (s *Server) modal(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, ok := s.app.Editor(name)
		if !ok {
			s.fail(w, r, views.ErrNotFound)
			return
		}
		id := chi.URLParam(r, "id")
		s.fragment(w, r, http.StatusOK, targetModal, func(w io.Writer) error {
			return ed.RenderModal(w, id, nil)
		})
	}
}

func (s *Server) save(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, ok := s.app.Editor(name)
		if !ok {
			s.fail(w, r, views.ErrNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id := chi.URLParam(r, "id")
		err := ed.Save(r.Context(), id, r.PostForm)

		var errs forms.Errors
		switch {
		case errors.As(err, &errs):
			form := &views.Form{ID: id, Values: r.PostForm, Errors: errs}
			s.fragment(w, r, http.StatusUnprocessableEntity, targetModal, func(w io.Writer) error {
				return ed.RenderModal(w, id, form)
			})
		case errors.Is(err, views.ErrMalformedRules):
			s.fragment(w, r, http.StatusUnprocessableEntity, targetModalAlert, func(w io.Writer) error {
				return s.app.Renderer().Render(w, "alert", notifications.MsgInvalidJSON)
			})
		case err != nil:
			s.fail(w, r, err)
		default:
			w.Header().Set(headerCloseModal, "true")
			s.afterChange(w, r, name)
		}
	}
}

func (s *Server) remove(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, ok := s.app.Editor(name)
		if !ok {
			s.fail(w, r, views.ErrNotFound)
			return
		}
		if err := ed.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.fail(w, r, err)
			return
		}
		s.afterChange(w, r, name)
	}
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Websites.StartScan(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.afterChange(w, r, app.SectionWebsites)
}

func (s *Server) scanAction(action func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.fail(w, r, err)
			return
		}
		s.afterChange(w, r, app.SectionScans)
	}
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.app.Scans.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	contentType := report.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", format.AttachmentDisposition(report.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Data)
}

func (s *Server) openResults(w http.ResponseWriter, r *http.Request) {
	if err := s.app.OpenResults(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderSection(w, r, s.app.Results)
}

func (s *Server) scheduleAction(action func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.fail(w, r, err)
			return
		}
		s.afterChange(w, r, app.SectionScheduler)
	}
}

// controlScheduler re-renders the whole section since the status block sits
// outside the table.
func (s *Server) controlScheduler(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Schedules.Control(r.Context(), chi.URLParam(r, "command")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderCurrent(w, r)
}

func (s *Server) shortcut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	section, err := s.app.Dispatch(r.Context(), key)
	if errors.Is(err, app.ErrUnknownSection) {
		s.fail(w, r, err)
		return
	}

	if section == "" {
		if key == "Escape" {
			w.Header().Set(headerCloseModal, "true")
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	m, _ := s.app.Module(section)
	s.renderSection(w, r, m)
}

func (s *Server) listToasts(w http.ResponseWriter, r *http.Request) {
	s.renderToasts(w, r)
}

func (s *Server) dismissToast(w http.ResponseWriter, r *http.Request) {
	s.app.Toasts().Dismiss(chi.URLParam(r, "toastID"))
	s.renderToasts(w, r)
}

func (s *Server) renderToasts(w http.ResponseWriter, r *http.Request) {
	active := s.app.Toasts().Active()
	s.fragment(w, r, http.StatusOK, targetToasts, func(w io.Writer) error {
		return s.app.Renderer().Render(w, "toasts", active)
	})
}
