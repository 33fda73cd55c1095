package state

import (
	"github.com/seoaudit/seoconsole/internal/models"
)

// Path roots and keys used by the typed accessors.
const (
	PathCurrentSection = "ui.currentSection"
	PathLoading        = "ui.loading"
	PathFilters        = "ui.filters"
	PathPagination     = "ui.pagination"
	PathModals         = "ui.modals"
	PathData           = "data"
	PathSelected       = "selected"
	PathScanResults    = "data.scanResults"
)

func join(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}

func DataPath(name string) string { return join(PathData, name) }
func LoadingPath(name string) string { return join(PathLoading, name) }
func FiltersPath(module string) string { return join(PathFilters, module) }
func PaginationPath(module string) string { return join(PathPagination, module) }
func ModalPath(name string) string { return join(PathModals, name) }
func SelectedPath(entity string) string { return join(PathSelected, entity) }

func (s *Store) SetLoading(name string, loading bool) {
	s.Set(LoadingPath(name), loading)
}

func (s *Store) IsLoading(name string) bool {
	v, _ := s.Get(LoadingPath(name))
	b, _ := v.(bool)
	return b
}

func (s *Store) SetCurrentSection(section string) {
	s.Set(PathCurrentSection, section)
}

func (s *Store) CurrentSection() string {
	v, _ := s.Get(PathCurrentSection)
	str, _ := v.(string)
	return str
}

// SetData replaces the named data set wholesale.
func SetData[T any](s *Store, name string, items []T) {
	s.Set(DataPath(name), items)
}

// Data returns the named data set, or nil when it is missing or holds a
// different element type.
func Data[T any](s *Store, name string) []T {
	v, _ := s.Get(DataPath(name))
	items, _ := v.([]T)
	return items
}

func (s *Store) SetFilter(module, name, value string) {
	s.Set(join(FiltersPath(module), name), value)
}

func (s *Store) Filter(module, name string) string {
	v, _ := s.Get(join(FiltersPath(module), name))
	str, _ := v.(string)
	return str
}

// Filters returns a copy of every string filter set for module.
func (s *Store) Filters(module string) map[string]string {
	out := make(map[string]string)
	v, _ := s.Get(FiltersPath(module))
	m, _ := v.(map[string]any)
	for k, val := range m {
		if str, ok := val.(string); ok {
			out[k] = str
		}
	}
	return out
}

type Pagination struct {
	Page    int
	PerPage int
	Total   int
}

// SetPagination merges p into the module's pagination in a single write.
func (s *Store) SetPagination(module string, p Pagination) {
	s.Update(PaginationPath(module), map[string]any{
		"page":    p.Page,
		"perPage": p.PerPage,
		"total":   p.Total,
	})
}

// SetPage only moves the current page; perPage and total are kept.
func (s *Store) SetPage(module string, page int) {
	s.Update(PaginationPath(module), map[string]any{"page": page})
}

func (s *Store) Pagination(module string) Pagination {
	v, _ := s.Get(PaginationPath(module))
	m, _ := v.(map[string]any)
	p := Pagination{}
	p.Page, _ = m["page"].(int)
	p.PerPage, _ = m["perPage"].(int)
	p.Total, _ = m["total"].(int)
	return p
}

func (s *Store) SetModal(name string, open bool) {
	s.Set(ModalPath(name), open)
}

func (s *Store) ModalOpen(name string) bool {
	v, _ := s.Get(ModalPath(name))
	b, _ := v.(bool)
	return b
}

// CloseModals marks every known modal closed.
func (s *Store) CloseModals() {
	v, _ := s.Get(PathModals)
	m, _ := v.(map[string]any)
	for name, open := range m {
		if b, _ := open.(bool); b {
			s.SetModal(name, false)
		}
	}
}

func (s *Store) SetSelected(entity string, id int64) {
	s.Set(SelectedPath(entity), id)
}

func (s *Store) Selected(entity string) (int64, bool) {
	v, ok := s.Get(SelectedPath(entity))
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func (s *Store) SetScanResults(r *models.ScanResults) {
	s.Set(PathScanResults, r)
}

func (s *Store) ScanResults() *models.ScanResults {
	v, _ := s.Get(PathScanResults)
	r, _ := v.(*models.ScanResults)
	return r
}
