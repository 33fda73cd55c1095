// Package table implements the filter/sort/paginate pipeline shared by every
// list view in the console.
package table

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// DateRange buckets a timestamp relative to now.
type DateRange string

const (
	RangeAll   DateRange = ""
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// Contains reports whether t falls in the range ending at now.
func (r DateRange) Contains(t, now time.Time) bool {
	switch r {
	case RangeToday:
		y1, m1, d1 := t.In(now.Location()).Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case RangeWeek:
		return !t.Before(now.AddDate(0, 0, -7))
	case RangeMonth:
		return !t.Before(now.AddDate(0, -1, 0))
	default:
		return true
	}
}

// Spec tells Apply how to look at one entity type.
type Spec[T any] struct {
	// SearchText returns the strings a free-text search is matched against.
	SearchText func(T) []string
	// Field returns the value of a named equality filter; ok=false means the
	// field is unknown and the filter is ignored.
	Field func(item T, name string) (value string, ok bool)
	// Date is used for date-range filtering. Nil disables it.
	Date func(T) time.Time
	// Less orders items by a named sort key. Nil keeps source order.
	Less func(a, b T, key string) bool
	// DefaultSort applies when the query has no sort key.
	DefaultSort string
	DefaultDesc bool
}

type Query struct {
	Search   string
	Equals   map[string]string
	Range    DateRange
	SortKey  string
	SortDesc bool
	Page     int
	PerPage  int
	Now      time.Time
}

type Result[T any] struct {
	Items      []T
	Filtered   []T
	Pagination Pagination
}

// fold builds a fresh Caser per call; Casers are stateful and must not be
// shared across goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Filter returns the items matching q, in source order. It never mutates items.
func Filter[T any](items []T, spec Spec[T], q Query) []T {
	needle := fold(strings.TrimSpace(q.Search))
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && spec.SearchText != nil && !matchesSearch(spec.SearchText(item), needle) {
			continue
		}
		if !matchesEquals(item, spec, q.Equals) {
			continue
		}
		if q.Range != RangeAll && spec.Date != nil && !q.Range.Contains(spec.Date(item), now) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(fold(h), needle) {
			return true
		}
	}
	return false
}

func matchesEquals[T any](item T, spec Spec[T], equals map[string]string) bool {
	if spec.Field == nil {
		return true
	}
	for name, want := range equals {
		if want == "" {
			continue
		}
		got, ok := spec.Field(item, name)
		if !ok {
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// Sort orders items in place with a stable sort.
func Sort[T any](items []T, spec Spec[T], key string, desc bool) {
	if spec.Less == nil {
		return
	}
	if key == "" {
		key, desc = spec.DefaultSort, spec.DefaultDesc
	}
	if key == "" {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return spec.Less(items[j], items[i], key)
		}
		return spec.Less(items[i], items[j], key)
	})
}

// Apply filters, sorts and paginates items.
func Apply[T any](items []T, spec Spec[T], q Query) Result[T] {
	filtered := Filter(items, spec, q)
	Sort(filtered, spec, q.SortKey, q.SortDesc)

	p := Paginate(len(filtered), q.PerPage, q.Page)
	return Result[T]{
		Items:      filtered[p.Start:p.End],
		Filtered:   filtered,
		Pagination: p,
	}
}
