package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoaudit/seoconsole/internal/models"
)

func TestStore_SetGet(t *testing.T) {
	s := New()

	tests := []struct {
		path  string
		value any
	}{
		{"data.websites", []int{1, 2, 3}},
		{"ui.filters.scans.status", "running"},
		{"brand.new.deep.path", 42},
		{"top", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s.Set(tt.path, tt.value)
			got, ok := s.Get(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New()
	s.Set("a.b", 1)

	_, ok := s.Get("a.c")
	assert.False(t, ok)
	_, ok = s.Get("a.b.c")
	assert.False(t, ok, "descending through a scalar must fail")
}

func TestStore_SetReplacesScalarInTheWay(t *testing.T) {
	s := New()
	s.Set("a", 1)
	s.Set("a.b", 2)

	v, ok := s.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestStore_SubscribePrefix(t *testing.T) {
	tests := []struct {
		name       string
		subscribed string
		written    string
		notified   bool
	}{
		{"exact", "data.websites", "data.websites", true},
		{"ancestor", "data", "data.websites", true},
		{"deep ancestor", "ui", "ui.filters.scans.status", true},
		{"sibling", "data.clients", "data.websites", false},
		{"partial segment", "data.web", "data.websites", false},
		{"descendant subscriber", "data.websites.x", "data.websites", false},
		{"unrelated", "ui", "data.websites", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			var events []Event
			s.Subscribe(tt.subscribed, func(ev Event) { events = append(events, ev) })

			s.Set(tt.written, "v")

			if tt.notified {
				require.Len(t, events, 1)
				assert.Equal(t, tt.written, events[0].Path)
				assert.Equal(t, "v", events[0].Value)
			} else {
				assert.Empty(t, events)
			}
		})
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New()
	count := 0
	unsubscribe := s.Subscribe("data", func(Event) { count++ })

	s.Set("data.a", 1)
	unsubscribe()
	s.Set("data.a", 2)
	unsubscribe()

	assert.Equal(t, 1, count)
}

func TestStore_SubscriberMayWrite(t *testing.T) {
	s := New()
	s.Subscribe("data.scans", func(ev Event) {
		s.Set("ui.loading.scans", false)
	})

	s.Set("data.scans", []int{})
	assert.False(t, s.IsLoading("scans"))
	_, ok := s.Get("ui.loading.scans")
	assert.True(t, ok)
}

func TestStore_UpdateShallowMerge(t *testing.T) {
	s := New()
	s.Set("ui.pagination.scans", map[string]any{"page": 3, "perPage": 10, "total": 42})

	var events []Event
	s.Subscribe("ui.pagination", func(ev Event) { events = append(events, ev) })

	s.Update("ui.pagination.scans", map[string]any{"page": 1})

	v, _ := s.Get("ui.pagination.scans")
	assert.Equal(t, map[string]any{"page": 1, "perPage": 10, "total": 42}, v)
	assert.Len(t, events, 1, "update emits a single event")
}

func TestStore_UpdateReplacesNonMapping(t *testing.T) {
	s := New()
	s.Set("x", "scalar")
	s.Update("x", map[string]any{"a": 1})

	v, _ := s.Get("x")
	assert.Equal(t, map[string]any{"a": 1}, v)
}

func TestStore_Reset(t *testing.T) {
	s := New()
	SetData(s, "clients", []*models.Client{{ID: 1}})
	s.SetSelected("client", 1)
	s.SetCurrentSection("clients")

	var events []Event
	s.Subscribe("data.clients", func(ev Event) { events = append(events, ev) })

	s.Reset()

	assert.Nil(t, Data[*models.Client](s, "clients"))
	_, ok := s.Selected("client")
	assert.False(t, ok)
	assert.Equal(t, "clients", s.CurrentSection(), "ui state survives reset")
	require.Len(t, events, 1)
	assert.Equal(t, ResetPath, events[0].Path)
}

func TestStore_TypedAccessors(t *testing.T) {
	s := New()

	assert.Equal(t, "dashboard", s.CurrentSection())

	s.SetLoading("scans", true)
	assert.True(t, s.IsLoading("scans"))

	SetData(s, "websites", []*models.Website{{ID: 1}, {ID: 2}})
	assert.Len(t, Data[*models.Website](s, "websites"), 2)
	assert.Nil(t, Data[*models.Client](s, "websites"), "wrong element type")

	s.SetFilter("scans", "status", "failed")
	s.SetFilter("scans", "search", "acme")
	assert.Equal(t, "failed", s.Filter("scans", "status"))
	assert.Equal(t, map[string]string{"status": "failed", "search": "acme"}, s.Filters("scans"))

	s.SetPagination("scans", Pagination{Page: 2, PerPage: 10, Total: 31})
	s.SetPage("scans", 4)
	assert.Equal(t, Pagination{Page: 4, PerPage: 10, Total: 31}, s.Pagination("scans"))

	s.SetModal("client", true)
	s.SetModal("website", true)
	s.CloseModals()
	assert.False(t, s.ModalOpen("client"))
	assert.False(t, s.ModalOpen("website"))

	s.SetSelected("scan", 9)
	id, ok := s.Selected("scan")
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)

	res := &models.ScanResults{ScanID: 9}
	s.SetScanResults(res)
	assert.Same(t, res, s.ScanResults())
}

func TestStore_GetCopiesMappings(t *testing.T) {
	s := New()
	s.SetFilter("scans", "status", "failed")

	v, _ := s.Get("ui.filters.scans")
	v.(map[string]any)["status"] = "running"

	assert.Equal(t, "failed", s.Filter("scans", "status"))
}

// Run with -race: readers range over mappings that writers keep changing.
func TestStore_ConcurrentReadWrite(t *testing.T) {
	s := New()
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.SetFilter("scans", fmt.Sprintf("f%d", i%7), fmt.Sprint(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = s.Filters("scans")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.SetModal(fmt.Sprintf("m%d", i%5), true)
			s.SetPage("scans", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.CloseModals()
			_ = s.Pagination("scans")
		}
	}()
	wg.Wait()

	assert.Len(t, s.Filters("scans"), 7)
	s.CloseModals()
	for i := 0; i < 5; i++ {
		assert.False(t, s.ModalOpen(fmt.Sprintf("m%d", i)))
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("", "anything"))
	assert.True(t, Matches("data", ResetPath))
	assert.False(t, Matches("data", "database"))
}
