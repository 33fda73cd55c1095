// Package state holds the console's loaded domain data and UI state as a
// nested tree addressed by dot-delimited paths, with prefix-based change
// notification.
package state

import (
	"strings"
	"sync"
)

// ResetPath is the path carried by the single event Reset emits. Every
// subscriber receives it regardless of the path it registered on.
const ResetPath = "*"

// Event describes one write.
type Event struct {
	Path  string
	Value any
}

type Listener func(Event)

type subscription struct {
	id   uint64
	path string
	fn   Listener
}

type Store struct {
	mu   sync.RWMutex
	tree map[string]any

	subMu  sync.RWMutex
	subs   []subscription
	nextID uint64
}

func New() *Store {
	return &Store{tree: initialTree()}
}

func initialTree() map[string]any {
	return map[string]any{
		"ui": map[string]any{
			"currentSection": "dashboard",
			"loading":        map[string]any{},
			"filters":        map[string]any{},
			"pagination":     map[string]any{},
			"modals":         map[string]any{},
		},
		"data":     map[string]any{},
		"selected": map[string]any{},
	}
}

func split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get resolves path through the tree. A mapping comes back as a shallow copy,
// so callers may range over it while other goroutines write.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cur any = s.tree
	for _, key := range split(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	if m, ok := cur.(map[string]any); ok {
		return copyMap(m), true
	}
	return cur, true
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Set assigns value at path, creating intermediate mappings as needed. A
// non-mapping value in the way is replaced by a mapping.
func (s *Store) Set(path string, value any) {
	keys := split(path)
	if len(keys) == 0 {
		return
	}

	s.mu.Lock()
	parent := s.tree
	for _, key := range keys[:len(keys)-1] {
		next, ok := parent[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			parent[key] = next
		}
		parent = next
	}
	parent[keys[len(keys)-1]] = value
	s.mu.Unlock()

	s.emit(Event{Path: path, Value: value})
}

// Update shallow-merges partial into the mapping at path. If the current value
// is missing or not a mapping it is replaced by a copy of partial. One event is
// emitted either way.
func (s *Store) Update(path string, partial map[string]any) {
	keys := split(path)
	if len(keys) == 0 {
		return
	}

	s.mu.Lock()
	parent := s.tree
	for _, key := range keys[:len(keys)-1] {
		next, ok := parent[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			parent[key] = next
		}
		parent = next
	}

	last := keys[len(keys)-1]
	existing, _ := parent[last].(map[string]any)
	merged := copyMap(existing)
	for k, v := range partial {
		merged[k] = v
	}
	parent[last] = merged
	s.mu.Unlock()

	s.emit(Event{Path: path, Value: copyMap(merged)})
}

// Subscribe registers fn for writes at path or below it. The returned func
// removes the subscription.
func (s *Store) Subscribe(path string, fn Listener) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, path: path, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Reset drops cached domain data and selections. UI state survives.
func (s *Store) Reset() {
	s.mu.Lock()
	s.tree["data"] = map[string]any{}
	s.tree["selected"] = map[string]any{}
	s.mu.Unlock()

	s.emit(Event{Path: ResetPath})
}

// Matches reports whether a write at changed is visible to a subscriber on
// subscribed: equal paths, or changed lies below subscribed on a dot boundary.
func Matches(subscribed, changed string) bool {
	if changed == ResetPath || subscribed == "" {
		return true
	}
	if changed == subscribed {
		return true
	}
	return strings.HasPrefix(changed, subscribed+".")
}

func (s *Store) emit(ev Event) {
	s.subMu.RLock()
	targets := make([]Listener, 0, len(s.subs))
	for _, sub := range s.subs {
		if Matches(sub.path, ev.Path) {
			targets = append(targets, sub.fn)
		}
	}
	s.subMu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}
