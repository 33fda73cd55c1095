package api

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/seoaudit/seoconsole/internal/format"
)

// toastsPath marks a toast change in the event stream. Toasts live outside
// the store.
const toastsPath = "toasts"

const feedBuffer = 16

// changeEvent is one websocket message.
type changeEvent struct {
	Paths []string `json:"paths"`
}

// changeFeed batches changed paths behind a trailing-edge debounce and fans
// each batch out to every subscriber.
type changeFeed struct {
	logger   *slog.Logger
	debounce *format.Debouncer

	mu      sync.Mutex
	pending map[string]struct{}
	subs    map[chan []string]struct{}
	closed  bool
}

func newChangeFeed(clock clockwork.Clock, delay time.Duration, logger *slog.Logger) *changeFeed {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	f := &changeFeed{
		logger:  logger,
		pending: make(map[string]struct{}),
		subs:    make(map[chan []string]struct{}),
	}
	f.debounce = format.NewDebouncer(clock, delay, f.flush)
	return f
}

func (f *changeFeed) Add(path string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.pending[path] = struct{}{}
	f.mu.Unlock()

	f.debounce.Trigger()
}

func (f *changeFeed) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(f.pending))
	for p := range f.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	f.pending = make(map[string]struct{})

	for ch := range f.subs {
		select {
		case ch <- paths:
		default:
			f.logger.Debug("dropping change batch for slow subscriber", "paths", len(paths))
		}
	}
}

// Subscribe returns a channel of batches and a func that ends the
// subscription.
func (f *changeFeed) Subscribe() (<-chan []string, func()) {
	ch := make(chan []string, feedBuffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, ch)
	}
}

func (f *changeFeed) Close() {
	f.debounce.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	allowed := s.cfg.Server.CORSAllowOrigin
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed == "" || allowed == "*" || origin == allowed ||
				strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://") == r.Host
		},
	}
}

// serveEvents streams change batches to the page, which refetches the
// fragments showing the changed data.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.feed.Subscribe()
	defer unsubscribe()

	// the page never sends anything; reading only tracks pongs and close
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case paths := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(changeEvent{Paths: paths}); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
