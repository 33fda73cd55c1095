package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Kind classifies a toast
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Toast is a transient message shown to the console user
type Toast struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config holds notification configuration
type Config struct {
	TTL       time.Duration
	MaxToasts int
	Slack     SlackConfig
}

// SlackConfig holds Slack configuration
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Username   string
	IconEmoji  string
	Enabled    bool
}

// Service keeps recent toasts and forwards error toasts to Slack when enabled
type Service struct {
	config Config
	logger *slog.Logger
	client *http.Client
	clock  clockwork.Clock

	mu     sync.Mutex
	toasts []*Toast

	listeners []func(*Toast)
}

type Option func(*Service)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// NewService creates a new notification service
func NewService(config Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TTL == 0 {
		config.TTL = 5 * time.Second
	}
	if config.MaxToasts == 0 {
		config.MaxToasts = 5
	}

	s := &Service{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
		clock:  clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnPush registers fn to run after every Push
func (s *Service) OnPush(fn func(*Toast)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Push records a toast. Expired toasts are pruned on the way.
func (s *Service) Push(kind Kind, message string) *Toast {
	now := s.clock.Now()
	toast := &Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.toasts = append(s.toasts, toast)
	listeners := append([]func(*Toast){}, s.listeners...)
	s.mu.Unlock()

	if kind == KindError {
		s.logger.Warn("error toast", "message", message)
		if s.config.Slack.Enabled {
			go s.forward(toast)
		}
	}

	for _, fn := range listeners {
		fn(toast)
	}

	return toast
}

func (s *Service) Success(message string) *Toast { return s.Push(KindSuccess, message) }
func (s *Service) Error(message string) *Toast   { return s.Push(KindError, message) }
func (s *Service) Warning(message string) *Toast { return s.Push(KindWarning, message) }
func (s *Service) Info(message string) *Toast    { return s.Push(KindInfo, message) }

// Active returns unexpired toasts, most recently pushed first, capped at MaxToasts
func (s *Service) Active() []*Toast {
	now := s.clock.Now()

	s.mu.Lock()
	s.pruneLocked(now)
	out := make([]*Toast, len(s.toasts))
	for i, t := range s.toasts {
		out[len(out)-1-i] = t
	}
	s.mu.Unlock()

	if len(out) > s.config.MaxToasts {
		out = out[:s.config.MaxToasts]
	}
	return out
}

// Dismiss removes a toast before it expires
func (s *Service) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Service) pruneLocked(now time.Time) {
	kept := s.toasts[:0]
	for _, t := range s.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	s.toasts = kept
}

func (s *Service) forward(toast *Toast) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.sendSlack(ctx, toast); err != nil {
		s.logger.Error("failed to forward toast to slack", "error", err)
	}
}

// SlackMessage represents a Slack message payload
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack attachment
type SlackAttachment struct {
	Color     string `json:"color,omitempty"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text,omitempty"`
	Fallback  string `json:"fallback,omitempty"`
	Footer    string `json:"footer,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
}

// sendSlack posts a toast to the configured webhook
func (s *Service) sendSlack(ctx context.Context, toast *Toast) error {
	msg := SlackMessage{
		Channel:   s.config.Slack.Channel,
		Username:  s.config.Slack.Username,
		IconEmoji: s.config.Slack.IconEmoji,
		Attachments: []SlackAttachment{
			{
				Color:     kindToColor(toast.Kind),
				Title:     "SEO Console",
				Text:      toast.Message,
				Fallback:  fmt.Sprintf("SEO Console: %s", toast.Message),
				Footer:    "seoconsole",
				Timestamp: toast.CreatedAt.Unix(),
			},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.Slack.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	s.logger.Info("slack notification sent", "toast_id", toast.ID)

	return nil
}

// kindToColor converts a toast kind to a Slack color
func kindToColor(kind Kind) string {
	switch kind {
	case KindError:
		return "#FF0000" // Red
	case KindWarning:
		return "#FFA500" // Orange
	case KindInfo:
		return "#439FE0" // Blue
	default:
		return "#36A64F" // Green
	}
}
