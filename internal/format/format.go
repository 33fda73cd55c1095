// Package format holds the console's pure presentation helpers: Italian dates
// and relative times, badge tables, numbers and URLs.
package format

import (
	"fmt"
	"html/template"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/seoaudit/seoconsole/internal/models"
)

var italianMonths = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// Formatter binds the helpers that depend on a location and a clock.
type Formatter struct {
	loc   *time.Location
	clock clockwork.Clock
}

func NewFormatter(loc *time.Location, clock clockwork.Clock) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Formatter{loc: loc, clock: clock}
}

func (f *Formatter) Now() time.Time {
	return f.clock.Now().In(f.loc)
}

// Date renders "15 ottobre 2026".
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.In(f.loc)
	return fmt.Sprintf("%d %s %d", t.Day(), italianMonths[t.Month()-1], t.Year())
}

// DateTime renders "15/10/2026 14:30".
func (f *Formatter) DateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(f.loc).Format("02/01/2006 15:04")
}

func (f *Formatter) Relative(t time.Time) string {
	if t.IsZero() {
		return "mai"
	}
	return RelativeTime(t, f.clock.Now(), f.loc)
}

// RelativeTime phrases how long ago t was, in whole floored units. Anything
// older than thirty days falls back to the date.
func RelativeTime(t, now time.Time, loc *time.Location) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "proprio ora"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minuto", "minuti")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "ora", "ore")
	case d < 48*time.Hour:
		return "ieri"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "giorno", "giorni")
	default:
		if loc == nil {
			loc = time.UTC
		}
		return NewFormatter(loc, nil).Date(t)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one + " fa"
	}
	return fmt.Sprintf("%d %s fa", n, many)
}

// Badge is a CSS class and label pair.
type Badge struct {
	Class string
	Label string
}

var statusBadges = map[models.ScanStatus]Badge{
	models.ScanStatusPending:   {"badge-warning", "In attesa"},
	models.ScanStatusRunning:   {"badge-info", "In corso"},
	models.ScanStatusCompleted: {"badge-success", "Completata"},
	models.ScanStatusFailed:    {"badge-danger", "Fallita"},
	models.ScanStatusCancelled: {"badge-secondary", "Annullata"},
}

func StatusBadge(status models.ScanStatus) Badge {
	if b, ok := statusBadges[status]; ok {
		return b
	}
	return Badge{"badge-secondary", string(status)}
}

// ScoreBadge grades an SEO score; a missing score is "N/D".
func ScoreBadge(score *float64) Badge {
	if score == nil {
		return Badge{"badge-secondary", "N/D"}
	}
	label := fmt.Sprintf("%.0f", *score)
	switch {
	case *score >= 80:
		return Badge{"badge-success", label}
	case *score >= 50:
		return Badge{"badge-warning", label}
	default:
		return Badge{"badge-danger", label}
	}
}

var severityBadges = map[models.Severity]Badge{
	models.SeverityCritical: {"badge-danger", "Critico"},
	models.SeverityHigh:     {"badge-warning", "Alto"},
	models.SeverityMedium:   {"badge-info", "Medio"},
	models.SeverityLow:      {"badge-secondary", "Basso"},
	models.SeverityMinor:    {"badge-light", "Minore"},
}

func SeverityBadge(s models.Severity) Badge {
	if b, ok := severityBadges[s]; ok {
		return b
	}
	return Badge{"badge-light", string(s)}
}

var frequencyLabels = map[models.Frequency]string{
	models.FrequencyHourly:  "Ogni ora",
	models.FrequencyDaily:   "Giornaliera",
	models.FrequencyWeekly:  "Settimanale",
	models.FrequencyMonthly: "Mensile",
}

func FrequencyLabel(f models.Frequency) string {
	if l, ok := frequencyLabels[f]; ok {
		return l
	}
	return string(f)
}

func ActiveBadge(active bool) Badge {
	if active {
		return Badge{"badge-success", "Attivo"}
	}
	return Badge{"badge-secondary", "Inattivo"}
}

// Number uses Italian thousands separators: 12345 -> "12.345".
func Number(n int) string {
	return humanize.FormatInteger("#.###,", n)
}

// Score renders an optional score with one decimal, or "-".
func Score(score *float64) string {
	if score == nil {
		return "-"
	}
	return strings.Replace(fmt.Sprintf("%.1f", *score), ".", ",", 1)
}

// NormalizeURL trims the input and prefixes https:// when no scheme is given.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

// ValidURL accepts http(s) URLs whose host looks like a domain.
func ValidURL(raw string) bool {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	return strings.Contains(host, ".") && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".")
}

// AttachmentDisposition builds the Content-Disposition value that makes a
// browser save the body as filename.
func AttachmentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

// FuncMap exposes the helpers to html/template.
func (f *Formatter) FuncMap() template.FuncMap {
	return template.FuncMap{
		"date":          f.Date,
		"dateTime":      f.DateTime,
		"timeAgo":       f.Relative,
		"statusBadge":   StatusBadge,
		"scoreBadge":    ScoreBadge,
		"severityBadge": SeverityBadge,
		"activeBadge":   ActiveBadge,
		"frequency":     FrequencyLabel,
		"number":        Number,
		"score":         Score,
		"deref": func(t *time.Time) time.Time {
			if t == nil {
				return time.Time{}
			}
			return *t
		},
	}
}
