package models

import (
	"time"
)

type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusCancelled ScanStatus = "cancelled"
)

// ScanStatuses lists statuses in lifecycle order.
var ScanStatuses = []ScanStatus{
	ScanStatusPending,
	ScanStatusRunning,
	ScanStatusCompleted,
	ScanStatusFailed,
	ScanStatusCancelled,
}

// Terminal reports whether the backend will not move the scan any further on its own.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed || s == ScanStatusCancelled
}

type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

var Frequencies = []Frequency{FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if v == f {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityMinor    Severity = "minor"
)

var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityMinor}

// Rank orders severities, critical first. Unknown severities sort last.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i
		}
	}
	return len(Severities)
}

type Client struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	Description  string `json:"description"`
	IsActive     bool   `json:"is_active"`

	Websites []*Website `json:"-"`
}

type Website struct {
	ID            int64      `json:"id"`
	Domain        string     `json:"domain"`
	Name          string     `json:"name"`
	ClientID      int64      `json:"client_id"`
	Description   string     `json:"description"`
	IsActive      bool       `json:"is_active"`
	ScanFrequency Frequency  `json:"scan_frequency"`
	LastScanDate  *time.Time `json:"last_scan_date,omitempty"`

	Client *Client `json:"-"`
}

// DisplayName prefers the human name and falls back to the domain.
func (w *Website) DisplayName() string {
	if w == nil {
		return ""
	}
	if w.Name != "" {
		return w.Name
	}
	return w.Domain
}

type Scan struct {
	ID                  int64      `json:"id"`
	WebsiteID           int64      `json:"website_id"`
	Status              ScanStatus `json:"status"`
	SEOScore            *float64   `json:"seo_score"`
	PagesFound          int        `json:"pages_found"`
	PagesScanned        int        `json:"pages_scanned"`
	TotalIssues         int        `json:"total_issues"`
	CriticalIssuesCount int        `json:"critical_issues_count"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	ErrorMessage        string     `json:"error_message,omitempty"`

	Website *Website `json:"-"`
	Client  *Client  `json:"-"`
}

// CanCancel is true only while the backend is running the scan.
func (s *Scan) CanCancel() bool {
	return s.Status == ScanStatusRunning
}

// CanRetry is true only for failed scans.
func (s *Scan) CanRetry() bool {
	return s.Status == ScanStatusFailed
}

// HasReport is true once a scan completed and a score exists.
func (s *Scan) HasReport() bool {
	return s.Status == ScanStatusCompleted
}

// Progress returns the scanned share of discovered pages in [0, 100].
func (s *Scan) Progress() int {
	if s.PagesFound <= 0 {
		if s.Status == ScanStatusCompleted {
			return 100
		}
		return 0
	}
	p := s.PagesScanned * 100 / s.PagesFound
	if p > 100 {
		p = 100
	}
	return p
}

type Schedule struct {
	ID        int64      `json:"id"`
	WebsiteID int64      `json:"website_id"`
	Frequency Frequency  `json:"frequency"`
	Time      string     `json:"time"`
	Day       *int       `json:"day,omitempty"`
	IsActive  bool       `json:"is_active"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`

	Website *Website `json:"-"`
}

// SchedulerStatus is what the backend reports about its own scan scheduler.
type SchedulerStatus struct {
	Running         bool       `json:"running"`
	ActiveSchedules int        `json:"active_schedules"`
	QueuedScans     int        `json:"queued_scans"`
	RunningScans    int        `json:"running_scans"`
	LastTick        *time.Time `json:"last_tick,omitempty"`
}

type IssueDefinition struct {
	IssueType       string         `json:"issue_type"`
	NameIT          string         `json:"name_it"`
	DescriptionIT   string         `json:"description_it"`
	Category        string         `json:"category"`
	Severity        Severity       `json:"severity"`
	FormatType      string         `json:"format_type"`
	Icon            string         `json:"icon"`
	Recommendations []string       `json:"recommendations"`
	EscalationRules map[string]any `json:"escalation_rules"`
}

// Issue is a concrete occurrence of an issue definition on a scanned page.
type Issue struct {
	ID          int64    `json:"id"`
	ScanID      int64    `json:"scan_id"`
	IssueType   string   `json:"issue_type"`
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Page        string   `json:"page"`

	Definition *IssueDefinition `json:"-"`
}

// Name returns the registry name when known, else the instance title.
func (i *Issue) Name() string {
	if i.Definition != nil && i.Definition.NameIT != "" {
		return i.Definition.NameIT
	}
	if i.Title != "" {
		return i.Title
	}
	return i.IssueType
}

type Page struct {
	ID           int64   `json:"id"`
	ScanID       int64   `json:"scan_id"`
	URL          string  `json:"url"`
	StatusCode   int     `json:"status_code"`
	Title        string  `json:"title"`
	WordCount    int     `json:"word_count"`
	ResponseTime float64 `json:"response_time"`
	IssuesCount  int     `json:"issues_count"`
}

// ScanResults bundles one scan with its pages, issues and tallies.
type ScanResults struct {
	ScanID int64
	Scan   *Scan
	Pages  []*Page
	Issues []*Issue
	Counts IssueCounts
}

type IssueCounts struct {
	Total      int
	BySeverity map[Severity]int
	ByCategory map[string]int
}

func CountIssues(issues []*Issue) IssueCounts {
	c := IssueCounts{
		Total:      len(issues),
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[string]int),
	}
	for _, i := range issues {
		c.BySeverity[i.Severity]++
		if i.Category != "" {
			c.ByCategory[i.Category]++
		}
	}
	return c
}
