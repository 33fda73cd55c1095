package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/seoaudit/seoconsole/internal/models"
)

type ClientInput struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
	Description  string `json:"description,omitempty"`
}

type WebsiteInput struct {
	Domain        string           `json:"domain"`
	Name          string           `json:"name"`
	ClientID      int64            `json:"client_id"`
	Description   string           `json:"description,omitempty"`
	IsActive      bool             `json:"is_active"`
	ScanFrequency models.Frequency `json:"scan_frequency,omitempty"`
}

type ScanInput struct {
	WebsiteID int64 `json:"website_id"`
}

type ScheduleInput struct {
	WebsiteID int64            `json:"website_id"`
	Frequency models.Frequency `json:"frequency"`
	Time      string           `json:"time"`
	Day       *int             `json:"day,omitempty"`
	IsActive  bool             `json:"is_active"`
}

type PurgeResult struct {
	Purged int `json:"purged"`
}

// Report is a binary scan report as served by the backend.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) get(ctx context.Context, resource, endpoint string, v any, opts ...RequestOption) error {
	resp, err := c.Request(ctx, http.MethodGet, endpoint, nil, opts...)
	if err != nil {
		return err
	}
	return resp.Decode(resource, v)
}

// getList decodes a list and drops null elements.
func getList[T any](ctx context.Context, c *Client, resource, endpoint string, opts ...RequestOption) ([]*T, error) {
	var raw []*T
	if err := c.get(ctx, resource, endpoint, &raw, opts...); err != nil {
		return nil, err
	}
	out := raw[:0]
	for _, item := range raw {
		if item != nil {
			out = append(out, item)
		}
	}
	return out, nil
}

// send issues a mutating call and decodes the reply into v when v is non-nil
// and the backend returned a body.
func (c *Client) send(ctx context.Context, method, resource, endpoint string, body, v any) error {
	resp, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if v == nil || resp.Kind == KindEmpty {
		return nil
	}
	return resp.Decode(resource, v)
}

func id(prefix string, id int64, suffix ...string) string {
	p := prefix + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// Clients

func (c *Client) ListClients(ctx context.Context) ([]*models.Client, error) {
	return getList[models.Client](ctx, c, "clients", "/clients")
}

func (c *Client) GetClient(ctx context.Context, clientID int64) (*models.Client, error) {
	var out models.Client
	if err := c.get(ctx, "client", id("/clients", clientID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	var out models.Client
	if err := c.send(ctx, http.MethodPost, "client", "/clients", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateClient(ctx context.Context, clientID int64, in ClientInput) (*models.Client, error) {
	var out models.Client
	if err := c.send(ctx, http.MethodPut, "client", id("/clients", clientID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteClient(ctx context.Context, clientID int64) error {
	return c.send(ctx, http.MethodDelete, "client", id("/clients", clientID), nil, nil)
}

// Websites

func (c *Client) ListWebsites(ctx context.Context) ([]*models.Website, error) {
	return getList[models.Website](ctx, c, "websites", "/websites")
}

func (c *Client) GetWebsite(ctx context.Context, websiteID int64) (*models.Website, error) {
	var out models.Website
	if err := c.get(ctx, "website", id("/websites", websiteID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateWebsite(ctx context.Context, in WebsiteInput) (*models.Website, error) {
	var out models.Website
	if err := c.send(ctx, http.MethodPost, "website", "/websites", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWebsite(ctx context.Context, websiteID int64, in WebsiteInput) (*models.Website, error) {
	var out models.Website
	if err := c.send(ctx, http.MethodPut, "website", id("/websites", websiteID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteWebsite(ctx context.Context, websiteID int64) error {
	return c.send(ctx, http.MethodDelete, "website", id("/websites", websiteID), nil, nil)
}

// Scans

type ScanListOptions struct {
	WebsiteID int64
	Status    models.ScanStatus
	Limit     int
}

func (o ScanListOptions) values() url.Values {
	q := url.Values{}
	if o.WebsiteID != 0 {
		q.Set("website_id", strconv.FormatInt(o.WebsiteID, 10))
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q
}

func (c *Client) ListScans(ctx context.Context, opts ScanListOptions) ([]*models.Scan, error) {
	return getList[models.Scan](ctx, c, "scans", "/scans", WithQuery(opts.values()))
}

func (c *Client) GetScan(ctx context.Context, scanID int64) (*models.Scan, error) {
	var out models.Scan
	if err := c.get(ctx, "scan", id("/scans", scanID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateScan asks the backend to start a scan of one website.
func (c *Client) CreateScan(ctx context.Context, in ScanInput) (*models.Scan, error) {
	var out models.Scan
	if err := c.send(ctx, http.MethodPost, "scan", "/scans", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RetryScan(ctx context.Context, scanID int64) error {
	return c.send(ctx, http.MethodPost, "scan", id("/scans", scanID, "retry"), struct{}{}, nil)
}

func (c *Client) CancelScan(ctx context.Context, scanID int64) error {
	return c.send(ctx, http.MethodPost, "scan", id("/scans", scanID, "cancel"), struct{}{}, nil)
}

func (c *Client) DeleteScan(ctx context.Context, scanID int64) error {
	return c.send(ctx, http.MethodDelete, "scan", id("/scans", scanID), nil, nil)
}

func (c *Client) ScanPages(ctx context.Context, scanID int64) ([]*models.Page, error) {
	return getList[models.Page](ctx, c, "scan pages", id("/scans", scanID, "pages"))
}

func (c *Client) ScanIssues(ctx context.Context, scanID int64) ([]*models.Issue, error) {
	return getList[models.Issue](ctx, c, "scan issues", id("/scans", scanID, "issues"))
}

// ScanReport downloads the PDF report of a completed scan.
func (c *Client) ScanReport(ctx context.Context, scanID int64) (*Report, error) {
	resp, err := c.Request(ctx, http.MethodGet, id("/scans", scanID, "report"), nil,
		WithHeader("Accept", "application/pdf"))
	if err != nil {
		return nil, err
	}
	if resp.Kind != KindBlob {
		return nil, &DecodeError{Resource: "scan report", Err: fmt.Errorf("unexpected content type %q", resp.ContentType)}
	}

	filename := resp.Filename
	if filename == "" {
		filename = fmt.Sprintf("seo-report-%d.pdf", scanID)
	}

	return &Report{
		Filename:    filename,
		ContentType: resp.ContentType,
		Data:        resp.Blob,
	}, nil
}

// Schedules

func (c *Client) ListSchedules(ctx context.Context) ([]*models.Schedule, error) {
	return getList[models.Schedule](ctx, c, "schedules", "/schedules")
}

func (c *Client) GetSchedule(ctx context.Context, scheduleID int64) (*models.Schedule, error) {
	var out models.Schedule
	if err := c.get(ctx, "schedule", id("/schedules", scheduleID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSchedule(ctx context.Context, in ScheduleInput) (*models.Schedule, error) {
	var out models.Schedule
	if err := c.send(ctx, http.MethodPost, "schedule", "/schedules", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSchedule(ctx context.Context, scheduleID int64, in ScheduleInput) (*models.Schedule, error) {
	var out models.Schedule
	if err := c.send(ctx, http.MethodPut, "schedule", id("/schedules", scheduleID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSchedule(ctx context.Context, scheduleID int64) error {
	return c.send(ctx, http.MethodDelete, "schedule", id("/schedules", scheduleID), nil, nil)
}

func (c *Client) PauseSchedule(ctx context.Context, scheduleID int64) error {
	return c.send(ctx, http.MethodPost, "schedule", id("/schedules", scheduleID, "pause"), struct{}{}, nil)
}

func (c *Client) ResumeSchedule(ctx context.Context, scheduleID int64) error {
	return c.send(ctx, http.MethodPost, "schedule", id("/schedules", scheduleID, "resume"), struct{}{}, nil)
}

func (c *Client) RunScheduleNow(ctx context.Context, scheduleID int64) error {
	return c.send(ctx, http.MethodPost, "schedule", id("/schedules", scheduleID, "run"), struct{}{}, nil)
}

// Scheduler controls

func (c *Client) SchedulerStatus(ctx context.Context) (*models.SchedulerStatus, error) {
	var out models.SchedulerStatus
	if err := c.get(ctx, "scheduler status", "/scheduler/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartScheduler(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "scheduler", "/scheduler/start", struct{}{}, nil)
}

func (c *Client) StopScheduler(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "scheduler", "/scheduler/stop", struct{}{}, nil)
}

// PurgeQueue drops every queued but not yet started scan.
func (c *Client) PurgeQueue(ctx context.Context) (*PurgeResult, error) {
	var out PurgeResult
	if err := c.send(ctx, http.MethodPost, "scheduler purge", "/scheduler/purge", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Issue registry

// IssueRegistry lists issue definitions. The backend may answer with either a
// list or an object keyed by issue type; both come back sorted by type.
func (c *Client) IssueRegistry(ctx context.Context) ([]*models.IssueDefinition, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/issues/registry", nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := resp.Decode("issue registry", &raw); err != nil {
		return nil, err
	}

	var out []*models.IssueDefinition
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var byType map[string]*models.IssueDefinition
		if err := json.Unmarshal(raw, &byType); err != nil {
			return nil, &DecodeError{Resource: "issue registry", Err: err}
		}
		for key, def := range byType {
			if def == nil {
				continue
			}
			if def.IssueType == "" {
				def.IssueType = key
			}
			out = append(out, def)
		}
	} else {
		var list []*models.IssueDefinition
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, &DecodeError{Resource: "issue registry", Err: err}
		}
		for _, def := range list {
			if def != nil {
				out = append(out, def)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].IssueType < out[j].IssueType })
	return out, nil
}
