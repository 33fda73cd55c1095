// Package app composes the feature modules into the console: it switches
// sections, keeps the polling task of the visible section and dispatches
// keyboard shortcuts.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/scheduler"
	"github.com/seoaudit/seoconsole/internal/state"
	"github.com/seoaudit/seoconsole/internal/views"
)

var ErrUnknownSection = errors.New("unknown section")

// Sections reachable from the navigation.
const (
	SectionDashboard   = "dashboard"
	SectionClients     = "clients"
	SectionWebsites    = "websites"
	SectionScans       = "scans"
	SectionScheduler   = "scheduler"
	SectionIssues      = "issues"
	SectionScanResults = "scanResults"
)

var shortcuts = map[string]string{
	"d": SectionDashboard,
	"c": SectionClients,
	"w": SectionWebsites,
	"s": SectionScans,
	"p": SectionScheduler,
}

// Config sets the polling interval of the sections that refresh on their own.
type Config struct {
	DashboardInterval time.Duration
	SchedulerInterval time.Duration
}

type App struct {
	store     *state.Store
	toasts    *notifications.Service
	renderer  *views.Renderer
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
	intervals map[string]time.Duration

	Dashboard *views.Dashboard
	Clients   *views.Clients
	Websites  *views.Websites
	Scans     *views.Scans
	Schedules *views.Schedules
	Results   *views.ScanResults
	Issues    *views.Issues

	sections map[string]views.Module
	modules  map[string]views.Module

	mu      sync.Mutex
	polling string
}

// New builds every module on one shared loader so overlapping loads of the
// same resource collapse into a single backend call.
func New(deps views.Deps, cfg Config, sched *scheduler.Scheduler) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Loader == nil {
		deps.Loader = views.NewLoader(deps.API, deps.Store, deps.Logger)
	}
	if cfg.DashboardInterval == 0 {
		cfg.DashboardInterval = 30 * time.Second
	}
	if cfg.SchedulerInterval == 0 {
		cfg.SchedulerInterval = 10 * time.Second
	}
	if sched == nil {
		sched = scheduler.NewScheduler(deps.Logger)
	}

	a := &App{
		store:     deps.Store,
		toasts:    deps.Toasts,
		renderer:  deps.Renderer,
		scheduler: sched,
		logger:    deps.Logger,
		intervals: map[string]time.Duration{
			SectionDashboard: cfg.DashboardInterval,
			SectionScheduler: cfg.SchedulerInterval,
		},
		Dashboard: views.NewDashboard(deps),
		Clients:   views.NewClients(deps),
		Websites:  views.NewWebsites(deps),
		Scans:     views.NewScans(deps),
		Schedules: views.NewSchedules(deps),
		Results:   views.NewScanResults(deps),
		Issues:    views.NewIssues(deps),
	}

	a.sections = map[string]views.Module{
		SectionDashboard:   a.Dashboard,
		SectionClients:     a.Clients,
		SectionWebsites:    a.Websites,
		SectionScans:       a.Scans,
		SectionScheduler:   a.Schedules,
		SectionIssues:      a.Issues,
		SectionScanResults: a.Results,
	}
	a.modules = map[string]views.Module{
		a.Results.Issues.Name(): a.Results.Issues,
		a.Results.Pages.Name():  a.Results.Pages,
	}
	for name, m := range a.sections {
		a.modules[name] = m
	}

	return a
}

// Start runs the periodic tasks. Stop waits for running ones to finish.
func (a *App) Start() {
	a.scheduler.Start()
}

func (a *App) Stop() context.Context {
	return a.scheduler.Stop()
}

// Startup opens the dashboard and loads dashboard, clients and websites
// concurrently. A failed load leaves its toast and does not stop the others
// from landing.
func (a *App) Startup(ctx context.Context) error {
	a.store.SetCurrentSection(SectionDashboard)
	a.swapPolling(SectionDashboard)

	var g errgroup.Group
	for _, m := range []views.Module{a.Dashboard, a.Clients, a.Websites} {
		g.Go(func() error {
			return m.Load(ctx)
		})
	}
	return g.Wait()
}

// Show makes section the visible one and loads it. The module is returned
// even when the load fails so callers can still render the previous data.
func (a *App) Show(ctx context.Context, section string) (views.Module, error) {
	m, ok := a.sections[section]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	a.store.SetCurrentSection(section)
	a.swapPolling(section)

	return m, m.Load(ctx)
}

// OpenResults shows the results of one scan.
func (a *App) OpenResults(ctx context.Context, scanID string) error {
	if err := a.Results.Open(ctx, scanID); err != nil {
		return err
	}
	a.store.SetCurrentSection(SectionScanResults)
	a.swapPolling(SectionScanResults)
	return nil
}

// Current returns the visible section, defaulting to the dashboard.
func (a *App) Current() string {
	if s := a.store.CurrentSection(); s != "" {
		return s
	}
	return SectionDashboard
}

// Refresh reloads the visible section.
func (a *App) Refresh(ctx context.Context) (views.Module, error) {
	m := a.sections[a.Current()]
	return m, m.Load(ctx)
}

// Dispatch handles one keyboard shortcut and returns the section to
// re-render, or "" when there is nothing to render. Unknown keys are ignored.
func (a *App) Dispatch(ctx context.Context, key string) (string, error) {
	switch key {
	case "Escape":
		a.store.CloseModals()
		return "", nil
	case "r":
		_, err := a.Refresh(ctx)
		return a.Current(), err
	}

	section, ok := shortcuts[key]
	if !ok {
		a.logger.Debug("ignoring shortcut", "key", key)
		return "", nil
	}
	_, err := a.Show(ctx, section)
	return section, err
}

// HandleUnexpected reports an error nothing else handled.
func (a *App) HandleUnexpected(err error) {
	a.logger.Error("unexpected error", "error", err)
	a.toasts.Error(notifications.MsgUnexpected)
}

// Module looks up a section or tab module by name.
func (a *App) Module(name string) (views.Module, bool) {
	m, ok := a.modules[name]
	return m, ok
}

func (a *App) Lister(name string) (views.Lister, bool) {
	m, ok := a.modules[name]
	if !ok {
		return nil, false
	}
	l, ok := m.(views.Lister)
	return l, ok
}

func (a *App) Editor(name string) (views.Editor, bool) {
	m, ok := a.modules[name]
	if !ok {
		return nil, false
	}
	e, ok := m.(views.Editor)
	return e, ok
}

func (a *App) Store() *state.Store            { return a.store }
func (a *App) Toasts() *notifications.Service { return a.toasts }
func (a *App) Renderer() *views.Renderer      { return a.renderer }

// Polling reports the id of the running section task, if any.
func (a *App) Polling() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.polling
}

func (a *App) swapPolling(section string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := "poll:" + section
	if a.polling == id {
		return
	}
	if a.polling != "" {
		a.scheduler.RemoveTask(a.polling)
		a.polling = ""
	}

	every, ok := a.intervals[section]
	if !ok {
		return
	}
	if err := a.scheduler.AddTask(id, every, a.sections[section].Load); err != nil {
		a.logger.Warn("failed to start polling", "section", section, "error", err)
		return
	}
	a.polling = id
}
