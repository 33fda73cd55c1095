package views

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/state"
)

// Resource names a data set kept under data.<name> in the store.
type Resource string

const (
	ResClients         Resource = "clients"
	ResWebsites        Resource = "websites"
	ResScans           Resource = "scans"
	ResSchedules       Resource = "schedules"
	ResSchedulerStatus Resource = "schedulerStatus"
	ResIssueRegistry   Resource = "issueRegistry"
)

// Loader fetches resources into the store. Concurrent requests for the same
// resource share one backend call.
type Loader struct {
	api    *apiclient.Client
	store  *state.Store
	logger *slog.Logger
	group  singleflight.Group
}

func NewLoader(api *apiclient.Client, store *state.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{api: api, store: store, logger: logger}
}

// Load fetches every resource concurrently. The first failure cancels the
// rest; resources that already landed stay in the store.
func (l *Loader) Load(ctx context.Context, resources ...Resource) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, res := range resources {
		res := res
		g.Go(func() error {
			return l.load(ctx, res)
		})
	}
	return g.Wait()
}

func (l *Loader) load(ctx context.Context, res Resource) error {
	_, err, shared := l.group.Do(string(res), func() (any, error) {
		l.store.SetLoading(string(res), true)
		defer l.store.SetLoading(string(res), false)

		return nil, l.fetch(ctx, res)
	})
	if shared {
		l.logger.Debug("shared in-flight load", "resource", res)
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", res, err)
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, res Resource) error {
	switch res {
	case ResClients:
		items, err := l.api.ListClients(ctx)
		if err != nil {
			return err
		}
		state.SetData(l.store, string(res), items)
	case ResWebsites:
		items, err := l.api.ListWebsites(ctx)
		if err != nil {
			return err
		}
		state.SetData(l.store, string(res), items)
	case ResScans:
		items, err := l.api.ListScans(ctx, apiclient.ScanListOptions{})
		if err != nil {
			return err
		}
		state.SetData(l.store, string(res), items)
	case ResSchedules:
		items, err := l.api.ListSchedules(ctx)
		if err != nil {
			return err
		}
		state.SetData(l.store, string(res), items)
	case ResSchedulerStatus:
		status, err := l.api.SchedulerStatus(ctx)
		if err != nil {
			return err
		}
		l.store.Set(state.DataPath(string(res)), status)
	case ResIssueRegistry:
		items, err := l.api.IssueRegistry(ctx)
		if err != nil {
			return err
		}
		state.SetData(l.store, string(res), items)
	default:
		return fmt.Errorf("unknown resource %q", res)
	}
	return nil
}

func clients(s *state.Store) []*models.Client { return state.Data[*models.Client](s, string(ResClients)) }
func websites(s *state.Store) []*models.Website { return state.Data[*models.Website](s, string(ResWebsites)) }
func scans(s *state.Store) []*models.Scan { return state.Data[*models.Scan](s, string(ResScans)) }
func schedules(s *state.Store) []*models.Schedule { return state.Data[*models.Schedule](s, string(ResSchedules)) }

func schedulerStatus(s *state.Store) *models.SchedulerStatus {
	v, _ := s.Get(state.DataPath(string(ResSchedulerStatus)))
	status, _ := v.(*models.SchedulerStatus)
	return status
}

// definitions prefers the locally edited set over the raw registry.
func definitions(s *state.Store) []*models.IssueDefinition {
	if defs := state.Data[*models.IssueDefinition](s, dataIssueDefinitions); defs != nil {
		return defs
	}
	return state.Data[*models.IssueDefinition](s, string(ResIssueRegistry))
}
