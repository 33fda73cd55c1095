package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/scheduler"
	"github.com/seoaudit/seoconsole/internal/table"
)

var scheduleRules = forms.Rules{
	"website_id": {Label: "Il sito", Required: true, Integer: true},
	"frequency":  {Label: "La frequenza", Required: true, OneOf: frequencyValues()},
	"time": {
		Label:     "L'orario",
		Required:  true,
		Pattern:   regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`),
		PatternIT: "Usa il formato HH:MM",
	},
	"day": {Label: "Il giorno", Integer: true},
}

// validateSchedule adds the frequency-dependent day check.
func validateSchedule(values url.Values) forms.Errors {
	errs := forms.Validate(values, scheduleRules)
	if errs.Has("day") {
		return errs
	}

	day, _ := strconv.Atoi(values.Get("day"))
	switch models.Frequency(values.Get("frequency")) {
	case models.FrequencyWeekly:
		if values.Get("day") == "" || day < 0 || day > 6 {
			errs = addError(errs, "day", "Seleziona un giorno della settimana")
		}
	case models.FrequencyMonthly:
		if day < 1 || day > 31 {
			errs = addError(errs, "day", "Il giorno deve essere compreso tra 1 e 31")
		}
	}
	return errs
}

func addError(errs forms.Errors, field, msg string) forms.Errors {
	if errs == nil {
		errs = forms.Errors{}
	}
	errs[field] = msg
	return errs
}

var scheduleSpec = table.Spec[*models.Schedule]{
	SearchText: func(s *models.Schedule) []string {
		var out []string
		if s.Website != nil {
			out = append(out, s.Website.Domain, s.Website.Name)
			if s.Website.Client != nil {
				out = append(out, s.Website.Client.Name)
			}
		}
		return out
	},
	Field: func(s *models.Schedule, name string) (string, bool) {
		switch name {
		case "frequency":
			return string(s.Frequency), true
		case "active":
			return strconv.FormatBool(s.IsActive), true
		}
		return "", false
	},
	Less: func(a, b *models.Schedule, key string) bool {
		if key == "website" {
			return less(a.Website.DisplayName(), b.Website.DisplayName())
		}
		return nextRun(a).Before(nextRun(b))
	},
	DefaultSort: "next_run",
}

func nextRun(s *models.Schedule) time.Time {
	if s.NextRunAt != nil {
		return *s.NextRunAt
	}
	// unknown next runs sort last
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}

// Schedules manages scan schedules and the backend's scheduler.
type Schedules struct {
	list
}

func NewSchedules(deps Deps) *Schedules {
	return &Schedules{list{name: "scheduler", filterKeys: []string{"search", "frequency", "active"}, deps: deps.withDefaults()}}
}

func (m *Schedules) Load(ctx context.Context) error {
	if err := m.deps.Loader.Load(ctx, ResSchedules, ResWebsites, ResClients, ResSchedulerStatus); err != nil {
		return m.loadFailed(err)
	}
	return nil
}

func (m *Schedules) Rows() []*models.Schedule {
	return EnrichSchedules(schedules(m.deps.Store), websites(m.deps.Store), clients(m.deps.Store))
}

// ScheduleRow pairs a schedule with a preview of its upcoming runs.
type ScheduleRow struct {
	*models.Schedule
	Upcoming []time.Time
}

type schedulesView struct {
	TableView[ScheduleRow]
	Status      *models.SchedulerStatus
	Frequencies []models.Frequency
}

func (m *Schedules) view() schedulesView {
	now := m.deps.Format.Now()
	rows := m.Rows()
	out := make([]ScheduleRow, len(rows))
	for i, s := range rows {
		out[i] = ScheduleRow{Schedule: s, Upcoming: scheduler.Preview(s, now, 3)}
	}

	spec := table.Spec[ScheduleRow]{
		SearchText: func(r ScheduleRow) []string { return scheduleSpec.SearchText(r.Schedule) },
		Field:      func(r ScheduleRow, name string) (string, bool) { return scheduleSpec.Field(r.Schedule, name) },
		Less: func(a, b ScheduleRow, key string) bool {
			return scheduleSpec.Less(a.Schedule, b.Schedule, key)
		},
		DefaultSort: scheduleSpec.DefaultSort,
	}

	return schedulesView{
		TableView:   apply(&m.list, out, spec),
		Status:      schedulerStatus(m.deps.Store),
		Frequencies: models.Frequencies,
	}
}

func (m *Schedules) Render(w io.Writer) error {
	return m.deps.Renderer.Render(w, "scheduler", m.view())
}

func (m *Schedules) RenderTable(w io.Writer) error {
	return m.deps.Renderer.Render(w, "scheduler_table", m.view())
}

func (m *Schedules) find(id int64) *models.Schedule {
	for _, s := range schedules(m.deps.Store) {
		if s.ID == id {
			return s
		}
	}
	return nil
}

type scheduleModal struct {
	*Form
	Websites    []*models.Website
	Frequencies []models.Frequency
	Weekdays    []string
}

var weekdays = []string{"Domenica", "Lunedì", "Martedì", "Mercoledì", "Giovedì", "Venerdì", "Sabato"}

func (m *Schedules) RenderModal(w io.Writer, id string, form *Form) error {
	if form == nil {
		form = &Form{ID: id, Values: url.Values{}}
		form.Values.Set("frequency", string(models.FrequencyDaily))
		form.Values.Set("time", "03:00")
		form.Values.Set("is_active", "true")
		if id != "" {
			scheduleID, err := parseID(id)
			if err != nil {
				return err
			}
			s := m.find(scheduleID)
			if s == nil {
				return fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
			}
			form.Values.Set("website_id", formatID(s.WebsiteID))
			form.Values.Set("frequency", string(s.Frequency))
			form.Values.Set("time", s.Time)
			if s.Day != nil {
				form.Values.Set("day", strconv.Itoa(*s.Day))
			}
			form.Values.Set("is_active", strconv.FormatBool(s.IsActive))
			m.deps.Store.SetSelected("schedule", scheduleID)
		}
	}
	m.deps.Store.SetModal("schedule", true)
	return m.deps.Renderer.Render(w, "schedule_modal", scheduleModal{
		Form:        form,
		Websites:    EnrichWebsites(websites(m.deps.Store), clients(m.deps.Store)),
		Frequencies: models.Frequencies,
		Weekdays:    weekdays,
	})
}

func (m *Schedules) Save(ctx context.Context, id string, values url.Values) error {
	if errs := validateSchedule(values); errs != nil {
		return m.invalid(errs)
	}

	websiteID, _ := strconv.ParseInt(values.Get("website_id"), 10, 64)
	in := apiclient.ScheduleInput{
		WebsiteID: websiteID,
		Frequency: models.Frequency(values.Get("frequency")),
		Time:      values.Get("time"),
		IsActive:  checkbox(values.Get("is_active")),
	}
	if in.Frequency == models.FrequencyWeekly || in.Frequency == models.FrequencyMonthly {
		day, _ := strconv.Atoi(values.Get("day"))
		in.Day = &day
	}

	save := func(ctx context.Context) error {
		_, err := m.deps.API.CreateSchedule(ctx, in)
		return err
	}
	action, success := "la creazione della pianificazione", notifications.MsgScheduleCreated
	if id != "" {
		scheduleID, err := parseID(id)
		if err != nil {
			return err
		}
		save = func(ctx context.Context) error {
			_, err := m.deps.API.UpdateSchedule(ctx, scheduleID, in)
			return err
		}
		action, success = "l'aggiornamento della pianificazione", notifications.MsgScheduleUpdated
	}

	return m.act(ctx, action, success, m.Load, func(ctx context.Context) error {
		if err := save(ctx); err != nil {
			return err
		}
		m.deps.Store.SetModal("schedule", false)
		return nil
	})
}

func (m *Schedules) Delete(ctx context.Context, id string) error {
	scheduleID, err := parseID(id)
	if err != nil {
		return err
	}
	return m.act(ctx, "l'eliminazione della pianificazione", notifications.MsgScheduleDeleted, m.Load, func(ctx context.Context) error {
		return m.deps.API.DeleteSchedule(ctx, scheduleID)
	})
}

// Pause, Resume and RunNow act on a single schedule.

func (m *Schedules) Pause(ctx context.Context, id string) error {
	return m.scheduleAction(ctx, id, "la sospensione", notifications.MsgSchedulePaused, m.deps.API.PauseSchedule)
}

func (m *Schedules) Resume(ctx context.Context, id string) error {
	return m.scheduleAction(ctx, id, "la riattivazione", notifications.MsgScheduleResumed, m.deps.API.ResumeSchedule)
}

func (m *Schedules) RunNow(ctx context.Context, id string) error {
	return m.scheduleAction(ctx, id, "l'esecuzione immediata", notifications.MsgScheduleRun, m.deps.API.RunScheduleNow)
}

func (m *Schedules) scheduleAction(ctx context.Context, id, action, success string, call func(context.Context, int64) error) error {
	scheduleID, err := parseID(id)
	if err != nil {
		return err
	}
	return m.act(ctx, action+" della pianificazione", success, m.Load, func(ctx context.Context) error {
		return call(ctx, scheduleID)
	})
}

// Control drives the backend scheduler: start, stop or purge its queue.
func (m *Schedules) Control(ctx context.Context, command string) error {
	switch command {
	case "start":
		return m.act(ctx, "l'avvio dello scheduler", notifications.MsgSchedulerOn, m.Load, m.deps.API.StartScheduler)
	case "stop":
		return m.act(ctx, "l'arresto dello scheduler", notifications.MsgSchedulerOff, m.Load, m.deps.API.StopScheduler)
	case "purge":
		var purged int
		err := m.act(ctx, "lo svuotamento della coda", "", nil, func(ctx context.Context) error {
			res, err := m.deps.API.PurgeQueue(ctx)
			if err != nil {
				return err
			}
			purged = res.Purged
			return nil
		})
		if err != nil {
			return err
		}
		m.deps.Toasts.Success(notifications.Purged(purged))
		return m.Load(ctx)
	default:
		return fmt.Errorf("%w: scheduler command %q", ErrNotAllowed, command)
	}
}
