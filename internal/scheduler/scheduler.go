package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seoaudit/seoconsole/internal/models"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// TaskFunc is a periodic piece of work, usually a section refresh
type TaskFunc func(ctx context.Context) error

// Scheduler runs periodic tasks keyed by ID
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	mu      sync.RWMutex
	logger  *slog.Logger

	// ctx is handed to tasks and replaced on every Start
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler. Tasks only fire after Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(
				cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
			)),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
}

// Start starts the scheduler with a fresh task context
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "tasks_count", s.Len())
}

// Stop stops the scheduler and cancels the context handed to running tasks.
// The returned context is done once running tasks have returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	return s.cron.Stop()
}

func (s *Scheduler) taskContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// AddTask runs fn every interval, replacing any task with the same id
func (s *Scheduler) AddTask(id string, every time.Duration, fn TaskFunc) error {
	if every <= 0 {
		return fmt.Errorf("task %s: interval must be positive", id)
	}
	return s.add(id, "@every "+every.String(), fn)
}

func (s *Scheduler) add(id, spec string, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.run(id, fn)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.entries[id] = entryID

	s.logger.Debug("scheduled task", "task_id", id, "schedule", spec)

	return nil
}

// RemoveTask cancels a task. Unknown ids are ignored.
func (s *Scheduler) RemoveTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
		s.logger.Debug("removed task", "task_id", id)
	}
}

// HasTask reports whether id is registered
func (s *Scheduler) HasTask(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Scheduler) run(id string, fn TaskFunc) {
	startTime := time.Now()

	if err := fn(s.taskContext()); err != nil {
		s.logger.Warn("task failed",
			"task_id", id,
			"error", err,
			"duration", time.Since(startTime))
		return
	}

	s.logger.Debug("task completed",
		"task_id", id,
		"duration", time.Since(startTime))
}

// SpecFor builds the five-field cron expression matching a schedule.
// Weekly days use cron numbering (0 is Sunday), monthly days are 1-31.
func SpecFor(sch *models.Schedule) (string, error) {
	hour, minute, err := parseClock(sch.Time)
	if err != nil {
		return "", err
	}

	switch sch.Frequency {
	case models.FrequencyHourly:
		return fmt.Sprintf("%d * * * *", minute), nil
	case models.FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case models.FrequencyWeekly:
		day := 1
		if sch.Day != nil {
			day = *sch.Day
		}
		if day < 0 || day > 6 {
			return "", fmt.Errorf("%w: weekday %d", ErrInvalidSchedule, day)
		}
		return fmt.Sprintf("%d %d * * %d", minute, hour, day), nil
	case models.FrequencyMonthly:
		day := 1
		if sch.Day != nil {
			day = *sch.Day
		}
		if day < 1 || day > 31 {
			return "", fmt.Errorf("%w: day of month %d", ErrInvalidSchedule, day)
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, day), nil
	default:
		return "", fmt.Errorf("%w: frequency %q", ErrInvalidSchedule, sch.Frequency)
	}
}

// parseClock reads "HH:MM". An empty value means midnight.
func parseClock(value string) (int, int, error) {
	if value == "" {
		return 0, 0, nil
	}
	h, m, ok := strings.Cut(value, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSchedule, value)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSchedule, value)
	}
	// tolerate a trailing ":SS"
	m, _, _ = strings.Cut(m, ":")
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSchedule, value)
	}
	return hour, minute, nil
}

// NextRuns returns the next count activations of spec after from, in from's location
func NextRuns(spec string, from time.Time, count int) ([]time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	runs := make([]time.Time, 0, count)
	next := from
	for i := 0; i < count; i++ {
		next = schedule.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}

	return runs, nil
}

// Preview returns the next count runs for a schedule, or nil when it cannot be expressed
func Preview(sch *models.Schedule, from time.Time, count int) []time.Time {
	spec, err := SpecFor(sch)
	if err != nil {
		return nil
	}
	runs, err := NextRuns(spec, from, count)
	if err != nil {
		return nil
	}
	return runs
}
