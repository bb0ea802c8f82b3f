// Package scheduler runs configured prompts through the agent on a cron
// schedule. Tasks come from configuration and are fixed for the lifetime of
// the process.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/cerebricks/mailagent/internal/agent"
	"github.com/cerebricks/mailagent/internal/schema"
)

// Task is one scheduled prompt.
type Task struct {
	Name     string
	Schedule string // standard 5-field cron expression
	Prompt   string
	MaxTurns int
	Timezone string // IANA name, defaults to local
}

// TaskRunner is the slice of the agent runner the scheduler needs.
type TaskRunner interface {
	Run(ctx context.Context, req agent.Request) (schema.SessionResult, error)
}

// Service owns the cron loop.
type Service struct {
	runner TaskRunner
	tasks  []Task
	cron   *robfigcron.Cron
}

// New builds a Service over the given tasks. Invalid schedules are reported
// at Start, not here.
func New(runner TaskRunner, tasks []Task) *Service {
	return &Service{
		runner: runner,
		tasks:  tasks,
		cron:   robfigcron.New(),
	}
}

// Start arms every task and blocks until ctx is cancelled. A task with an
// invalid schedule fails Start so misconfiguration is caught at boot.
func (s *Service) Start(ctx context.Context) error {
	parser := robfigcron.NewParser(
		robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
	)
	for _, task := range s.tasks {
		sched, err := parser.Parse(task.Schedule)
		if err != nil {
			return fmt.Errorf("scheduler: task %q: invalid schedule %q: %w", task.Name, task.Schedule, err)
		}
		if task.Timezone != "" {
			loc, err := time.LoadLocation(task.Timezone)
			if err != nil {
				return fmt.Errorf("scheduler: task %q: invalid timezone %q: %w", task.Name, task.Timezone, err)
			}
			sched = withLocation(sched, loc)
		}
		t := task
		s.cron.Schedule(sched, robfigcron.FuncJob(func() { s.execute(ctx, t) }))
	}

	s.cron.Start()
	slog.Info("scheduler: started", "tasks", len(s.tasks))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

func (s *Service) execute(ctx context.Context, task Task) {
	slog.Info("scheduler: executing task", "name", task.Name)
	start := time.Now()

	result, err := s.runner.Run(ctx, agent.Request{
		Prompt:   task.Prompt,
		MaxTurns: task.MaxTurns,
	})
	if err != nil {
		slog.Error("scheduler: task failed", "name", task.Name, "err", err)
		return
	}
	slog.Info("scheduler: task finished",
		"name", task.Name,
		"status", result.Status,
		"turns", result.Turns,
		"cost_usd", result.CostUSD,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

// withLocation wraps a Schedule to always evaluate in a specific location.
type locSchedule struct {
	inner robfigcron.Schedule
	loc   *time.Location
}

func (l locSchedule) Next(t time.Time) time.Time {
	return l.inner.Next(t.In(l.loc))
}

func withLocation(s robfigcron.Schedule, loc *time.Location) robfigcron.Schedule {
	return locSchedule{inner: s, loc: loc}
}
