package jobs

import (
	"context"
	"log/slog"
	"time"

	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// DefaultSLASweepSchedule runs the sweep at the top of every minute.
const DefaultSLASweepSchedule = "0 * * * * *"

// SLASweeper runs one SLA sweep.
type SLASweeper interface {
	Handle(ctx context.Context, cmd commands.SweepSLACommand) (commands.SweepResult, error)
}

// SLASweepJob drives the SLA monitor on a cron schedule.
type SLASweepJob struct {
	handler  SLASweeper
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSLASweepJob validates the schedule up front so a typo fails start-up
// instead of silently never sweeping.
func NewSLASweepJob(handler SLASweeper, schedule string, logger *slog.Logger) (*SLASweepJob, error) {
	if handler == nil {
		return nil, errs.NewValueIsRequiredError("sweep handler")
	}
	if schedule == "" {
		schedule = DefaultSLASweepSchedule
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("sla sweep schedule", err)
	}
	return &SLASweepJob{
		handler:  handler,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "sla_sweep_job"),
	}, nil
}

func (j *SLASweepJob) Name() string { return "sla sweep" }

// Start schedules the sweep.
func (j *SLASweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() {
		_, _ = j.RunOnce(context.Background())
	}); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "SLA sweep job started", "schedule", j.schedule)
	return nil
}

// RunOnce sweeps every open item now.
func (j *SLASweepJob) RunOnce(ctx context.Context) (commands.SweepResult, error) {
	cmd, err := commands.NewSweepSLACommand(nil, time.Time{})
	if err != nil {
		return commands.SweepResult{}, err
	}
	result, err := j.handler.Handle(ctx, cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "SLA sweep job failed", "error", err)
		return result, err
	}
	return result, nil
}

// Stop stops scheduling and waits for a running sweep to finish.
func (j *SLASweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "SLA sweep job stopped")
}
