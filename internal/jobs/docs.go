// Package jobs provides scheduled background tasks for the workflow engine.
//
// Jobs are cron-based, using github.com/robfig/cron/v3 with a seconds field.
//
// # Available Jobs
//
// 1. SLASweepJob - runs the SLA monitor over every open item with a deadline,
// warning owners before the deadline and escalating breaches once
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	sweep, err := jobs.NewSLASweepJob(sweepHandler, "0 * * * * *", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	jobManager := jobs.NewJobManager(sweep)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Scheduling
//
// The sweep schedule comes from SLA_SWEEP_SCHEDULE and defaults to once a
// minute. A sweep still running when the next tick fires is not overlapped;
// the tick is skipped.
//
// # Error Handling
//
// - Sweep failures are logged; the next tick retries from scratch
// - Items the sweep loses to a concurrent transition are counted as skipped
// - Failed job starts will stop any already running jobs
package jobs
