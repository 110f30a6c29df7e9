package background

import (
	"context"
	"log"
	"sync"
	"time"

	"mercaplaza/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the recurring reconciliation jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	reconSvc  *jobs.ReconciliationService
	jobJobs   map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(reconSvc *jobs.ReconciliationService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		reconSvc:  reconSvc,
		jobJobs:   make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	// Reconciliation sweep - every hour
	sweepJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.runReconciliationSweep),
		gocron.WithName("reconciliation-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create reconciliation sweep job: %v", err)
	} else {
		js.jobJobs["reconciliation-sweep"] = sweepJob
	}

	// Daily financial metrics - every 24 hours
	metricsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.reportDailyMetrics),
		gocron.WithName("daily-financial-metrics"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create daily metrics job: %v", err)
	} else {
		js.jobJobs["daily-metrics"] = metricsJob
	}

	log.Printf("Registered %d background jobs", len(js.jobJobs))
}

func (js *JobScheduler) runReconciliationSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	js.reconSvc.RunSweep(ctx)
}

func (js *JobScheduler) reportDailyMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	js.reconSvc.ReportDailyMetrics(ctx)
}
