package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/metrics"
)

type maintenanceJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// MaintenanceService hosts the periodic upkeep jobs: cache cleanup, memory
// and global memory maintenance, metrics pruning and lock sweeping. Each job
// runs on its own ticker goroutine with panic recovery, so one failing job
// never stops the others.
type MaintenanceService struct {
	mu      sync.Mutex
	jobs    []maintenanceJob
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewMaintenanceService() *MaintenanceService {
	return &MaintenanceService{}
}

// RegisterJob adds a named periodic job. Jobs registered after Start join
// on the next Start.
func (s *MaintenanceService) RegisterJob(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, maintenanceJob{name: name, interval: interval, run: run})
}

// JobNames lists registered jobs in registration order.
func (s *MaintenanceService) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.name
	}
	return names
}

// Start launches one goroutine per registered job. Calling Start on a
// running scheduler is a no-op.
func (s *MaintenanceService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(runCtx, job)
	}
	log.Info().Int("jobs", len(s.jobs)).Msg("maintenance scheduler started")
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Info().Msg("maintenance scheduler stopped")
}

// RunAll executes every registered job once, immediately. Failures stay
// isolated per job.
func (s *MaintenanceService) RunAll(ctx context.Context) {
	s.mu.Lock()
	jobs := make([]maintenanceJob, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, job := range jobs {
		s.execute(ctx, job)
	}
}

func (s *MaintenanceService) runJob(ctx context.Context, job maintenanceJob) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, job)
		}
	}
}

// execute runs one job cycle, recovering panics so the ticker survives.
func (s *MaintenanceService) execute(ctx context.Context, job maintenanceJob) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SchedulerRunsTotal.WithLabelValues(job.name, "error").Inc()
			log.Error().Interface("panic", r).Str("job", job.name).Msg("maintenance job panicked")
		}
	}()

	start := time.Now()
	if err := job.run(ctx); err != nil {
		metrics.SchedulerRunsTotal.WithLabelValues(job.name, "error").Inc()
		log.Error().Err(err).Str("job", job.name).Msg("maintenance job failed")
		return
	}
	metrics.SchedulerRunsTotal.WithLabelValues(job.name, "ok").Inc()
	log.Debug().Str("job", job.name).Dur("took", time.Since(start)).Msg("maintenance job finished")
}
