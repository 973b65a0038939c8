// Package scheduler drives the periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/metrics"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Config struct {
	PriceSchedule    string
	ScannerSchedule  string
	StrategySchedule string
}

type Jobs struct {
	Ingest   Job
	Scanner  Job
	Strategy Job
}

type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	metrics *metrics.Recorder

	ingest  *runner
	scanner *runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func New(cfg Config, jobs Jobs, log zerolog.Logger, rec *metrics.Recorder) (*Scheduler, error) {
	cronLog := log.With().Str("component", "cron").Logger()
	logger := cron.PrintfLogger(&cronLog)

	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		log:     log,
		metrics: rec,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.ingest = s.newRunner(jobs.Ingest)
	s.scanner = s.newRunner(jobs.Scanner)
	strategy := s.newRunner(jobs.Strategy)

	for _, e := range []struct {
		spec string
		r    *runner
	}{
		{cfg.PriceSchedule, s.ingest},
		{cfg.ScannerSchedule, s.scanner},
		{cfg.StrategySchedule, strategy},
	} {
		r := e.r
		if _, err := s.cron.AddFunc(e.spec, func() { r.run(s.ctx, false) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", r.job.Name(), e.spec, err)
		}
		log.Info().Str("job", r.job.Name()).Str("schedule", e.spec).Msg("job scheduled")
	}
	return s, nil
}

// Start begins the cron loop and runs the scanner once right away.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Warn().Msg("scheduler already running")
		return
	}
	s.running = true
	s.cron.Start()
	s.goRun(s.scanner, false)
	s.log.Info().Msg("scheduler started")
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerIngest requests an out-of-cycle ingestion run. Requests arriving
// while ingestion is busy collapse into one follow-up run.
func (s *Scheduler) TriggerIngest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.goRun(s.ingest, true)
}

// goRun must be called with s.mu held.
func (s *Scheduler) goRun(r *runner, coalesce bool) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.run(s.ctx, coalesce)
	}()
}

// runner guards one job against overlapping with itself.
type runner struct {
	job     Job
	log     zerolog.Logger
	metrics *metrics.Recorder

	mu      sync.Mutex
	busy    bool
	pending bool
}

func (s *Scheduler) newRunner(j Job) *runner {
	return &runner{job: j, log: s.log.With().Str("job", j.Name()).Logger(), metrics: s.metrics}
}

// run executes the job unless it is already running. A busy job drops a
// scheduled tick; with coalesce it queues a single follow-up instead.
func (r *runner) run(ctx context.Context, coalesce bool) {
	r.mu.Lock()
	if r.busy {
		if coalesce {
			r.pending = true
		} else {
			r.metrics.JobSkipped(r.job.Name())
			r.log.Warn().Msg("previous run still in progress, tick skipped")
		}
		r.mu.Unlock()
		return
	}
	r.busy = true
	r.mu.Unlock()

	for {
		r.execute(ctx)

		r.mu.Lock()
		if !r.pending || ctx.Err() != nil {
			r.busy, r.pending = false, false
			r.mu.Unlock()
			return
		}
		r.pending = false
		r.mu.Unlock()
	}
}

func (r *runner) execute(ctx context.Context) {
	start := time.Now()
	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		took := time.Since(start)
		r.metrics.JobRun(r.job.Name(), took, err)
		if err != nil {
			r.log.Error().Err(err).Dur("took", took).Msg("job failed")
			return
		}
		r.log.Info().Dur("took", took).Msg("job finished")
	}()
	err = r.job.Run(ctx)
}
