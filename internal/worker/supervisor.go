package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/pkg/types"
)

// Jobs is the subset of the job runner the supervisor drives.
type Jobs interface {
	Train(ctx context.Context, freq types.Frequency) error
	Forecast(ctx context.Context, freq types.Frequency) error
}

// Schedule describes one recurring run.
type Schedule struct {
	Name      string
	Frequency types.Frequency
	Interval  time.Duration
	Run       func(ctx context.Context, freq types.Frequency) error
}

// Supervisor runs the training and forecast jobs on their intervals.
// Runs for the same frequency are serialized so a slow training run
// never overlaps the next tick.
type Supervisor struct {
	schedules []Schedule
	logger    zerolog.Logger
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup
	locks     map[types.Frequency]*sync.Mutex
}

// NewSupervisor builds the default schedule set: hourly jobs tick every
// hour, daily jobs once a day, training less often than forecasting.
func NewSupervisor(jobs Jobs, logger zerolog.Logger) *Supervisor {
	schedules := []Schedule{
		{Name: "train", Frequency: types.FrequencyHourly, Interval: 24 * time.Hour, Run: jobs.Train},
		{Name: "train", Frequency: types.FrequencyDaily, Interval: 24 * time.Hour, Run: jobs.Train},
		{Name: "forecast", Frequency: types.FrequencyHourly, Interval: time.Hour, Run: jobs.Forecast},
		{Name: "forecast", Frequency: types.FrequencyDaily, Interval: 24 * time.Hour, Run: jobs.Forecast},
	}
	return &Supervisor{
		schedules: schedules,
		logger:    logger.With().Str("component", "supervisor").Logger(),
		locks: map[types.Frequency]*sync.Mutex{
			types.FrequencyHourly: {},
			types.FrequencyDaily:  {},
		},
	}
}

func (s *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelCtx = cancel

	for _, sched := range s.schedules {
		s.wg.Add(1)
		go s.loop(ctx, sched)
	}
	s.logger.Info().Int("schedules", len(s.schedules)).Msg("started job supervisor")
}

// Stop cancels all loops and waits for in-flight runs to finish.
func (s *Supervisor) Stop() {
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
	s.wg.Wait()
	s.logger.Info().Msg("stopped")
}

func (s *Supervisor) loop(ctx context.Context, sched Schedule) {
	defer s.wg.Done()

	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOne(ctx, sched)
		}
	}
}

func (s *Supervisor) runOne(ctx context.Context, sched Schedule) {
	lock := s.locks[sched.Frequency]
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	if err := sched.Run(ctx, sched.Frequency); err != nil {
		s.logger.Error().Err(err).
			Str("job", sched.Name).
			Str("frequency", string(sched.Frequency)).
			Msg("scheduled run failed")
		return
	}
	s.logger.Info().
		Str("job", sched.Name).
		Str("frequency", string(sched.Frequency)).
		Dur("elapsed", time.Since(start)).
		Msg("scheduled run finished")
}
