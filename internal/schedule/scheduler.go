package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"trade-alert-relay/internal/config"
	"trade-alert-relay/internal/relay"
)

// Flows are the jobs the scheduler triggers.
type Flows interface {
	PostTradesFlow(ctx context.Context) (relay.Report, error)
	PostPositionsFlow(ctx context.Context) (relay.Report, error)
}

// Scheduler triggers the trades flow on trading-day mornings and the
// positions flow once a week before the open.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	flows  Flows
	runCtx context.Context
	jobs   map[string]cron.EntryID
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler validates the cron specs and registers both jobs.
func NewScheduler(cfg *config.Schedule, flows Flows, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
	}

	logger = logger.Named("scheduler")
	cl := cronLogger{l: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		flows:  flows,
		runCtx: context.Background(),
		jobs:   make(map[string]cron.EntryID),
	}

	if err := s.add(relay.FlowTrades, cfg.Trades, flows.PostTradesFlow); err != nil {
		return nil, err
	}
	if err := s.add(relay.FlowPositions, cfg.Positions, flows.PostPositionsFlow); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, flow func(context.Context) (relay.Report, error)) error {
	id, err := s.cron.AddFunc(spec, func() { s.runJob(name, flow) })
	if err != nil {
		return fmt.Errorf("invalid cron spec %q for %s: %w", spec, name, err)
	}
	s.jobs[name] = id
	return nil
}

// runJob runs one flow to completion. Errors are already logged by the flow;
// the job just waits for its next trigger.
func (s *Scheduler) runJob(name string, flow func(context.Context) (relay.Report, error)) {
	s.logger.Info("Job triggered", zap.String("job", name))
	if _, err := flow(s.runCtx); err != nil {
		s.logger.Warn("Job failed, waiting for next trigger", zap.String("job", name), zap.Error(err))
	}
}

// Next reports the next trigger time of the named job after t.
func (s *Scheduler) Next(name string, t time.Time) (time.Time, bool) {
	id, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Schedule.Next(t.In(s.cron.Location())), true
}

// Run starts the scheduler and blocks until ctx is cancelled. A job that is
// running at that point is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.runCtx = context.WithoutCancel(ctx)
	s.cron.Start()
	for name, id := range s.jobs {
		s.logger.Info("Job scheduled", zap.String("job", name), zap.Time("next", s.cron.Entry(id).Next))
	}

	<-ctx.Done()
	s.logger.Info("Stopping scheduler...")
	<-s.cron.Stop().Done()
}
