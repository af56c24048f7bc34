package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"trade-alert-relay/internal/relay"
	"trade-alert-relay/internal/schedule"
)

// runCmd runs both flows on their cron schedules until interrupted.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the trade and position jobs on their schedules" }
func (*runCmd) Usage() string {
	return `tradebot run

  Posts prior-day trades on trading-day mornings and the position summary
  once a week, until SIGINT or SIGTERM.
`
}

func (*runCmd) SetFlags(*flag.FlagSet) {}

func (*runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := loadApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	defer a.log.Sync()

	sched, err := schedule.NewScheduler(&a.cfg.Schedule, a.relay, a.log)
	if err != nil {
		a.log.Error("Failed to configure scheduler", zap.Error(err))
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Run(ctx)
	a.log.Info("Bot has been shut down.")
	return subcommands.ExitSuccess
}

// flowCmd runs a single flow once, for use from an external dispatcher.
type flowCmd struct {
	name     string
	synopsis string
	run      func(*relay.Relay, context.Context) (relay.Report, error)
}

func (c *flowCmd) Name() string     { return c.name }
func (c *flowCmd) Synopsis() string { return c.synopsis }
func (c *flowCmd) Usage() string {
	return "tradebot " + c.name + "\n\n  " + c.synopsis + ", then exit.\n"
}

func (*flowCmd) SetFlags(*flag.FlagSet) {}

func (c *flowCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := loadApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	defer a.log.Sync()

	report, err := c.run(a.relay, ctx)
	if err != nil || report.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func newTradesCmd() *flowCmd {
	return &flowCmd{
		name:     "trades",
		synopsis: "post alerts for trades executed in the last 24 hours",
		run:      (*relay.Relay).PostTradesFlow,
	}
}

func newPositionsCmd() *flowCmd {
	return &flowCmd{
		name:     "positions",
		synopsis: "post the current positions summary",
		run:      (*relay.Relay).PostPositionsFlow,
	}
}
