package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-alert-relay/internal/brokerage"
	"trade-alert-relay/internal/extract"
	"trade-alert-relay/internal/models"
	"trade-alert-relay/internal/social"
)

const (
	FlowTrades    = "post-trades"
	FlowPositions = "post-positions"
)

// TokenSource yields a brokerage access token for one flow run.
type TokenSource interface {
	Acquire(ctx context.Context) (brokerage.Credential, error)
}

// Publisher posts rendered alerts to the social account.
type Publisher interface {
	PostTrades(ctx context.Context, trades []models.Trade) social.Result
	PostPositions(ctx context.Context, tickers []string) error
}

// Report summarises one flow run.
type Report struct {
	Flow     string
	RunID    string
	Found    int
	Posted   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Relay wires the brokerage reads to the social posts.
type Relay struct {
	logger    *zap.Logger
	tokens    TokenSource
	broker    brokerage.ClientInterface
	poster    Publisher
	accountID string
	now       func() time.Time
}

// NewRelay creates a Relay for accountID.
func NewRelay(logger *zap.Logger, accountID string, tokens TokenSource, broker brokerage.ClientInterface, poster Publisher) *Relay {
	return &Relay{
		logger:    logger.Named("relay"),
		tokens:    tokens,
		broker:    broker,
		poster:    poster,
		accountID: accountID,
		now:       time.Now,
	}
}

func (r *Relay) start(flow string) (Report, *zap.Logger) {
	report := Report{Flow: flow, RunID: uuid.NewString()}
	l := r.logger.With(zap.String("flow", flow), zap.String("run_id", report.RunID))
	l.Info("Flow started")
	return report, l
}

func (r *Relay) finish(l *zap.Logger, report *Report, started time.Time, err error) {
	report.Duration = r.now().Sub(started)
	fields := []zap.Field{
		zap.Int("found", report.Found),
		zap.Int("posted", report.Posted),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	}
	if err != nil {
		l.Error("Flow failed", append(fields, zap.Error(err))...)
		return
	}
	if report.Failed > 0 {
		l.Warn("Flow finished with failures", fields...)
		return
	}
	l.Info("Flow finished", fields...)
}

// PostTradesFlow posts an alert for every equity or option trade executed
// in the 24 hours before now.
func (r *Relay) PostTradesFlow(ctx context.Context) (report Report, err error) {
	started := r.now()
	report, l := r.start(FlowTrades)
	defer func() { r.finish(l, &report, started, err) }()

	cred, err := r.tokens.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: %w", FlowTrades, err)
	}

	records, err := r.broker.FetchRecentTransactions(ctx, r.accountID, cred)
	if err != nil {
		return report, fmt.Errorf("%s: %w", FlowTrades, err)
	}

	trades := extract.Trades(records, r.now(), l)
	report.Found = len(trades)
	l.Info("Trades extracted", zap.Int("records", len(records)), zap.Int("trades", len(trades)))
	if len(trades) == 0 {
		return report, nil
	}

	res := r.poster.PostTrades(ctx, trades)
	report.Posted, report.Failed, report.Skipped = res.Posted, res.Failed, res.Skipped
	return report, nil
}

// PostPositionsFlow posts the summary of currently held tickers.
func (r *Relay) PostPositionsFlow(ctx context.Context) (report Report, err error) {
	started := r.now()
	report, l := r.start(FlowPositions)
	defer func() { r.finish(l, &report, started, err) }()

	cred, err := r.tokens.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: %w", FlowPositions, err)
	}

	payload, err := r.broker.FetchPositions(ctx, r.accountID, cred)
	if err != nil {
		return report, fmt.Errorf("%s: %w", FlowPositions, err)
	}

	tickers := extract.Positions(payload, l)
	report.Found = len(tickers)

	if err = r.poster.PostPositions(ctx, tickers); err != nil {
		report.Failed = 1
		return report, fmt.Errorf("%s: %w", FlowPositions, err)
	}
	report.Posted = 1
	return report, nil
}
