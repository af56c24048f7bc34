package social

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trade-alert-relay/internal/models"
)

// Result counts the outcome of posting a batch of trades.
type Result struct {
	Posted  int
	Failed  int
	Skipped int
}

// Poster publishes trade alerts and position summaries.
type Poster struct {
	client   ClientInterface
	index    *ThreadIndex
	logger   *zap.Logger
	pageSize int
	dryRun   bool
}

// NewPoster creates a Poster. With dryRun set, bodies are logged instead of
// published.
func NewPoster(client ClientInterface, index *ThreadIndex, pageSize int, dryRun bool, logger *zap.Logger) *Poster {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Poster{
		client:   client,
		index:    index,
		logger:   logger.Named("poster"),
		pageSize: pageSize,
		dryRun:   dryRun,
	}
}

// PostTrades publishes one alert per trade, each as a reply to the newest
// earlier post about the same ticker when there is one. A failure on one
// trade is logged and counted; the remaining trades are still attempted.
func (p *Poster) PostTrades(ctx context.Context, trades []models.Trade) Result {
	var res Result
	if len(trades) == 0 {
		return res
	}

	threaded := true
	if err := p.index.Load(ctx, p.client, p.pageSize); err != nil {
		p.logger.Warn("Could not index timeline, posting trades without threading", zap.Error(err))
		threaded = false
	}

	for _, trade := range trades {
		l := p.logger.With(
			zap.String("ticker", trade.Ticker),
			zap.String("instrument", string(trade.Instrument)),
			zap.String("trade_type", trade.TradeType),
		)

		body, ok := TradeBody(trade)
		if !ok {
			l.Warn("No alert layout for instrument, skipping trade")
			res.Skipped++
			continue
		}

		var replyTo string
		if threaded {
			id, found, err := p.index.Lookup(ctx, trade.Ticker)
			if err != nil {
				l.Warn("Thread lookup failed, posting top-level", zap.Error(err))
			} else if found {
				replyTo = id
			}
		}

		if err := p.publishTrade(ctx, body, replyTo, threaded, l); err != nil {
			l.Error("Failed to post trade alert", zap.Error(err))
			res.Failed++
			continue
		}
		res.Posted++
	}
	return res
}

func (p *Poster) publishTrade(ctx context.Context, body, replyTo string, threaded bool, l *zap.Logger) error {
	if p.dryRun {
		l.Info("Dry run, not publishing trade alert", zap.String("reply_to", replyTo), zap.String("body", body))
		return nil
	}

	post, err := p.client.Publish(ctx, body, replyTo)
	if err != nil {
		return err
	}
	l.Info("Posted trade alert", zap.String("post_id", post.ID), zap.String("reply_to", replyTo))

	if threaded {
		if err := p.index.Record(ctx, post); err != nil {
			l.Warn("Could not add post to thread index", zap.Error(err))
		}
	}
	return nil
}

// PostPositions publishes the holdings summary as a top-level post.
func (p *Poster) PostPositions(ctx context.Context, tickers []string) error {
	body := PositionsBody(tickers)
	if p.dryRun {
		p.logger.Info("Dry run, not publishing position alert", zap.String("body", body))
		return nil
	}

	post, err := p.client.Publish(ctx, body, "")
	if err != nil {
		return fmt.Errorf("failed to post positions: %w", err)
	}
	p.logger.Info("Posted position alert", zap.String("post_id", post.ID), zap.Int("tickers", len(tickers)))
	return nil
}
