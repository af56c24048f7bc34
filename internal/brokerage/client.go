package brokerage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"trade-alert-relay/internal/restclient"
)

const (
	transactionTypeTrade = "TRADE"
	startDateLayout      = "2006-01-02"
)

// ClientInterface defines the read operations the relay needs from the brokerage.
type ClientInterface interface {
	FetchRecentTransactions(ctx context.Context, accountID string, cred Credential) ([]json.RawMessage, error)
	FetchPositions(ctx context.Context, accountID string, cred Credential) (json.RawMessage, error)
}

// Client reads account data from the brokerage REST API.
type Client struct {
	rest   *restclient.Client
	logger *zap.Logger
	now    func() time.Time
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a brokerage API client.
func NewClient(rest *restclient.Client, logger *zap.Logger) *Client {
	return &Client{rest: rest, logger: logger.Named("brokerage"), now: time.Now}
}

// FetchRecentTransactions returns the raw TRADE transactions dated from
// yesterday onward. The server filter is by calendar date only; callers
// apply the precise recency window.
func (c *Client) FetchRecentTransactions(ctx context.Context, accountID string, cred Credential) ([]json.RawMessage, error) {
	startDate := c.now().AddDate(0, 0, -1).Format(startDateLayout)

	req := c.rest.R(ctx).
		SetAuthToken(cred.AccessToken).
		SetQueryParams(map[string]string{
			"type":      transactionTypeTrade,
			"startDate": startDate,
		}).
		SetResult(&[]json.RawMessage{})

	path := "/accounts/" + url.PathEscape(accountID) + "/transactions"
	resp, err := c.rest.Do(ctx, http.MethodGet, path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	records := *resp.Result().(*[]json.RawMessage)
	c.logger.Debug("Fetched transactions", zap.Int("count", len(records)), zap.String("start_date", startDate))
	return records, nil
}

// FetchPositions returns the raw account payload including its positions.
func (c *Client) FetchPositions(ctx context.Context, accountID string, cred Credential) (json.RawMessage, error) {
	req := c.rest.R(ctx).
		SetAuthToken(cred.AccessToken).
		SetQueryParam("fields", "positions").
		SetResult(&json.RawMessage{})

	path := "/accounts/" + url.PathEscape(accountID)
	resp, err := c.rest.Do(ctx, http.MethodGet, path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	return *resp.Result().(*json.RawMessage), nil
}
