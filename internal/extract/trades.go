package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"trade-alert-relay/internal/models"
)

// TransactionDateLayout is the timestamp format of brokerage transactions.
const TransactionDateLayout = "2006-01-02T15:04:05-0700"

// RecencyWindow is how far back a transaction may be to be reported.
const RecencyWindow = 24 * time.Hour

var errMissingField = errors.New("missing field")

type rawInstrument struct {
	AssetType        string `json:"assetType"`
	Symbol           string `json:"symbol"`
	UnderlyingSymbol string `json:"underlyingSymbol"`
	Description      *string `json:"description"`
}

type rawTransactionItem struct {
	Amount     json.Number    `json:"amount"`
	Price      json.Number    `json:"price"`
	Instrument *rawInstrument `json:"instrument"`
}

type rawTransaction struct {
	TransactionDate string              `json:"transactionDate"`
	Description     *string             `json:"description"`
	TransactionItem *rawTransactionItem `json:"transactionItem"`
}

// Trades projects raw transaction records onto Trades, keeping only equity
// and option records executed in (now-24h, now]. Records that cannot be
// decoded are logged and skipped; output order follows input order.
func Trades(records []json.RawMessage, now time.Time, logger *zap.Logger) []models.Trade {
	var trades []models.Trade
	for i, record := range records {
		trade, ok, err := parseTrade(record, now)
		if err != nil {
			logger.Warn("Skipping malformed transaction", zap.Int("index", i), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		trades = append(trades, trade)
	}
	return trades
}

// parseTrade returns ok=false for well-formed records that are out of the window
// or of an unsupported instrument kind.
func parseTrade(record json.RawMessage, now time.Time) (models.Trade, bool, error) {
	var tx rawTransaction
	if err := json.Unmarshal(record, &tx); err != nil {
		return models.Trade{}, false, err
	}

	executed, err := time.Parse(TransactionDateLayout, tx.TransactionDate)
	if err != nil {
		return models.Trade{}, false, fmt.Errorf("transactionDate: %w", err)
	}
	executed = executed.Truncate(time.Second)
	if !executed.After(now.Add(-RecencyWindow)) || executed.After(now) {
		return models.Trade{}, false, nil
	}

	if tx.TransactionItem == nil || tx.TransactionItem.Instrument == nil {
		return models.Trade{}, false, fmt.Errorf("transactionItem.instrument: %w", errMissingField)
	}
	item := tx.TransactionItem
	instrument := item.Instrument

	kind := models.InstrumentKind(instrument.AssetType)
	if !kind.Supported() {
		return models.Trade{}, false, nil
	}
	if tx.Description == nil {
		return models.Trade{}, false, fmt.Errorf("description: %w", errMissingField)
	}

	t := models.Trade{
		Quantity:   item.Amount.String(),
		Price:      item.Price.String(),
		Instrument: kind,
		TradeType:  *tx.Description,
	}
	t.Date, t.Time, _ = strings.Cut(tx.TransactionDate, "T")

	if kind == models.InstrumentEquity {
		t.Ticker = instrument.Symbol
		t.AssetDescription = models.EquityDescription
	} else {
		if instrument.Description == nil {
			return models.Trade{}, false, fmt.Errorf("instrument description: %w", errMissingField)
		}
		t.Ticker = instrument.UnderlyingSymbol
		t.AssetDescription = *instrument.Description
	}

	if t.Ticker == "" {
		return models.Trade{}, false, fmt.Errorf("instrument symbol: %w", errMissingField)
	}
	if t.Quantity == "" || t.Price == "" {
		return models.Trade{}, false, fmt.Errorf("amount or price: %w", errMissingField)
	}
	return t, true, nil
}
