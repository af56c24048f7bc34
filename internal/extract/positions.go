package extract

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// NoPositions is reported in place of an empty position list.
const NoPositions = "No active positions"

type rawPositionsPayload struct {
	SecuritiesAccount *struct {
		Positions []struct {
			Instrument *struct {
				Symbol string `json:"symbol"`
			} `json:"instrument"`
		} `json:"positions"`
	} `json:"securitiesAccount"`
}

// Positions returns the distinct base tickers of the account's positions in
// first-seen order. Option and multi-lot symbols collapse onto the part
// before the first underscore. An absent, malformed or empty payload yields
// the single entry NoPositions.
func Positions(payload json.RawMessage, logger *zap.Logger) []string {
	var data rawPositionsPayload
	if len(payload) == 0 {
		return []string{NoPositions}
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		logger.Warn("Malformed positions payload", zap.Error(err))
		return []string{NoPositions}
	}
	if data.SecuritiesAccount == nil {
		return []string{NoPositions}
	}

	var tickers []string
	seen := make(map[string]struct{})
	for i, position := range data.SecuritiesAccount.Positions {
		if position.Instrument == nil || position.Instrument.Symbol == "" {
			logger.Warn("Skipping position without symbol", zap.Int("index", i))
			continue
		}
		ticker, _, _ := strings.Cut(position.Instrument.Symbol, "_")
		if _, ok := seen[ticker]; ok {
			continue
		}
		seen[ticker] = struct{}{}
		tickers = append(tickers, ticker)
	}

	if len(tickers) == 0 {
		return []string{NoPositions}
	}
	return tickers
}
