package social

import (
	"strings"

	"trade-alert-relay/internal/models"
)

// Follower bots parse these bodies, so the layout, including the trailing
// spaces before some line breaks, must not change.
const (
	tradeHeader     = "-----TRADE ALERT----- \n"
	positionHeader  = "-----POSITION ALERT----- \n"
	rule            = "--------------------------------"
	positionsMarker = "POSITION ALERT"
	buyTradeLabel   = "BUY TRADE"
)

// SignPrefix is "+" only for the exact label "BUY TRADE" and "-" for anything else.
func SignPrefix(tradeType string) string {
	if tradeType == buyTradeLabel {
		return "+"
	}
	return "-"
}

// TradeBody renders the alert for one trade. ok is false for instrument
// kinds that have no alert layout.
func TradeBody(t models.Trade) (body string, ok bool) {
	if !t.Instrument.Supported() {
		return "", false
	}
	line := SignPrefix(t.TradeType) + t.Quantity + " $" + t.AssetDescription + "\n"
	if t.Instrument == models.InstrumentEquity {
		line = SignPrefix(t.TradeType) + t.Quantity + " $" + t.Ticker + " SHARES \n"
	}

	var b strings.Builder
	b.WriteString(tradeHeader)
	b.WriteString(line)
	b.WriteString(rule + " \n")
	b.WriteString("Price: $" + t.Price + "\n")
	b.WriteString("Timestamp: " + t.Date + "@" + t.Time + "\n")
	b.WriteString(rule)
	return b.String(), true
}

// PositionsBody renders the weekly holdings summary.
func PositionsBody(tickers []string) string {
	tagged := make([]string, len(tickers))
	for i, t := range tickers {
		tagged[i] = "$" + t
	}

	var b strings.Builder
	b.WriteString(positionHeader)
	b.WriteString("Premarket Current Positions \n")
	b.WriteString(rule + " \n")
	b.WriteString(strings.Join(tagged, " ") + "\n")
	b.WriteString(rule)
	return b.String()
}
