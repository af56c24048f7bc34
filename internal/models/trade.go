package models

// InstrumentKind classifies a transaction or position.
type InstrumentKind string

const (
	InstrumentEquity InstrumentKind = "EQUITY"
	InstrumentOption InstrumentKind = "OPTION"
)

// Supported reports whether alerts can be rendered for the kind.
func (k InstrumentKind) Supported() bool {
	return k == InstrumentEquity || k == InstrumentOption
}

// EquityDescription is the asset description used for every equity trade.
const EquityDescription = "SHARES"

// Trade is one executed transaction from the prior trading day, normalised
// for rendering. Quantity and Price hold the literal values reported by the
// brokerage so they are rendered exactly as received.
type Trade struct {
	Quantity         string
	Ticker           string
	AssetDescription string
	Price            string
	Date             string
	Time             string
	Instrument       InstrumentKind
	TradeType        string // e.g. "BUY TRADE"
}
