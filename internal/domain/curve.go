package domain

// BondingCurveState is a snapshot of a constant-product bonding curve.
// All reserves are in smallest units and never negative.
type BondingCurveState struct {
	VirtualBase  uint64 // virtual token reserve
	VirtualQuote uint64 // virtual quote (lamport) reserve
	RealBase     uint64 // tokens actually held by the curve
	RealQuote    uint64 // lamports actually held by the curve
	TotalSupply  uint64
	Complete     bool // curve graduated; no further trades through it
}

// TradeDirection selects which side of the curve an input amount enters.
type TradeDirection int

const (
	// QuoteToBase spends quote for base tokens (a buy).
	QuoteToBase TradeDirection = iota

	// BaseToQuote spends base tokens for quote (a sell).
	BaseToQuote
)
