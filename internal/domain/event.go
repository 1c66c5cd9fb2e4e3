package domain

// TradeEvent is a trade observed on the ledger, parsed from program logs.
// Produced by the observer, archived for audit; never consumed by the engine.
type TradeEvent struct {
	Signature   string
	Slot        int64
	Mint        string
	Account     string
	Kind        OperationKind
	BaseAmount  uint64
	QuoteAmount uint64
	BlockTime   int64 // unix ms, zero when the notification carries none
}
