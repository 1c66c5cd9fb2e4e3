package observer

import (
	"regexp"
	"strconv"

	"solana-trade-engine/internal/domain"
)

// EventParser extracts trade events from bonding curve program logs.
type EventParser struct {
	buyPattern    *regexp.Regexp
	sellPattern   *regexp.Regexp
	createPattern *regexp.Regexp
	mintPattern   *regexp.Regexp
	userPattern   *regexp.Regexp
	basePattern   *regexp.Regexp
	quotePattern  *regexp.Regexp
}

// NewEventParser creates a parser for the curve program's log format.
func NewEventParser() *EventParser {
	return &EventParser{
		buyPattern:    regexp.MustCompile(`Program log: Instruction: Buy`),
		sellPattern:   regexp.MustCompile(`Program log: Instruction: Sell`),
		createPattern: regexp.MustCompile(`Program log: Instruction: Create`),
		mintPattern:   regexp.MustCompile(`mint=([A-Za-z0-9]+)`),
		userPattern:   regexp.MustCompile(`user=([A-Za-z0-9]+)`),
		basePattern:   regexp.MustCompile(`(?:base_amount|token_amount)[=:]\s*(\d+)`),
		quotePattern:  regexp.MustCompile(`(?:quote_amount|sol_amount)[=:]\s*(\d+)`),
	}
}

// ParseTradeEvents extracts the trade events from one notification's logs.
// An instruction line closes the event being accumulated; mint, user, and
// amount lines may appear before or after it within the same invocation.
func (p *EventParser) ParseTradeEvents(logs []string, signature string, slot int64, blockTime int64) []*domain.TradeEvent {
	var events []*domain.TradeEvent
	var current *domain.TradeEvent

	flush := func() {
		if current != nil && current.Mint != "" {
			events = append(events, current)
		}
		current = nil
	}

	for _, line := range logs {
		var kind domain.OperationKind
		switch {
		case p.buyPattern.MatchString(line):
			kind = domain.OpBuy
		case p.sellPattern.MatchString(line):
			kind = domain.OpSell
		case p.createPattern.MatchString(line):
			kind = domain.OpCreateAndBuy
		}

		if kind != "" {
			flush()
			current = &domain.TradeEvent{
				Signature: signature,
				Slot:      slot,
				Kind:      kind,
				BlockTime: blockTime,
			}
			continue
		}

		if current == nil {
			continue
		}

		if m := p.mintPattern.FindStringSubmatch(line); m != nil {
			current.Mint = m[1]
		}
		if m := p.userPattern.FindStringSubmatch(line); m != nil {
			current.Account = m[1]
		}
		if m := p.basePattern.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				current.BaseAmount = v
			}
		}
		if m := p.quotePattern.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				current.QuoteAmount = v
			}
		}
	}

	flush()
	return events
}
