// Package observer consumes ledger log subscriptions, parses trade events
// from program logs, and archives them to the audit store. It runs outside
// the engine; the engine never depends on observed events.
package observer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-trade-engine/internal/chain"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// Config holds observer parameters.
type Config struct {
	// ProgramID is the bonding curve program whose logs are observed.
	ProgramID string

	// BatchSize flushes the event buffer when it reaches this many events.
	BatchSize int

	// FlushInterval flushes a non-empty buffer at least this often.
	FlushInterval time.Duration
}

// DefaultConfig returns the standard observer parameters.
func DefaultConfig(programID string) Config {
	return Config{
		ProgramID:     programID,
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
	}
}

// Service subscribes to program logs and archives parsed trade events.
type Service struct {
	subs   chain.SubscriptionClient
	audit  storage.AuditStore
	parser *EventParser
	config Config
	logger *zap.Logger
}

// NewService creates an observer service.
func NewService(subs chain.SubscriptionClient, audit storage.AuditStore, config Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		subs:   subs,
		audit:  audit,
		parser: NewEventParser(),
		config: config,
		logger: logger,
	}
}

// Run subscribes and processes notifications until the context is cancelled
// or the subscription channel closes. The remaining buffer is flushed on the
// way out.
func (s *Service) Run(ctx context.Context) error {
	notifications, err := s.subs.SubscribeLogs(ctx, chain.LogsFilter{
		Mentions: []string{s.config.ProgramID},
	})
	if err != nil {
		return err
	}
	s.logger.Info("observing program logs", zap.String("program", s.config.ProgramID))

	events := make(chan *domain.TradeEvent, 1000)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case notif, ok := <-notifications:
				if !ok {
					s.logger.Info("subscription channel closed")
					return nil
				}
				s.handleNotification(ctx, notif, events)
			}
		}
	})

	g.Go(func() error {
		return s.flushLoop(ctx, events)
	})

	return g.Wait()
}

// handleNotification parses one notification and queues its events.
func (s *Service) handleNotification(ctx context.Context, notif chain.LogNotification, events chan<- *domain.TradeEvent) {
	// Failed transactions carry no completed trades.
	if notif.Err != nil {
		return
	}

	observability.UpdateHighestSlot(notif.Slot)

	parsed := s.parser.ParseTradeEvents(notif.Logs, notif.Signature, notif.Slot, time.Now().UnixMilli())
	if len(parsed) == 0 && len(notif.Logs) > 0 {
		observability.RecordEventParseError()
		return
	}

	for _, event := range parsed {
		observability.RecordEventObserved(string(event.Kind))
		select {
		case events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// flushLoop batches events into the audit store.
func (s *Service) flushLoop(ctx context.Context, events <-chan *domain.TradeEvent) error {
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	buffer := make([]*domain.TradeEvent, 0, s.config.BatchSize)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		// Flushes survive cancellation; the batch is already observed.
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.audit.InsertEvents(flushCtx, buffer); err != nil {
			observability.RecordArchiveError()
			s.logger.Warn("event archive failed", zap.Int("events", len(buffer)), zap.Error(err))
		} else {
			observability.RecordEventsArchived(len(buffer))
			s.logger.Debug("archived events", zap.Int("events", len(buffer)))
		}
		buffer = buffer[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				flush()
				return nil
			}
			buffer = append(buffer, event)
			if len(buffer) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
