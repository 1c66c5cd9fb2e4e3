// Package engine sequences logical trade operations into precondition
// checks, ledger submission, confirmation polling with retry, and
// postcondition verification.
package engine

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-trade-engine/internal/chain"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/idhash"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/pricing"
	"solana-trade-engine/internal/storage"
)

// Signer produces signed operation envelopes.
type Signer interface {
	// Address returns the base58 public key of the signing account.
	Address() string

	// Sign signs the payload and returns a self-contained envelope whose
	// first 64 bytes are the ed25519 signature.
	Sign(payload []byte) []byte
}

// Config holds engine parameters.
type Config struct {
	// ProgramID is the base58 address of the bonding curve program.
	ProgramID string

	// BaseFeeLamports is the flat fee estimate added to every operation.
	BaseFeeLamports uint64

	// MinBalanceLamports is a reserve the engine never spends into.
	MinBalanceLamports uint64

	// DedupWindow bounds how long a terminal outcome is considered fresh
	// for duplicate-intent replay. Older replays are served with a warning.
	DedupWindow time.Duration

	// InitialVirtualBase and InitialVirtualQuote are the reserves a newly
	// created curve starts with, used to quote the initial buy.
	InitialVirtualBase  uint64
	InitialVirtualQuote uint64

	Backoff BackoffPolicy
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig(programID string) Config {
	return Config{
		ProgramID:           programID,
		BaseFeeLamports:     5_000,
		MinBalanceLamports:  1_000_000,
		DedupWindow:         10 * time.Minute,
		InitialVirtualBase:  1_073_000_000_000_000,
		InitialVirtualQuote: 30_000_000_000,
		Backoff:             DefaultBackoffPolicy(),
	}
}

// Orchestrator executes trade intents. Safe for concurrent use; the
// operation log's compare-and-insert on intent hash is the serialization
// point between concurrent executions of the same intent.
type Orchestrator struct {
	client chain.Client
	oplog  storage.OperationLog
	audit  storage.AuditStore // optional
	signer Signer
	config Config
	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator. audit may be nil; audit writes
// are best-effort and never fail an operation.
func NewOrchestrator(client chain.Client, oplog storage.OperationLog, audit storage.AuditStore, signer Signer, config Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client: client,
		oplog:  oplog,
		audit:  audit,
		signer: signer,
		config: config,
		logger: logger,
	}
}

// operationPayload is the canonical signed content of one submission. The
// retry key makes each resubmission a distinct ledger-side operation.
type operationPayload struct {
	Kind        domain.OperationKind `json:"kind"`
	Account     string               `json:"account"`
	Mint        string               `json:"mint"`
	Amount      uint64               `json:"amount"`
	MinOut      uint64               `json:"min_out"`
	PriorityFee uint64               `json:"priority_fee,omitempty"`
	RetryKey    string               `json:"retry_key"`
}

// Execute runs one logical trade operation to a terminal outcome.
//
// A duplicate intent (same hash) returns the prior outcome without a second
// ledger submission. Cancellation during confirmation polling leaves the
// record in SUBMITTED state for later reconciliation; ledger operations are
// not revocable.
func (o *Orchestrator) Execute(ctx context.Context, intent *domain.TradeIntent) (*domain.OperationOutcome, error) {
	if err := intent.Validate(); err != nil {
		observability.RecordPreconditionError("invalid_parameter")
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	intentHash := idhash.ComputeIntentHash(intent)
	logger := o.logger.With(
		zap.String("intent_hash", intentHash),
		zap.String("kind", string(intent.Kind)),
		zap.String("mint", intent.Mint),
	)

	now := time.Now().UTC()
	rec := &domain.SubmissionRecord{
		IntentHash:  intentHash,
		Intent:      *intent,
		Status:      domain.StatusCreated,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	// Compare-and-insert on intent hash. Losing the race means this exact
	// intent was already executed or is executing.
	if err := o.oplog.Insert(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return o.replay(ctx, intentHash, logger)
		}
		return nil, fmt.Errorf("reserve intent: %w", err)
	}

	observability.RecordOperationStarted(string(intent.Kind))
	start := time.Now()

	expected, minOut, preQuote, preToken, err := o.prepare(ctx, intent, logger)
	if err != nil {
		return nil, o.failRecord(ctx, rec, err, logger)
	}
	rec.ExpectedOut = expected
	rec.MinOut = minOut

	logger.Info("executing operation",
		zap.Uint64("amount", intent.Amount),
		zap.Uint64("expected_out", expected),
		zap.Uint64("min_out", minOut),
		zap.Uint32("slippage_bps", intent.SlippageBps),
	)

	outcome, err := o.submitLoop(ctx, rec, intent, minOut, logger)
	if err != nil && outcome == nil {
		// Cancelled mid-flight; the record stays SUBMITTED.
		return nil, err
	}

	if outcome.Status == domain.StatusConfirmed {
		o.verifyPostconditions(ctx, intent, preQuote, preToken, logger)
	}

	observability.RecordOperationFinished(string(intent.Kind), string(outcome.Status), time.Since(start).Seconds())
	return outcome, err
}

// replay serves a duplicate intent from the operation log.
func (o *Orchestrator) replay(ctx context.Context, intentHash string, logger *zap.Logger) (*domain.OperationOutcome, error) {
	prior, err := o.oplog.GetByIntentHash(ctx, intentHash)
	if err != nil {
		return nil, fmt.Errorf("lookup duplicate intent: %w", err)
	}

	if !prior.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrInFlight, prior.Status)
	}

	if age := time.Since(prior.UpdatedAt); age > o.config.DedupWindow {
		logger.Warn("replaying outcome older than dedup window", zap.Duration("age", age))
	}

	observability.RecordReplay()
	logger.Info("duplicate intent, replaying prior outcome", zap.String("status", string(prior.Status)))

	outcome := outcomeFromRecord(prior)
	outcome.Replayed = true
	return outcome, terminalError(prior)
}

// prepare runs precondition checks and computes the quote. It returns the
// expected output, the slippage floor, and the pre-trade balances used for
// postcondition verification.
func (o *Orchestrator) prepare(ctx context.Context, intent *domain.TradeIntent, logger *zap.Logger) (expected, minOut, preQuote, preToken uint64, err error) {
	curveAddr, err := chain.DeriveCurveAddress(intent.Mint, o.config.ProgramID)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	state, err := o.client.GetCurveState(ctx, curveAddr)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("read curve state: %w", err)
	}

	switch intent.Kind {
	case domain.OpBuy, domain.OpSell:
		if state == nil {
			return 0, 0, 0, 0, fmt.Errorf("%w: no bonding curve for mint %s", ErrAssetNotFound, intent.Mint)
		}
		if state.Complete {
			return 0, 0, 0, 0, fmt.Errorf("%w: bonding curve for mint %s is complete", ErrAssetNotFound, intent.Mint)
		}
	case domain.OpCreateAndBuy:
		if state != nil {
			return 0, 0, 0, 0, fmt.Errorf("%w: mint %s already has a bonding curve", ErrInvalidParameter, intent.Mint)
		}
		// Quote the initial buy against the reserves a fresh curve starts with.
		state = &domain.BondingCurveState{
			VirtualBase:  o.config.InitialVirtualBase,
			VirtualQuote: o.config.InitialVirtualQuote,
			RealBase:     o.config.InitialVirtualBase,
		}
	}

	baseFee, err := o.client.EstimateFee(ctx)
	if err != nil || baseFee == 0 {
		// Configured estimate stands in when the ledger cannot be asked.
		baseFee = o.config.BaseFeeLamports
	}
	fee := baseFee + intent.PriorityFee

	preQuote, err = o.client.GetBalance(ctx, intent.Account)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("read balance: %w", err)
	}
	preToken, err = o.client.GetTokenBalance(ctx, intent.Account, intent.Mint)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("read token balance: %w", err)
	}

	var direction domain.TradeDirection
	switch intent.Kind {
	case domain.OpBuy, domain.OpCreateAndBuy:
		direction = domain.QuoteToBase
		required := intent.Amount + fee + o.config.MinBalanceLamports
		if preQuote < required {
			observability.RecordPreconditionError("insufficient_funds")
			return 0, 0, 0, 0, fmt.Errorf("%w: balance %d < required %d", ErrInsufficientFunds, preQuote, required)
		}
	case domain.OpSell:
		direction = domain.BaseToQuote
		if preToken < intent.Amount {
			observability.RecordPreconditionError("insufficient_funds")
			return 0, 0, 0, 0, fmt.Errorf("%w: token balance %d < amount %d", ErrInsufficientFunds, preToken, intent.Amount)
		}
		if preQuote < fee+o.config.MinBalanceLamports {
			observability.RecordPreconditionError("insufficient_funds")
			return 0, 0, 0, 0, fmt.Errorf("%w: balance %d cannot cover fee %d", ErrInsufficientFunds, preQuote, fee)
		}
	}

	expected, err = pricing.QuoteOutput(state, intent.Amount, direction)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: %v", ErrAssetNotFound, err)
	}
	minOut = pricing.MinAcceptable(expected, intent.SlippageBps)
	return expected, minOut, preQuote, preToken, nil
}

// submitLoop runs the submission and confirmation state machine until a
// terminal status or cancellation. A resubmission happens only after the
// previous signature re-queries as UNKNOWN; a PENDING signature is polled
// for another budget round instead, so one intent can never confirm twice.
func (o *Orchestrator) submitLoop(ctx context.Context, rec *domain.SubmissionRecord, intent *domain.TradeIntent, minOut uint64, logger *zap.Logger) (*domain.OperationOutcome, error) {
	var (
		signature    string
		needSubmit   = true
		submitFailed bool
	)

	for round := uint32(1); ; round++ {
		if needSubmit {
			retryKey := idhash.ComputeRetryKey(rec.IntentHash, rec.RetryCount)
			payload, err := json.Marshal(operationPayload{
				Kind:        intent.Kind,
				Account:     intent.Account,
				Mint:        intent.Mint,
				Amount:      intent.Amount,
				MinOut:      minOut,
				PriorityFee: intent.PriorityFee,
				RetryKey:    retryKey,
			})
			if err != nil {
				return nil, o.failRecord(ctx, rec, fmt.Errorf("marshal payload: %w", err), logger)
			}

			envelope := o.signer.Sign(payload)
			signature = base58.Encode(envelope[:ed25519.SignatureSize])

			// Durable write before handoff: a crash after submission is
			// recoverable because the signature is already in the log.
			rec.Signature = signature
			rec.Status = domain.StatusSubmitted
			rec.RetryCount++
			rec.UpdatedAt = time.Now().UTC()
			if err := o.oplog.Update(ctx, rec); err != nil {
				return nil, o.failRecord(ctx, rec, fmt.Errorf("record submission: %w", err), logger)
			}

			observability.RecordSubmission()
			_, submitErr := o.client.SubmitTransaction(ctx, envelope)
			submitFailed = submitErr != nil
			if submitErr != nil {
				if !chain.IsRetryable(submitErr) {
					return o.finalize(ctx, rec, domain.StatusRejected, submitErr.Error(), logger)
				}
				// The request may still have reached the ledger; the status
				// query below decides whether resubmission is safe.
				logger.Warn("submission transport failure", zap.Error(submitErr))
				rec.LastError = submitErr.Error()
			} else {
				logger.Info("submitted", zap.String("signature", signature), zap.Uint32("attempt", rec.RetryCount))
			}
		}

		status, err := o.waitForConfirmation(ctx, signature, submitFailed)
		if err != nil {
			logger.Warn("confirmation wait aborted, record left submitted", zap.Error(err))
			return nil, err
		}

		switch status.State {
		case chain.StateConfirmed:
			rec.Slot = status.Slot
			return o.finalize(ctx, rec, domain.StatusConfirmed, "", logger)
		case chain.StateRejected:
			return o.finalize(ctx, rec, domain.StatusRejected, status.Err, logger)
		}

		if round >= o.config.Backoff.MaxAttempts {
			detail := fmt.Sprintf("exhausted retries after %d attempts", rec.RetryCount)
			if rec.LastError != "" {
				detail = fmt.Sprintf("%s: %s", detail, rec.LastError)
			}
			return o.finalize(ctx, rec, domain.StatusFailed, detail, logger)
		}

		// UNKNOWN permits a fresh submission; PENDING only permits waiting.
		needSubmit = status.State == chain.StateUnknown
		if needSubmit {
			rec.LastError = "confirmation timeout, signature unknown"
		} else {
			rec.LastError = "confirmation still pending after wait budget"
		}
		rec.UpdatedAt = time.Now().UTC()
		if err := o.oplog.Update(ctx, rec); err != nil {
			return nil, o.failRecord(ctx, rec, fmt.Errorf("record retry: %w", err), logger)
		}

		observability.RecordRetry()
		logger.Warn("retrying operation",
			zap.Uint32("round", round),
			zap.Bool("resubmit", needSubmit),
			zap.String("last_error", rec.LastError),
		)

		if err := sleep(ctx, o.config.Backoff.InitialDelay); err != nil {
			return nil, err
		}
	}
}

// waitForConfirmation polls the signature status until a decisive state or
// the wait budget expires. When the preceding submission failed in transport
// and the first poll reports UNKNOWN, it returns immediately so the caller
// can resubmit without burning the budget.
func (o *Orchestrator) waitForConfirmation(ctx context.Context, signature string, submitFailed bool) (*chain.SignatureStatus, error) {
	deadline := time.Now().Add(o.config.Backoff.WaitBudget)
	delay := o.config.Backoff.InitialDelay
	first := true

	for {
		status, err := o.client.GetSignatureStatus(ctx, signature)
		observability.RecordConfirmationPoll()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient query failure; keep polling against the budget.
			o.logger.Debug("status query failed", zap.String("signature", signature), zap.Error(err))
			status = &chain.SignatureStatus{State: chain.StateUnknown}
		}

		switch status.State {
		case chain.StateConfirmed, chain.StateRejected:
			return status, nil
		case chain.StateUnknown:
			if submitFailed && first {
				return status, nil
			}
		}
		first = false

		if time.Now().After(deadline) {
			// Final re-query result decides resubmission safety.
			return status, nil
		}

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = o.config.Backoff.next(delay)
	}
}

// finalize writes the terminal status, archives the record, and builds the
// caller-facing outcome.
func (o *Orchestrator) finalize(ctx context.Context, rec *domain.SubmissionRecord, status domain.SubmissionStatus, errDetail string, logger *zap.Logger) (*domain.OperationOutcome, error) {
	rec.Status = status
	rec.LastError = errDetail
	rec.UpdatedAt = time.Now().UTC()

	if err := o.oplog.Update(ctx, rec); err != nil {
		logger.Error("terminal status write failed", zap.String("status", string(status)), zap.Error(err))
	}
	o.archive(ctx, rec, logger)

	switch status {
	case domain.StatusConfirmed:
		logger.Info("operation confirmed",
			zap.String("signature", rec.Signature),
			zap.Int64("slot", rec.Slot),
			zap.Uint32("attempts", rec.RetryCount),
		)
	default:
		logger.Warn("operation terminal",
			zap.String("status", string(status)),
			zap.String("detail", errDetail),
		)
	}

	return outcomeFromRecord(rec), terminalError(rec)
}

// failRecord marks a record FAILED after a local error and returns that
// error for the caller.
func (o *Orchestrator) failRecord(ctx context.Context, rec *domain.SubmissionRecord, cause error, logger *zap.Logger) error {
	rec.Status = domain.StatusFailed
	rec.LastError = cause.Error()
	rec.UpdatedAt = time.Now().UTC()
	if err := o.oplog.Update(ctx, rec); err != nil {
		logger.Error("failure status write failed", zap.Error(err))
	}
	o.archive(ctx, rec, logger)
	logger.Warn("operation failed before terminal ledger state", zap.Error(cause))
	return cause
}

// archive writes a terminal record to the audit store, best-effort.
func (o *Orchestrator) archive(ctx context.Context, rec *domain.SubmissionRecord, logger *zap.Logger) {
	if o.audit == nil {
		return
	}
	if err := o.audit.InsertOperation(ctx, rec); err != nil {
		observability.RecordArchiveError()
		logger.Warn("audit archive failed", zap.Error(err))
	}
}

// verifyPostconditions re-reads balances after confirmation and warns when
// they did not move in the expected direction. The ledger is the source of
// truth; a mismatch is never rolled back.
func (o *Orchestrator) verifyPostconditions(ctx context.Context, intent *domain.TradeIntent, preQuote, preToken uint64, logger *zap.Logger) {
	switch intent.Kind {
	case domain.OpBuy, domain.OpCreateAndBuy:
		postToken, err := o.client.GetTokenBalance(ctx, intent.Account, intent.Mint)
		if err != nil {
			logger.Warn("postcondition read failed", zap.Error(err))
			return
		}
		if postToken <= preToken {
			logger.Warn("postcondition mismatch: token balance did not increase",
				zap.Uint64("before", preToken),
				zap.Uint64("after", postToken),
			)
		}
	case domain.OpSell:
		postQuote, err := o.client.GetBalance(ctx, intent.Account)
		if err != nil {
			logger.Warn("postcondition read failed", zap.Error(err))
			return
		}
		if postQuote <= preQuote {
			logger.Warn("postcondition mismatch: quote balance did not increase",
				zap.Uint64("before", preQuote),
				zap.Uint64("after", postQuote),
			)
		}
	}
}

// Reconcile resolves records left non-terminal by a crash or cancellation.
// Submitted records are re-queried; CREATED records never reached the
// ledger and are failed. PENDING and UNKNOWN signatures are left for the
// next pass.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	records, err := o.oplog.ListUnresolved(ctx)
	if err != nil {
		return fmt.Errorf("list unresolved: %w", err)
	}
	observability.UpdateUnresolvedRecords(len(records))

	for _, rec := range records {
		logger := o.logger.With(zap.String("intent_hash", rec.IntentHash))

		if rec.Status == domain.StatusCreated {
			rec.Status = domain.StatusFailed
			rec.LastError = "never submitted"
			rec.UpdatedAt = time.Now().UTC()
			if err := o.oplog.Update(ctx, rec); err != nil {
				logger.Warn("reconcile update failed", zap.Error(err))
			}
			continue
		}

		status, err := o.client.GetSignatureStatus(ctx, rec.Signature)
		if err != nil {
			logger.Warn("reconcile status query failed", zap.Error(err))
			continue
		}

		switch status.State {
		case chain.StateConfirmed:
			rec.Slot = status.Slot
			rec.Status = domain.StatusConfirmed
		case chain.StateRejected:
			rec.Status = domain.StatusRejected
			rec.LastError = status.Err
		default:
			continue
		}

		rec.UpdatedAt = time.Now().UTC()
		if err := o.oplog.Update(ctx, rec); err != nil {
			logger.Warn("reconcile update failed", zap.Error(err))
			continue
		}
		o.archive(ctx, rec, logger)
		logger.Info("reconciled record", zap.String("status", string(rec.Status)))
	}

	return nil
}

// outcomeFromRecord builds the caller-facing outcome from a record.
func outcomeFromRecord(rec *domain.SubmissionRecord) *domain.OperationOutcome {
	return &domain.OperationOutcome{
		IntentHash:  rec.IntentHash,
		Status:      rec.Status,
		Signature:   rec.Signature,
		Slot:        rec.Slot,
		ExpectedOut: rec.ExpectedOut,
		MinOut:      rec.MinOut,
		Err:         rec.LastError,
	}
}

// terminalError maps a terminal record to the typed error Execute returns
// alongside the outcome.
func terminalError(rec *domain.SubmissionRecord) error {
	switch rec.Status {
	case domain.StatusConfirmed:
		return nil
	case domain.StatusRejected:
		return fmt.Errorf("%w: %s", ErrRejected, rec.LastError)
	case domain.StatusFailed:
		return fmt.Errorf("%w: %s", ErrExhaustedRetries, rec.LastError)
	}
	return nil
}
