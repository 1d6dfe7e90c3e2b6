package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
	"github.com/veriport/veriport/schemas"
)

// CreateInput is the validated input for a new attestation request.
type CreateInput struct {
	Organizer   string
	StartAt     time.Time
	EndAt       time.Time
	Title       string
	Description string
}

// CreateResult reports what was pinned and submitted.
type CreateResult struct {
	ID          uint64             `json:"id"`
	TxHash      string             `json:"txHash"`
	ContentHash string             `json:"contentHash"`
	Pin         veriport.PinResult `json:"pin"`
}

// LifecycleUsecase drives the Pending -> Confirmed | Rejected state machine.
// Transitions that would violate the machine (confirming unverified content,
// acting on a finalized record) are refused before any ledger submission.
type LifecycleUsecase struct {
	ledger LedgerRepository
	store  Store
	verify *VerifyUsecase
	audit  AuditRepository
	signal SignalPublisher
	actor  string
}

func NewLifecycleUsecase(
	ledger LedgerRepository,
	store Store,
	verify *VerifyUsecase,
	audit AuditRepository,
	signal SignalPublisher,
	actor string,
) *LifecycleUsecase {
	return &LifecycleUsecase{
		ledger: ledger,
		store:  store,
		verify: verify,
		audit:  audit,
		signal: signal,
		actor:  actor,
	}
}

func (uc *LifecycleUsecase) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "Lifecycle.Usecase.Create")
	defer span.End()

	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !veriport.IsAddress(input.Organizer) {
		return nil, fmt.Errorf("invalid organizer address: %s", input.Organizer)
	}
	if input.EndAt.Before(input.StartAt) {
		return nil, fmt.Errorf("endAt cannot be earlier than startAt")
	}

	doc := schemas.Achievement{
		Title:       input.Title,
		Description: input.Description,
		StartAt:     input.StartAt.UTC().Format("2006-01-02"),
		EndAt:       input.EndAt.UTC().Format("2006-01-02"),
	}

	// The exact same byte slice is hashed and pinned. Any re-serialization
	// in between would break the commitment.
	content, err := doc.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "LifecycleUsecase.Create: encode failed")
	}
	contentHash := veriport.Digest(content)

	pin, err := uc.store.Pin(ctx, content, "veriport:"+input.Title)
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Create: pin failed"))
		return nil, err
	}

	organizer := veriport.NormalizeAddress(input.Organizer)
	id, txHash, err := uc.ledger.CreateRequest(ctx, organizer, input.StartAt, input.EndAt, contentHash, pin.URI)
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Create: ledger submission failed"))
		return nil, err
	}

	uc.bookkeep(ctx, domain.Decision{
		RequestID: id,
		Action:    domain.ActionCreate,
		Actor:     uc.actor,
		TxHash:    txHash,
		URI:       pin.URI,
		URIDigest: contentHash,
	}, veriport.Event{
		Type:      domain.EventTypeCreated,
		ID:        id,
		Actor:     uc.actor,
		URI:       pin.URI,
		Timestamp: time.Now().UTC(),
	})

	return &CreateResult{
		ID:          id,
		TxHash:      txHash,
		ContentHash: contentHash,
		Pin:         pin,
	}, nil
}

// Confirm re-reads the record, refuses terminal states and unverified
// content without touching the ledger, then submits the transition.
func (uc *LifecycleUsecase) Confirm(ctx context.Context, id uint64, resultURI string) (string, error) {
	ctx, span := tracer.Start(ctx, "Lifecycle.Usecase.Confirm")
	defer span.End()

	rec, err := uc.ledger.GetRecord(ctx, id)
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Confirm: point read failed"))
		return "", err
	}
	if rec.Status.Terminal() {
		return "", domain.AlreadyFinalizedError{ID: id, Status: rec.Status.String()}
	}

	result := uc.verify.Verify(ctx, *rec)
	if !result.OK {
		return "", domain.UnverifiedContentError{Reason: result.Reason}
	}

	txHash, err := uc.ledger.Confirm(ctx, id, resultURI)
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Confirm: ledger submission failed"))
		return "", err
	}

	uc.bookkeep(ctx, domain.Decision{
		RequestID: id,
		Action:    domain.ActionConfirm,
		Actor:     uc.actor,
		TxHash:    txHash,
		URI:       resultURI,
	}, veriport.Event{
		Type:      domain.EventTypeConfirmed,
		ID:        id,
		Actor:     uc.actor,
		URI:       resultURI,
		Timestamp: time.Now().UTC(),
	})

	return txHash, nil
}

// Reject never requires the content to verify: rejection is always
// permitted on a claim of invalid content. It pins a fresh justification
// document and submits its locator.
func (uc *LifecycleUsecase) Reject(ctx context.Context, id uint64, reason string) (string, error) {
	ctx, span := tracer.Start(ctx, "Lifecycle.Usecase.Reject")
	defer span.End()

	if reason == "" {
		return "", fmt.Errorf("rejection reason is required")
	}

	rec, err := uc.ledger.GetRecord(ctx, id)
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Reject: point read failed"))
		return "", err
	}
	if rec.Status.Terminal() {
		return "", domain.AlreadyFinalizedError{ID: id, Status: rec.Status.String()}
	}

	doc := schemas.NewRejection(reason, id, rec.Organizer, time.Now())
	content, err := doc.Encode()
	if err != nil {
		return "", errors.Wrap(err, "LifecycleUsecase.Reject: encode failed")
	}
	// The ledger keeps no commitment for the reason document; the digest is
	// recorded in the local audit log instead.
	reasonDigest := veriport.Digest(content)

	pin, err := uc.store.Pin(ctx, content, fmt.Sprintf("veriport:reject:%d", id))
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Reject: pin failed"))
		return "", err
	}

	txHash, err := uc.ledger.Reject(ctx, id, pin.URI)
	if err != nil {
		span.RecordError(errors.Wrap(err, "LifecycleUsecase.Reject: ledger submission failed"))
		return "", err
	}

	uc.bookkeep(ctx, domain.Decision{
		RequestID: id,
		Action:    domain.ActionReject,
		Actor:     uc.actor,
		TxHash:    txHash,
		URI:       pin.URI,
		URIDigest: reasonDigest,
		Detail:    reason,
	}, veriport.Event{
		Type:      domain.EventTypeRejected,
		ID:        id,
		Actor:     uc.actor,
		URI:       pin.URI,
		Timestamp: time.Now().UTC(),
	})

	return txHash, nil
}

func (uc *LifecycleUsecase) Decisions(ctx context.Context, id uint64) ([]domain.Decision, error) {
	if uc.audit == nil {
		return nil, nil
	}
	return uc.audit.ListByRequest(ctx, id)
}

// bookkeep records the submitted decision and broadcasts the event. Both
// are best-effort: the ledger transition already happened.
func (uc *LifecycleUsecase) bookkeep(ctx context.Context, decision domain.Decision, event veriport.Event) {
	if uc.audit != nil {
		if err := uc.audit.Record(ctx, decision); err != nil {
			slog.WarnContext(ctx, "failed to record decision",
				slog.Uint64("id", decision.RequestID),
				slog.String("action", decision.Action),
				slog.String("error", err.Error()),
				slog.String("module", "lifecycle"),
			)
		}
	}
	if uc.signal != nil {
		if err := uc.signal.Publish(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish event",
				slog.Uint64("id", event.ID),
				slog.String("type", event.Type),
				slog.String("error", err.Error()),
				slog.String("module", "lifecycle"),
			)
		}
	}
}
