package usecase

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
)

var tracer = otel.Tracer("usecase")

// VerifyUsecase proves that the bytes behind a record's contentURI digest
// to its on-chain commitment. Side-effect-free and idempotent; callers may
// run it both on demand and again before a confirm transition.
type VerifyUsecase struct {
	store Store
}

func NewVerifyUsecase(store Store) *VerifyUsecase {
	return &VerifyUsecase{store: store}
}

func (uc *VerifyUsecase) Verify(ctx context.Context, rec veriport.AttestationRequest) veriport.VerificationResult {
	ctx, span := tracer.Start(ctx, "Verify.Usecase.Verify")
	defer span.End()

	if !veriport.IsLocator(rec.ContentURI) {
		return veriport.VerificationResult{
			OK:     false,
			Reason: fmt.Sprintf("malformed locator: contentURI must be %s://<cid>[/path], got %q", veriport.LocatorScheme, rec.ContentURI),
		}
	}

	body, err := uc.store.Fetch(ctx, rec.ContentURI)
	if err != nil {
		span.RecordError(errors.Wrap(err, "VerifyUsecase.Verify: fetch failed"))
		return veriport.VerificationResult{
			OK:     false,
			Reason: fmt.Sprintf("gateway fetch failed: %s", err.Error()),
		}
	}

	computed := veriport.Digest(body)
	if !veriport.EqualHash(computed, rec.ContentHash) {
		mismatch := domain.HashMismatchError{Expected: rec.ContentHash, Actual: computed}
		span.RecordError(mismatch)
		return veriport.VerificationResult{OK: false, Reason: mismatch.Error()}
	}

	return veriport.VerificationResult{OK: true}
}
