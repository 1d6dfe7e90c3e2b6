package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
)

// DiscoveryUsecase enumerates attestation requests for a party by scanning
// the ledger's creation log and resolving each id to its current record.
// Point reads fan out in parallel; a single unreadable record is skipped,
// never fatal to the scan.
type DiscoveryUsecase struct {
	ledger       LedgerRepository
	cache        EventCacheRepository
	deployHeight uint64
}

func NewDiscoveryUsecase(ledger LedgerRepository, cache EventCacheRepository, deployHeight uint64) *DiscoveryUsecase {
	return &DiscoveryUsecase{
		ledger:       ledger,
		cache:        cache,
		deployHeight: deployHeight,
	}
}

// Get resolves a single id to its current record.
func (uc *DiscoveryUsecase) Get(ctx context.Context, id uint64) (*veriport.AttestationRequest, error) {
	return uc.ledger.GetRecord(ctx, id)
}

func (uc *DiscoveryUsecase) ListForOwner(ctx context.Context, owner string, fromHeight uint64) ([]veriport.AttestationRequest, error) {
	return uc.list(ctx, domain.PartyOwner, owner, fromHeight)
}

func (uc *DiscoveryUsecase) ListForOrganizer(ctx context.Context, organizer string, fromHeight uint64) ([]veriport.AttestationRequest, error) {
	return uc.list(ctx, domain.PartyOrganizer, organizer, fromHeight)
}

// PendingForOrganizer is the organizer's actionable work queue.
func (uc *DiscoveryUsecase) PendingForOrganizer(ctx context.Context, organizer string, fromHeight uint64) ([]veriport.AttestationRequest, error) {
	records, err := uc.list(ctx, domain.PartyOrganizer, organizer, fromHeight)
	if err != nil {
		return nil, err
	}
	pending := make([]veriport.AttestationRequest, 0, len(records))
	for _, rec := range records {
		if rec.Status == veriport.StatusPending {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

func (uc *DiscoveryUsecase) list(ctx context.Context, party domain.Party, address string, fromHeight uint64) ([]veriport.AttestationRequest, error) {
	ctx, span := tracer.Start(ctx, "Discovery.Usecase.List")
	defer span.End()

	if !veriport.IsAddress(address) {
		return nil, fmt.Errorf("invalid %s address: %s", party, address)
	}
	address = veriport.NormalizeAddress(address)

	// Creation-log entries are immutable, so a cached prefix of the log is
	// safe to reuse; only the tail since the cached head is rescanned.
	var events []veriport.CreationEvent
	scanFrom := fromHeight
	cacheable := fromHeight == 0 && uc.cache != nil
	if cacheable {
		if cached, head, ok := uc.cache.Load(ctx, party, address); ok {
			events = cached
			scanFrom = head + 1
		}
	}
	if scanFrom == 0 {
		scanFrom = uc.deployHeight
	}

	fresh, head, err := uc.ledger.ListCreated(ctx, party, address, scanFrom)
	if err != nil {
		span.RecordError(errors.Wrap(err, "DiscoveryUsecase.list: log scan failed"))
		return nil, err
	}
	events = append(events, fresh...)

	if cacheable {
		if err := uc.cache.Store(ctx, party, address, events, head); err != nil {
			slog.WarnContext(ctx, "failed to store creation-log cache",
				slog.String("party", party.String()),
				slog.String("address", address),
				slog.String("error", err.Error()),
				slog.String("module", "discovery"),
			)
		}
	}

	// Fan out the point reads. Reads are independent; a failure in one must
	// not cancel the others, so each slot fails in isolation.
	resolved := make([]*veriport.AttestationRequest, len(events))
	var wg sync.WaitGroup
	for i, ev := range events {
		wg.Add(1)
		go func(i int, ev veriport.CreationEvent) {
			defer wg.Done()
			rec, err := uc.ledger.GetRecord(ctx, ev.ID)
			if err != nil {
				slog.WarnContext(ctx, "skipping unreadable record",
					slog.Uint64("id", ev.ID),
					slog.String("error", err.Error()),
					slog.String("module", "discovery"),
				)
				return
			}
			resolved[i] = rec
		}(i, ev)
	}
	wg.Wait()

	// Log order is creation order; keep it.
	results := make([]veriport.AttestationRequest, 0, len(resolved))
	for _, rec := range resolved {
		if rec != nil {
			results = append(results, *rec)
		}
	}
	return results, nil
}
