package usecase

import (
	"context"
	"time"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
)

// LedgerRepository defines the consumed surface of the on-chain attestation
// registry. Authorization of transitions is enforced by the contract itself;
// implementations only translate its observable failures.
type LedgerRepository interface {
	CreateRequest(ctx context.Context, organizer string, startAt, endAt time.Time, contentHash, contentURI string) (uint64, string, error)
	Confirm(ctx context.Context, id uint64, resultURI string) (string, error)
	Reject(ctx context.Context, id uint64, reasonURI string) (string, error)
	GetRecord(ctx context.Context, id uint64) (*veriport.AttestationRequest, error)
	ListCreated(ctx context.Context, party domain.Party, address string, fromHeight uint64) ([]veriport.CreationEvent, uint64, error)
}

// Store defines pin/fetch against the content-addressed store. Pin must
// upload the given bytes unchanged; Fetch must always hit the network.
type Store interface {
	Pin(ctx context.Context, document []byte, name string) (veriport.PinResult, error)
	Fetch(ctx context.Context, locator string) ([]byte, error)
	Resolve(locator string) (string, error)
}

// EventCacheRepository caches creation-log entries per party. Log entries
// are immutable, so caching them is safe; records themselves never are.
type EventCacheRepository interface {
	Load(ctx context.Context, party domain.Party, address string) ([]veriport.CreationEvent, uint64, bool)
	Store(ctx context.Context, party domain.Party, address string, events []veriport.CreationEvent, head uint64) error
}

// AuditRepository persists submitted decisions locally.
type AuditRepository interface {
	Record(ctx context.Context, decision domain.Decision) error
	ListByRequest(ctx context.Context, requestID uint64) ([]domain.Decision, error)
}

// SignalPublisher broadcasts lifecycle events to subscribers.
type SignalPublisher interface {
	Publish(ctx context.Context, event veriport.Event) error
}
