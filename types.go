package veriport

import (
	"time"
)

// Status is the on-chain lifecycle state of an attestation request.
// Pending is the initial state; Confirmed and Rejected are terminal.
type Status uint8

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// AttestationRequest is the on-chain record of an attestation request.
// ContentHash is the commitment: the keccak256 digest of the exact bytes
// retrievable at ContentURI. Everything except Status, ResultURI and
// ReasonURI is immutable after creation.
type AttestationRequest struct {
	ID          uint64    `json:"id"`
	Owner       string    `json:"owner"`
	Organizer   string    `json:"organizer"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	ContentHash string    `json:"contentHash"`
	ContentURI  string    `json:"contentURI"`
	ResultURI   string    `json:"resultURI,omitempty"`
	ReasonURI   string    `json:"reasonURI,omitempty"`
	Status      Status    `json:"status"`
}

// CreationEvent is one entry of the ledger's append-only creation log.
type CreationEvent struct {
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	Organizer string `json:"organizer"`
	Height    uint64 `json:"height"`
}

// PinResult describes a document persisted into the content-addressed store.
type PinResult struct {
	CID        string    `json:"cid"`
	URI        string    `json:"uri"`
	GatewayURL string    `json:"gatewayUrl"`
	Size       int64     `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
}

// VerificationResult is the outcome of checking a record against its
// committed content. A failed verification is an expected outcome, not an
// error: Reason carries the full detail (provider error text or both hash
// values) for the audit trail.
type VerificationResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Event is a lifecycle notification published on the signal channel.
type Event struct {
	Type      string    `json:"type"` // created, confirmed, rejected
	ID        uint64    `json:"id"`
	Actor     string    `json:"actor"`
	URI       string    `json:"uri,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
