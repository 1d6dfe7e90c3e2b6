package schemas

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	AchievementURL string = "https://schema.veriport.net/achievement.json"
	RejectionURL   string = "https://schema.veriport.net/rejection.json"
)

// Achievement is the document an owner commits to when requesting
// attestation. Encode once and reuse the same byte slice for hashing and
// pinning; re-encoding is not guaranteed to reproduce identical bytes.
type Achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartAt     string `json:"startAt"`
	EndAt       string `json:"endAt"`
}

func (a Achievement) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// Rejection is the justification document pinned when an organizer rejects
// a request. It is referenced on-chain by locator only, not by hash.
type Rejection struct {
	Status    string `json:"status"` // always "rejected"
	Reason    string `json:"reason"`
	EventID   string `json:"eventId"`
	Organizer string `json:"organizer"`
	At        string `json:"at"`
}

func NewRejection(reason string, eventID uint64, organizer string, at time.Time) Rejection {
	return Rejection{
		Status:    "rejected",
		Reason:    reason,
		EventID:   strconv.FormatUint(eventID, 10),
		Organizer: organizer,
		At:        at.UTC().Format(time.RFC3339),
	}
}

func (r Rejection) Encode() ([]byte, error) {
	return json.Marshal(r)
}
