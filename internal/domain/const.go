package domain

// Party selects which indexed side of the creation log a scan filters by.
type Party int

const (
	PartyOwner Party = iota
	PartyOrganizer
)

func (p Party) String() string {
	switch p {
	case PartyOwner:
		return "owner"
	case PartyOrganizer:
		return "organizer"
	default:
		return "unknown"
	}
}

const (
	// SignalChannel is the redis pub/sub channel for lifecycle events.
	SignalChannel = "veriport:lifecycle"
)

const (
	EventTypeCreated   = "created"
	EventTypeConfirmed = "confirmed"
	EventTypeRejected  = "rejected"
)

const (
	ActionCreate  = "create"
	ActionConfirm = "confirm"
	ActionReject  = "reject"
)
