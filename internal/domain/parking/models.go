package parking

import (
	"time"
)

// Event is one visit of a vehicle, created at the entry gate and settled
// either by the payment kiosk or by an authorized exit. Append-only per
// plate; rows are never deleted.
type Event struct {
	ID         int64      `json:"id"`
	Plate      string     `json:"plate"`
	Paid       bool       `json:"paid"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	AmountPaid *int64     `json:"amount_paid,omitempty"`

	// Candidate window that produced the resolution, kept for auditing
	// misreads. Free-form, stored as JSON.
	RawDetection map[string]interface{} `json:"raw_detection,omitempty"`
}

const IncidentUnauthorizedExit = "Unauthorized Exit"

// Incident is an audit record of a denied exit attempt.
type Incident struct {
	ID           int64     `json:"id"`
	Plate        string    `json:"plate"`
	Timestamp    time.Time `json:"timestamp"`
	IncidentType string    `json:"incident_type"`
}

// CardSwipe is a parsed card-presented frame from the payment device:
// the plate the card is bound to and its stored balance.
type CardSwipe struct {
	Plate   string `json:"plate"`
	Balance int64  `json:"balance"`
}

// SettlementUpdate is the single atomic mutation applied to an Event when
// a payment handshake is confirmed or an authorized exit passes the gate.
type SettlementUpdate struct {
	Paid       bool
	ExitTime   time.Time
	AmountPaid int64
}
