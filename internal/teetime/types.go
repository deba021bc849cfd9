package teetime

import (
	"encoding/json"
	"time"
)

// Request is the fixed configuration for one booking run. Immutable once built.
type Request struct {
	Date    time.Time
	Players int
	Holes   int
	Cart    string
	League  string
}

// Booking describes a committed reservation.
type Booking struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Players  int    `json:"players"`
	Holes    int    `json:"holes"`
	CartType string `json:"cartType"`
}

// Status tags the single outcome a run produces.
type Status string

const (
	StatusBooked  Status = "booked"
	StatusNoMatch Status = "no_match"
	StatusFailed  Status = "failed"
)

// Outcome is the one result of a run. Exactly one of Booking, Reason or
// ErrorDetail carries the payload, keyed by Status.
type Outcome struct {
	Status      Status
	Date        string
	Booking     *Booking
	Reason      string
	ErrorDetail string
}

func Booked(b Booking) Outcome {
	return Outcome{Status: StatusBooked, Date: b.Date, Booking: &b}
}

func NoMatch(date, reason string) Outcome {
	return Outcome{Status: StatusNoMatch, Date: date, Reason: reason}
}

func Failed(date, detail string) Outcome {
	return Outcome{Status: StatusFailed, Date: date, ErrorDetail: detail}
}

// MarshalJSON renders the caller-facing shape:
// {"success":true,"booking":{...}} on success,
// {"success":false,"reason":...} or {"success":false,"error":...} otherwise.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o.Status {
	case StatusBooked:
		return json.Marshal(struct {
			Success bool     `json:"success"`
			Booking *Booking `json:"booking"`
		}{true, o.Booking})
	case StatusNoMatch:
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Reason  string `json:"reason"`
		}{false, o.Reason})
	default:
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, o.ErrorDetail})
	}
}
