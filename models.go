package calygo

import (
	"errors"
	"time"
)

// ErrInvalid marks a record rejected for missing or malformed fields.
var ErrInvalid = errors.New("invalid")

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleBureau Role = "Bureau"
	RoleMembre Role = "Membre"
)

type AddressStatus string

const (
	StatusUnvisited AddressStatus = "unvisited"
	StatusSold      AddressStatus = "sold"
	StatusRefused   AddressStatus = "refused"
	StatusRevisit   AddressStatus = "revisit"
	StatusAbsent    AddressStatus = "absent"
)

func (s AddressStatus) Valid() bool {
	switch s {
	case StatusUnvisited, StatusSold, StatusRefused, StatusRevisit, StatusAbsent:
		return true
	}
	return false
}

type TourneeStatus string

const (
	TourneePlanned    TourneeStatus = "planned"
	TourneeInProgress TourneeStatus = "in_progress"
	TourneeCompleted  TourneeStatus = "completed"
	TourneeCancelled  TourneeStatus = "cancelled"
)

func (s TourneeStatus) Valid() bool {
	switch s {
	case TourneePlanned, TourneeInProgress, TourneeCompleted, TourneeCancelled:
		return true
	}
	return false
}

// GeoPoint is an address location handed to the route optimizer.
type GeoPoint struct {
	ID  int
	Lat float64
	Lon float64
}

// PendingRequest is a write that could not be delivered for lack of
// connectivity. Timestamp is in milliseconds since epoch.
type PendingRequest struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Timestamp int64             `json:"timestamp"`
}

func (r PendingRequest) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}
