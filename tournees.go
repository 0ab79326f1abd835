package calygo

import (
	"context"
	"encoding/json"
	"time"
)

type TourneeRepo interface {
	GetTournee(ctx context.Context, id int) (ExistingTourneeRecord, error)
	// GetTournees returns every tournée when pompierID is 0.
	GetTournees(ctx context.Context, pompierID int) ([]ExistingTourneeRecord, error)
	InsertTournee(ctx context.Context, tournee TourneeRecord) (ExistingTourneeRecord, error)
	UpdateTourneeStatus(ctx context.Context, id int, status TourneeStatus) (ExistingTourneeRecord, error)
	DeleteTournee(ctx context.Context, id int) (ExistingTourneeRecord, error)
}

// TourneeRecord holds AddressIDs in visiting order.
type TourneeRecord struct {
	Name          string        `json:"name"`
	PompierID     int           `json:"pompierId"`
	ScheduledDate time.Time     `json:"scheduledDate"`
	Status        TourneeStatus `json:"status"`
	AddressIDs    []int         `json:"addressIds"`
	CreatedBy     int           `json:"createdBy"`
}

type ExistingTourneeRecord struct {
	TourneeRecord
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OptimizedRoute is the JSON array of the ordered address IDs.
func (t TourneeRecord) OptimizedRoute() string {
	ids := t.AddressIDs
	if ids == nil {
		ids = []int{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}
