package calygo

import (
	"context"
	"time"
)

const DefaultCity = "Sainte-Pazanne"

type AddressRepo interface {
	GetAddress(ctx context.Context, id int) (ExistingAddressRecord, error)
	GetAddresses(ctx context.Context, ids []any) ([]ExistingAddressRecord, error)
	GetAllAddresses(ctx context.Context) ([]ExistingAddressRecord, error)
	InsertAddress(ctx context.Context, address AddressRecord) (ExistingAddressRecord, error)
	UpdateAddressStatus(ctx context.Context, id int, status AddressStatus) (ExistingAddressRecord, error)
}

type AddressRecord struct {
	FullAddress  string        `json:"fullAddress"`
	Street       string        `json:"street,omitempty"`
	City         string        `json:"city,omitempty"`
	PostalCode   string        `json:"postalCode,omitempty"`
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	HousingType  string        `json:"housingType,omitempty"`
	ContactName  string        `json:"contactName,omitempty"`
	ContactPhone string        `json:"contactPhone,omitempty"`
	Status       AddressStatus `json:"status"`
	AssignedTo   int           `json:"assignedTo,omitempty"`
	Comments     string        `json:"comments,omitempty"`
}

type ExistingAddressRecord struct {
	AddressRecord
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Point returns the address location, or false if it was never geocoded.
func (a ExistingAddressRecord) Point() (GeoPoint, bool) {
	if a.Latitude == nil || a.Longitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{ID: a.ID, Lat: *a.Latitude, Lon: *a.Longitude}, true
}
