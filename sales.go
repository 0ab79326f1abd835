package calygo

import (
	"context"
	"time"
)

type SaleRepo interface {
	InsertSale(ctx context.Context, sale SaleRecord) (ExistingSaleRecord, error)
	GetSales(ctx context.Context, pompierID int) ([]ExistingSaleRecord, error)
}

type VisitRepo interface {
	InsertVisit(ctx context.Context, visit VisitRecord) (ExistingVisitRecord, error)
	GetVisitsByAddress(ctx context.Context, addressID int) ([]ExistingVisitRecord, error)
}

// SaleRecord amounts are in cents.
type SaleRecord struct {
	AddressID        int       `json:"addressId"`
	PompierID        int       `json:"pompierId"`
	Amount           int64     `json:"amount"`
	PaymentMethod    string    `json:"paymentMethod"`
	SaleDate         time.Time `json:"saleDate"`
	ReceiptGenerated bool      `json:"receiptGenerated"`
}

type ExistingSaleRecord struct {
	SaleRecord
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type VisitRecord struct {
	AddressID     int           `json:"addressId"`
	PompierID     int           `json:"pompierId"`
	VisitDate     time.Time     `json:"visitDate"`
	Status        AddressStatus `json:"status"`
	Amount        int64         `json:"amount,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	Comments      string        `json:"comments,omitempty"`
}

type ExistingVisitRecord struct {
	VisitRecord
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
