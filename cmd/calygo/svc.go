package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/offline"
	"github.com/calygofire/calygo/route"
)

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

type FieldSvc interface {
	RecordSale(ctx context.Context, addressID int, amount int64, paymentMethod string) (WriteResult, error)
	RecordVisit(ctx context.Context, addressID int, status calygo.AddressStatus) (WriteResult, error)
	PlanTournee(ctx context.Context, name string, date time.Time, addressIDs []int) (Plan, error)
	GetTournees(ctx context.Context) ([]calygo.ExistingTourneeRecord, error)
	GetAddresses(ctx context.Context) ([]calygo.ExistingAddressRecord, error)
}

// WriteResult reports whether a write reached the server or was queued.
type WriteResult struct {
	Queued bool
}

type Plan struct {
	Tournee calygo.TourneeRecord
	// Skipped holds selected addresses left out for lack of usable coordinates.
	Skipped []int
	// OutsideArea holds routed addresses outside the canvassing area.
	OutsideArea []int
	DistanceKm  float64
	Queued     bool
}

// ServerError is a response the server refused. It is not queued since a
// replay would get the same answer.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d", e.Status)
}

type client interface {
	Do(ctx context.Context, req calygo.PendingRequest, out any) (int, error)
}

type pendingQueue interface {
	Enqueue(ctx context.Context, url, method string, headers map[string]string, body string) calygo.PendingRequest
	IsOnline() bool
}

// impl
type fieldSvc struct {
	client    client
	queue     pendingQueue
	pompierID int
	area      route.Bounds
	now       func() time.Time
	l         calygo.Logger
}

func NewFieldSvc(c client, q pendingQueue, pompierID int, l calygo.Logger) FieldSvc {
	return &fieldSvc{
		client:    c,
		queue:     q,
		pompierID: pompierID,
		area:      route.SaintePazanneBounds(),
		now:       time.Now,
		l:         l,
	}
}

// RecordSale posts the sale and a sold visit for the same address.
func (s *fieldSvc) RecordSale(ctx context.Context, addressID int, amount int64, paymentMethod string) (WriteResult, error) {
	if amount <= 0 {
		return WriteResult{}, fmt.Errorf("amount must be positive: %w", calygo.ErrInvalid)
	}
	now := s.now()

	sale := calygo.SaleRecord{
		AddressID:     addressID,
		PompierID:     s.pompierID,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		SaleDate:      now,
	}
	res, err := s.write(ctx, http.MethodPost, "/api/sales", sale)
	if err != nil {
		return res, fmt.Errorf("failed to record sale: %w", err)
	}

	visit := calygo.VisitRecord{
		AddressID:     addressID,
		PompierID:     s.pompierID,
		VisitDate:     now,
		Status:        calygo.StatusSold,
		Amount:        amount,
		PaymentMethod: paymentMethod,
	}
	visitRes, err := s.write(ctx, http.MethodPost, "/api/visits", visit)
	if err != nil {
		saved := "saved"
		if res.Queued {
			saved = savedOffline
		}
		return res, fmt.Errorf("sale %s, but failed to record sold visit: %w", saved, err)
	}

	return WriteResult{Queued: res.Queued || visitRes.Queued}, nil
}

func (s *fieldSvc) RecordVisit(ctx context.Context, addressID int, status calygo.AddressStatus) (WriteResult, error) {
	if !status.Valid() {
		return WriteResult{}, fmt.Errorf("unknown status %q: %w", status, calygo.ErrInvalid)
	}
	visit := calygo.VisitRecord{
		AddressID: addressID,
		PompierID: s.pompierID,
		VisitDate: s.now(),
		Status:    status,
	}
	res, err := s.write(ctx, http.MethodPost, "/api/visits", visit)
	if err != nil {
		return res, fmt.Errorf("failed to record visit: %w", err)
	}
	return res, nil
}

// PlanTournee orders the selected addresses for walking and saves the tournée
// as planned. Addresses without valid coordinates are dropped from the route.
func (s *fieldSvc) PlanTournee(ctx context.Context, name string, date time.Time, addressIDs []int) (Plan, error) {
	if name == "" || len(addressIDs) == 0 {
		return Plan{}, fmt.Errorf("provide a name and at least one address: %w", calygo.ErrInvalid)
	}

	addresses, err := s.GetAddresses(ctx)
	if err != nil {
		return Plan{}, err
	}
	byID := make(map[int]calygo.ExistingAddressRecord, len(addresses))
	for _, a := range addresses {
		byID[a.ID] = a
	}

	var plan Plan
	points := make([]calygo.GeoPoint, 0, len(addressIDs))
	for _, id := range addressIDs {
		a, ok := byID[id]
		if !ok {
			return Plan{}, fmt.Errorf("unknown address %d: %w", id, calygo.ErrInvalid)
		}
		p, ok := a.Point()
		if !ok || (p.Lat == 0 && p.Lon == 0) || !route.ValidCoordinates(p.Lat, p.Lon) {
			plan.Skipped = append(plan.Skipped, id)
			continue
		}
		if !s.area.Contains(p.Lat, p.Lon) {
			plan.OutsideArea = append(plan.OutsideArea, id)
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return plan, fmt.Errorf("no selected address has coordinates: %w", calygo.ErrInvalid)
	}

	order := route.Optimize(points)
	plan.DistanceKm = route.TotalDistance(points, order)
	plan.Tournee = calygo.TourneeRecord{
		Name:          name,
		PompierID:     s.pompierID,
		ScheduledDate: date,
		Status:        calygo.TourneePlanned,
		AddressIDs:    order,
		CreatedBy:     s.pompierID,
	}

	res, err := s.write(ctx, http.MethodPost, "/api/tournees", plan.Tournee)
	if err != nil {
		return plan, fmt.Errorf("failed to save tournee: %w", err)
	}
	plan.Queued = res.Queued

	s.l.Info("planned tournee", "name", name, "stops", len(order), "skipped", len(plan.Skipped), "km", plan.DistanceKm)
	return plan, nil
}

func (s *fieldSvc) GetTournees(ctx context.Context) ([]calygo.ExistingTourneeRecord, error) {
	var tournees []calygo.ExistingTourneeRecord
	url := "/api/tournees"
	if s.pompierID != 0 {
		url = fmt.Sprintf("%s?pompierId=%d", url, s.pompierID)
	}
	if err := s.read(ctx, url, &tournees); err != nil {
		return nil, fmt.Errorf("failed to get tournees: %w", err)
	}
	return tournees, nil
}

func (s *fieldSvc) GetAddresses(ctx context.Context) ([]calygo.ExistingAddressRecord, error) {
	var addresses []calygo.ExistingAddressRecord
	if err := s.read(ctx, "/api/addresses", &addresses); err != nil {
		return nil, fmt.Errorf("failed to get addresses: %w", err)
	}
	return addresses, nil
}

func (s *fieldSvc) read(ctx context.Context, url string, out any) error {
	if !s.queue.IsOnline() {
		return offline.ErrOffline
	}
	status, err := s.client.Do(ctx, calygo.PendingRequest{URL: url, Method: http.MethodGet}, out)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &ServerError{Status: status}
	}
	return nil
}

// write sends body directly when online. While offline, or when the server
// cannot be reached, the request is queued for replay instead.
func (s *fieldSvc) write(ctx context.Context, method, url string, body any) (WriteResult, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return WriteResult{}, err
	}

	if s.queue.IsOnline() {
		req := calygo.PendingRequest{
			URL:     url,
			Method:  method,
			Headers: jsonHeaders,
			Body:    string(b),
		}
		status, err := s.client.Do(ctx, req, nil)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			s.l.Warn("direct write failed, queueing", "method", method, "url", url, "error", err)
		case err != nil:
			return WriteResult{}, err
		case status >= 200 && status < 300:
			return WriteResult{}, nil
		default:
			return WriteResult{}, &ServerError{Status: status}
		}
	}

	s.queue.Enqueue(ctx, url, method, jsonHeaders, string(b))
	return WriteResult{Queued: true}, nil
}
