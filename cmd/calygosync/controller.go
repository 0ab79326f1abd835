package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Thiht/transactor"
	"github.com/go-chi/chi/v5"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/route"
	"github.com/calygofire/calygo/sqlite"
)

const maxBodyBytes = 1 << 20

type controller struct {
	tx        transactor.Transactor
	addresses calygo.AddressRepo
	sales     calygo.SaleRepo
	visits    calygo.VisitRepo
	tournees  calygo.TourneeRepo
	m         *metrics
	l         calygo.Logger
}

type errorResponse struct {
	Message string `json:"message"`
}

type statusRequest struct {
	Status calygo.TourneeStatus `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v: %w", err, calygo.ErrInvalid)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, calygo.ErrInvalid)
	}
	return n, nil
}

func pathID(r *http.Request) (int, error) {
	v := chi.URLParam(r, "id")
	id, err := strconv.Atoi(v)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", v, calygo.ErrInvalid)
	}
	return id, nil
}

// fail maps err to a status code. resource is non-empty for writes, which are
// counted.
func (c *controller) fail(w http.ResponseWriter, r *http.Request, resource string, err error) {
	var status int
	var result string
	switch {
	case errors.Is(err, calygo.ErrInvalid):
		status, result = http.StatusBadRequest, "invalid"
	case errors.Is(err, sqlite.ErrNotFound):
		status, result = http.StatusNotFound, "not_found"
	default:
		status, result = http.StatusInternalServerError, "error"
		c.l.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	if resource != "" {
		c.m.write(resource, result)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func (c *controller) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *controller) GetAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := c.addresses.GetAllAddresses(r.Context())
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	if addresses == nil {
		addresses = []calygo.ExistingAddressRecord{}
	}
	writeJSON(w, http.StatusOK, addresses)
}

func (c *controller) GetAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	address, err := c.addresses.GetAddress(r.Context(), id)
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, address)
}

func (c *controller) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req calygo.AddressRecord
	if err := decode(w, r, &req); err != nil {
		c.fail(w, r, "address", err)
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		c.fail(w, r, "address", fmt.Errorf("latitude and longitude go together: %w", calygo.ErrInvalid))
		return
	}
	if req.Latitude != nil && !route.ValidCoordinates(*req.Latitude, *req.Longitude) {
		c.fail(w, r, "address", fmt.Errorf("coordinates out of range: %w", calygo.ErrInvalid))
		return
	}

	address, err := c.addresses.InsertAddress(r.Context(), req)
	if err != nil {
		c.fail(w, r, "address", err)
		return
	}
	c.m.write("address", "ok")
	writeJSON(w, http.StatusCreated, address)
}

func (c *controller) GetTournees(w http.ResponseWriter, r *http.Request) {
	pompierID, err := queryInt(r, "pompierId")
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	tournees, err := c.tournees.GetTournees(r.Context(), pompierID)
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	if tournees == nil {
		tournees = []calygo.ExistingTourneeRecord{}
	}
	writeJSON(w, http.StatusOK, tournees)
}

func (c *controller) CreateTournee(w http.ResponseWriter, r *http.Request) {
	var req calygo.TourneeRecord
	if err := decode(w, r, &req); err != nil {
		c.fail(w, r, "tournee", err)
		return
	}

	var tournee calygo.ExistingTourneeRecord
	err := c.tx.WithinTransaction(r.Context(), func(ctx context.Context) error {
		if len(req.AddressIDs) > 0 {
			ids := make([]any, 0, len(req.AddressIDs))
			seen := make(map[int]bool, len(req.AddressIDs))
			for _, id := range req.AddressIDs {
				if seen[id] {
					return fmt.Errorf("address %d listed twice: %w", id, calygo.ErrInvalid)
				}
				seen[id] = true
				ids = append(ids, id)
			}
			if _, err := c.addresses.GetAddresses(ctx, ids); err != nil {
				return err
			}
		}

		var err error
		tournee, err = c.tournees.InsertTournee(ctx, req)
		return err
	})
	if err != nil {
		c.fail(w, r, "tournee", err)
		return
	}

	c.l.Info("created tournee", "id", tournee.ID, "pompierID", tournee.PompierID, "addresses", len(tournee.AddressIDs))
	c.m.write("tournee", "ok")
	writeJSON(w, http.StatusCreated, tournee)
}

func (c *controller) UpdateTournee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		c.fail(w, r, "tournee", err)
		return
	}
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		c.fail(w, r, "tournee", err)
		return
	}

	tournee, err := c.tournees.UpdateTourneeStatus(r.Context(), id, req.Status)
	if err != nil {
		c.fail(w, r, "tournee", err)
		return
	}
	c.m.write("tournee", "ok")
	writeJSON(w, http.StatusOK, tournee)
}

func (c *controller) DeleteTournee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		c.fail(w, r, "tournee", err)
		return
	}

	var deleted calygo.ExistingTourneeRecord
	err = c.tx.WithinTransaction(r.Context(), func(ctx context.Context) error {
		var err error
		deleted, err = c.tournees.DeleteTournee(ctx, id)
		return err
	})
	if err != nil {
		c.fail(w, r, "tournee", err)
		return
	}
	c.m.write("tournee", "ok")
	writeJSON(w, http.StatusOK, deleted)
}

// CreateSale records the sale and marks the address sold.
func (c *controller) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req calygo.SaleRecord
	if err := decode(w, r, &req); err != nil {
		c.fail(w, r, "sale", err)
		return
	}

	var sale calygo.ExistingSaleRecord
	err := c.tx.WithinTransaction(r.Context(), func(ctx context.Context) error {
		if _, err := c.addresses.GetAddress(ctx, req.AddressID); err != nil {
			return err
		}
		var err error
		if sale, err = c.sales.InsertSale(ctx, req); err != nil {
			return err
		}
		_, err = c.addresses.UpdateAddressStatus(ctx, req.AddressID, calygo.StatusSold)
		return err
	})
	if err != nil {
		c.fail(w, r, "sale", err)
		return
	}

	c.l.Info("recorded sale", "id", sale.ID, "addressID", sale.AddressID, "amount", sale.Amount)
	c.m.write("sale", "ok")
	writeJSON(w, http.StatusCreated, sale)
}

func (c *controller) GetSales(w http.ResponseWriter, r *http.Request) {
	pompierID, err := queryInt(r, "pompierId")
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	sales, err := c.sales.GetSales(r.Context(), pompierID)
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	if sales == nil {
		sales = []calygo.ExistingSaleRecord{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// CreateVisit records the visit and sets the address status to its outcome.
func (c *controller) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var req calygo.VisitRecord
	if err := decode(w, r, &req); err != nil {
		c.fail(w, r, "visit", err)
		return
	}

	var visit calygo.ExistingVisitRecord
	err := c.tx.WithinTransaction(r.Context(), func(ctx context.Context) error {
		if _, err := c.addresses.GetAddress(ctx, req.AddressID); err != nil {
			return err
		}
		var err error
		if visit, err = c.visits.InsertVisit(ctx, req); err != nil {
			return err
		}
		_, err = c.addresses.UpdateAddressStatus(ctx, req.AddressID, req.Status)
		return err
	})
	if err != nil {
		c.fail(w, r, "visit", err)
		return
	}

	c.l.Info("recorded visit", "id", visit.ID, "addressID", visit.AddressID, "status", visit.Status)
	c.m.write("visit", "ok")
	writeJSON(w, http.StatusCreated, visit)
}

func (c *controller) GetVisits(w http.ResponseWriter, r *http.Request) {
	addressID, err := queryInt(r, "addressId")
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	if addressID == 0 {
		c.fail(w, r, "", fmt.Errorf("provide addressId: %w", calygo.ErrInvalid))
		return
	}
	visits, err := c.visits.GetVisitsByAddress(r.Context(), addressID)
	if err != nil {
		c.fail(w, r, "", err)
		return
	}
	if visits == nil {
		visits = []calygo.ExistingVisitRecord{}
	}
	writeJSON(w, http.StatusOK, visits)
}
