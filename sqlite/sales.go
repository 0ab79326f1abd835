package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"github.com/calygofire/calygo"
)

const (
	selectAllSales  = "SELECT id, address_id, pompier_id, amount, payment_method, sale_date, receipt_generated, created_at FROM sales"
	selectAllVisits = "SELECT id, address_id, pompier_id, visit_date, status, amount, payment_method, comments, created_at FROM visits"
)

type saleRepo struct {
	dbGetter txStdLib.DBGetter
	l        calygo.Logger
}

var _ calygo.SaleRepo = (*saleRepo)(nil)

func NewSaleRepo(dbGetter txStdLib.DBGetter, logger calygo.Logger) calygo.SaleRepo {
	return &saleRepo{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (r *saleRepo) InsertSale(ctx context.Context, sale calygo.SaleRecord) (calygo.ExistingSaleRecord, error) {
	switch {
	case sale.AddressID == 0:
		return calygo.ExistingSaleRecord{}, fmt.Errorf("provide required field 'AddressID': %w", calygo.ErrInvalid)
	case sale.PompierID == 0:
		return calygo.ExistingSaleRecord{}, fmt.Errorf("provide required field 'PompierID': %w", calygo.ErrInvalid)
	case sale.Amount <= 0:
		return calygo.ExistingSaleRecord{}, fmt.Errorf("amount must be positive: %w", calygo.ErrInvalid)
	case sale.PaymentMethod == "":
		return calygo.ExistingSaleRecord{}, fmt.Errorf("provide required field 'PaymentMethod': %w", calygo.ErrInvalid)
	}

	now := time.Now()
	if sale.SaleDate.IsZero() {
		sale.SaleDate = now
	}

	args := []any{
		sale.AddressID,
		sale.PompierID,
		sale.Amount,
		sale.PaymentMethod,
		sale.SaleDate.Unix(),
		sale.ReceiptGenerated,
		now.Unix(),
	}
	query := "INSERT INTO sales (address_id, pompier_id, amount, payment_method, sale_date, receipt_generated, created_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating sale", "query", query, "args", args)
	result, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return calygo.ExistingSaleRecord{}, err
	}
	insertedID, err := result.LastInsertId()
	if err != nil {
		return calygo.ExistingSaleRecord{}, err
	}

	sale.SaleDate = unixTime(sale.SaleDate.Unix())
	return calygo.ExistingSaleRecord{
		SaleRecord: sale,
		ID:         int(insertedID),
		CreatedAt:  unixTime(now.Unix()),
	}, nil
}

// GetSales returns the most recent sales first. A zero pompierID returns all.
func (r *saleRepo) GetSales(ctx context.Context, pompierID int) ([]calygo.ExistingSaleRecord, error) {
	query := selectAllSales
	var args []any
	if pompierID != 0 {
		query += " WHERE pompier_id = ?"
		args = append(args, pompierID)
	}
	query += " ORDER BY sale_date DESC, id DESC"

	r.l.Debug("getting sales", "query", query, "args", args)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var sales []calygo.ExistingSaleRecord
	for rows.Next() {
		var s calygo.ExistingSaleRecord
		var saleDate, createdAt int64
		if err := rows.Scan(&s.ID, &s.AddressID, &s.PompierID, &s.Amount, &s.PaymentMethod, &saleDate, &s.ReceiptGenerated, &createdAt); err != nil {
			return nil, err
		}
		s.SaleDate = unixTime(saleDate)
		s.CreatedAt = unixTime(createdAt)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

type visitRepo struct {
	dbGetter txStdLib.DBGetter
	l        calygo.Logger
}

var _ calygo.VisitRepo = (*visitRepo)(nil)

func NewVisitRepo(dbGetter txStdLib.DBGetter, logger calygo.Logger) calygo.VisitRepo {
	return &visitRepo{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (r *visitRepo) InsertVisit(ctx context.Context, visit calygo.VisitRecord) (calygo.ExistingVisitRecord, error) {
	switch {
	case visit.AddressID == 0:
		return calygo.ExistingVisitRecord{}, fmt.Errorf("provide required field 'AddressID': %w", calygo.ErrInvalid)
	case visit.PompierID == 0:
		return calygo.ExistingVisitRecord{}, fmt.Errorf("provide required field 'PompierID': %w", calygo.ErrInvalid)
	case !visit.Status.Valid():
		return calygo.ExistingVisitRecord{}, fmt.Errorf("unknown status %q: %w", visit.Status, calygo.ErrInvalid)
	}

	now := time.Now()
	if visit.VisitDate.IsZero() {
		visit.VisitDate = now
	}

	args := []any{
		visit.AddressID,
		visit.PompierID,
		visit.VisitDate.Unix(),
		string(visit.Status),
		sql.NullInt64{Int64: visit.Amount, Valid: visit.Amount != 0},
		nullString(visit.PaymentMethod),
		nullString(visit.Comments),
		now.Unix(),
	}
	query := "INSERT INTO visits (address_id, pompier_id, visit_date, status, amount, payment_method, comments, created_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating visit", "query", query, "args", args)
	result, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return calygo.ExistingVisitRecord{}, err
	}
	insertedID, err := result.LastInsertId()
	if err != nil {
		return calygo.ExistingVisitRecord{}, err
	}

	visit.VisitDate = unixTime(visit.VisitDate.Unix())
	return calygo.ExistingVisitRecord{
		VisitRecord: visit,
		ID:          int(insertedID),
		CreatedAt:   unixTime(now.Unix()),
	}, nil
}

func (r *visitRepo) GetVisitsByAddress(ctx context.Context, addressID int) ([]calygo.ExistingVisitRecord, error) {
	if addressID == 0 {
		return nil, fmt.Errorf("provide addressID: %w", calygo.ErrInvalid)
	}

	query := selectAllVisits + " WHERE address_id = ? ORDER BY visit_date, id"
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, addressID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var visits []calygo.ExistingVisitRecord
	for rows.Next() {
		var v calygo.ExistingVisitRecord
		var visitDate, createdAt int64
		var status string
		var amount sql.NullInt64
		var method, comments sql.NullString
		if err := rows.Scan(&v.ID, &v.AddressID, &v.PompierID, &visitDate, &status, &amount, &method, &comments, &createdAt); err != nil {
			return nil, err
		}
		v.VisitDate = unixTime(visitDate)
		v.Status = calygo.AddressStatus(status)
		v.Amount = amount.Int64
		v.PaymentMethod = method.String
		v.Comments = comments.String
		v.CreatedAt = unixTime(createdAt)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
