package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"github.com/calygofire/calygo"
)

const (
	selectAllAddresses = "SELECT id, full_address, street, city, postal_code, latitude, longitude, housing_type, contact_name, contact_phone, status, assigned_to, comments, created_at, updated_at FROM addresses"
)

type addressEntity struct {
	ID           int
	FullAddress  string
	Street       sql.NullString
	City         string
	PostalCode   sql.NullString
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
	HousingType  sql.NullString
	ContactName  sql.NullString
	ContactPhone sql.NullString
	Status       string
	AssignedTo   sql.NullInt64
	Comments     sql.NullString
	CreatedAt    int64
	UpdatedAt    int64
}

type addressRepo struct {
	dbGetter txStdLib.DBGetter
	l        calygo.Logger
}

var _ calygo.AddressRepo = (*addressRepo)(nil)

func NewAddressRepo(dbGetter txStdLib.DBGetter, logger calygo.Logger) calygo.AddressRepo {
	return &addressRepo{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (r *addressRepo) GetAddress(ctx context.Context, id int) (calygo.ExistingAddressRecord, error) {
	if id == 0 {
		return calygo.ExistingAddressRecord{}, fmt.Errorf("provide id: %w", calygo.ErrInvalid)
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", selectAllAddresses), id,
	)
	return extractAddress(row)
}

func (r *addressRepo) GetAddresses(ctx context.Context, ids []any) ([]calygo.ExistingAddressRecord, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("provide ids: %w", calygo.ErrInvalid)
	}

	query := fmt.Sprintf("%s WHERE id IN %s", selectAllAddresses, generateParameters(len(ids)))
	r.l.Debug("getting addresses", "query", query, "ids", ids)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, ids...)
	if err != nil {
		return nil, err
	}

	addresses, err := extractAddresses(rows)
	if err != nil {
		return nil, err
	}
	if len(addresses) != len(ids) {
		return nil, fmt.Errorf("expected %d addresses, got %d: %w", len(ids), len(addresses), ErrNotFound)
	}
	return addresses, nil
}

func (r *addressRepo) GetAllAddresses(ctx context.Context) ([]calygo.ExistingAddressRecord, error) {
	rows, err := r.dbGetter(ctx).QueryContext(ctx, selectAllAddresses+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	return extractAddresses(rows)
}

func (r *addressRepo) InsertAddress(ctx context.Context, address calygo.AddressRecord) (calygo.ExistingAddressRecord, error) {
	if address.FullAddress == "" {
		return calygo.ExistingAddressRecord{}, fmt.Errorf("provide required field 'FullAddress': %w", calygo.ErrInvalid)
	}
	if address.City == "" {
		address.City = calygo.DefaultCity
	}
	if address.Status == "" {
		address.Status = calygo.StatusUnvisited
	}
	if !address.Status.Valid() {
		return calygo.ExistingAddressRecord{}, fmt.Errorf("unknown status %q: %w", address.Status, calygo.ErrInvalid)
	}

	now := time.Now()
	existing := calygo.ExistingAddressRecord{
		AddressRecord: address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e := mapToAddressEntity(existing)

	args := []any{
		e.FullAddress,
		e.Street,
		e.City,
		e.PostalCode,
		e.Latitude,
		e.Longitude,
		e.HousingType,
		e.ContactName,
		e.ContactPhone,
		e.Status,
		e.AssignedTo,
		e.Comments,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO addresses (full_address, street, city, postal_code, latitude, longitude, housing_type, contact_name, contact_phone, status, assigned_to, comments, created_at, updated_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating address", "query", query, "args", args)
	result, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return calygo.ExistingAddressRecord{}, err
	}

	insertedID, err := result.LastInsertId()
	if err != nil {
		return calygo.ExistingAddressRecord{}, err
	}
	existing.ID = int(insertedID)
	existing.CreatedAt = unixTime(e.CreatedAt)
	existing.UpdatedAt = unixTime(e.UpdatedAt)

	return existing, nil
}

func (r *addressRepo) UpdateAddressStatus(ctx context.Context, id int, status calygo.AddressStatus) (calygo.ExistingAddressRecord, error) {
	if !status.Valid() {
		return calygo.ExistingAddressRecord{}, fmt.Errorf("unknown status %q: %w", status, calygo.ErrInvalid)
	}
	existing, err := r.GetAddress(ctx, id)
	if err != nil {
		return existing, err
	}

	existing.Status = status
	existing.UpdatedAt = time.Now()

	query := "UPDATE addresses SET status = ?, updated_at = ? WHERE id = ?"
	args := []any{string(status), existing.UpdatedAt.Unix(), id}
	r.l.Debug("updating address status", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return calygo.ExistingAddressRecord{}, err
	}

	existing.UpdatedAt = unixTime(existing.UpdatedAt.Unix())
	return existing, nil
}

func extractAddresses(rows *sql.Rows) ([]calygo.ExistingAddressRecord, error) {
	defer rows.Close() //nolint:errcheck

	var addresses []calygo.ExistingAddressRecord
	for rows.Next() {
		a, err := extractAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func extractAddress(s scannable) (calygo.ExistingAddressRecord, error) {
	var e addressEntity
	if err := s.Scan(
		&e.ID, &e.FullAddress, &e.Street, &e.City, &e.PostalCode, &e.Latitude, &e.Longitude,
		&e.HousingType, &e.ContactName, &e.ContactPhone, &e.Status, &e.AssignedTo, &e.Comments,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calygo.ExistingAddressRecord{}, fmt.Errorf("failed to extract address: %w", ErrNotFound)
		}
		return calygo.ExistingAddressRecord{}, err
	}

	return mapToExistingAddressRecord(e), nil
}

func mapToAddressEntity(a calygo.ExistingAddressRecord) addressEntity {
	return addressEntity{
		ID:           a.ID,
		FullAddress:  a.FullAddress,
		Street:       nullString(a.Street),
		City:         a.City,
		PostalCode:   nullString(a.PostalCode),
		Latitude:     nullFloat(a.Latitude),
		Longitude:    nullFloat(a.Longitude),
		HousingType:  nullString(a.HousingType),
		ContactName:  nullString(a.ContactName),
		ContactPhone: nullString(a.ContactPhone),
		Status:       string(a.Status),
		AssignedTo:   nullInt(a.AssignedTo),
		Comments:     nullString(a.Comments),
		CreatedAt:    a.CreatedAt.Unix(),
		UpdatedAt:    a.UpdatedAt.Unix(),
	}
}

func mapToExistingAddressRecord(e addressEntity) calygo.ExistingAddressRecord {
	return calygo.ExistingAddressRecord{
		ID:        e.ID,
		CreatedAt: unixTime(e.CreatedAt),
		UpdatedAt: unixTime(e.UpdatedAt),
		AddressRecord: calygo.AddressRecord{
			FullAddress:  e.FullAddress,
			Street:       e.Street.String,
			City:         e.City,
			PostalCode:   e.PostalCode.String,
			Latitude:     floatPtr(e.Latitude),
			Longitude:    floatPtr(e.Longitude),
			HousingType:  e.HousingType.String,
			ContactName:  e.ContactName.String,
			ContactPhone: e.ContactPhone.String,
			Status:       calygo.AddressStatus(e.Status),
			AssignedTo:   int(e.AssignedTo.Int64),
			Comments:     e.Comments.String,
		},
	}
}
