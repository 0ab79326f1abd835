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
	selectAllTournees = "SELECT id, name, pompier_id, scheduled_date, status, created_by, created_at, updated_at FROM tournees"
)

type tourneeEntity struct {
	ID            int
	Name          string
	PompierID     int
	ScheduledDate int64
	Status        string
	CreatedBy     sql.NullInt64
	CreatedAt     int64
	UpdatedAt     int64
}

// tourneeRepo stores the visiting order in tournee_addresses. Inserts write
// several rows; callers wanting atomicity run them inside a transaction.
type tourneeRepo struct {
	dbGetter txStdLib.DBGetter
	l        calygo.Logger
}

var _ calygo.TourneeRepo = (*tourneeRepo)(nil)

func NewTourneeRepo(dbGetter txStdLib.DBGetter, logger calygo.Logger) calygo.TourneeRepo {
	return &tourneeRepo{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (r *tourneeRepo) GetTournee(ctx context.Context, id int) (calygo.ExistingTourneeRecord, error) {
	if id == 0 {
		return calygo.ExistingTourneeRecord{}, fmt.Errorf("provide id: %w", calygo.ErrInvalid)
	}

	row := r.dbGetter(ctx).QueryRowContext(ctx, selectAllTournees+" WHERE id=?", id)
	t, err := extractTournee(row)
	if err != nil {
		return t, err
	}

	if t.AddressIDs, err = r.getAddressIDs(ctx, t.ID); err != nil {
		return calygo.ExistingTourneeRecord{}, err
	}
	return t, nil
}

func (r *tourneeRepo) GetTournees(ctx context.Context, pompierID int) ([]calygo.ExistingTourneeRecord, error) {
	query := selectAllTournees
	var args []any
	if pompierID != 0 {
		query += " WHERE pompier_id = ?"
		args = append(args, pompierID)
	}
	query += " ORDER BY scheduled_date, id"

	r.l.Debug("getting tournees", "query", query, "args", args)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var tournees []calygo.ExistingTourneeRecord
	for rows.Next() {
		t, err := extractTournee(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		tournees = append(tournees, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range tournees {
		if tournees[i].AddressIDs, err = r.getAddressIDs(ctx, tournees[i].ID); err != nil {
			return nil, err
		}
	}
	return tournees, nil
}

func (r *tourneeRepo) InsertTournee(ctx context.Context, tournee calygo.TourneeRecord) (calygo.ExistingTourneeRecord, error) {
	switch {
	case tournee.Name == "":
		return calygo.ExistingTourneeRecord{}, fmt.Errorf("provide required field 'Name': %w", calygo.ErrInvalid)
	case tournee.PompierID == 0:
		return calygo.ExistingTourneeRecord{}, fmt.Errorf("provide required field 'PompierID': %w", calygo.ErrInvalid)
	case tournee.ScheduledDate.IsZero():
		return calygo.ExistingTourneeRecord{}, fmt.Errorf("provide required field 'ScheduledDate': %w", calygo.ErrInvalid)
	}
	if tournee.Status == "" {
		tournee.Status = calygo.TourneePlanned
	}
	if !tournee.Status.Valid() {
		return calygo.ExistingTourneeRecord{}, fmt.Errorf("unknown status %q: %w", tournee.Status, calygo.ErrInvalid)
	}

	now := time.Now()
	existing := calygo.ExistingTourneeRecord{
		TourneeRecord: tournee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e := mapToTourneeEntity(existing)

	db := r.dbGetter(ctx)
	args := []any{e.Name, e.PompierID, e.ScheduledDate, e.Status, tournee.OptimizedRoute(), e.CreatedBy, e.CreatedAt, e.UpdatedAt}
	query := "INSERT INTO tournees (name, pompier_id, scheduled_date, status, optimized_route, created_by, created_at, updated_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating tournee", "query", query, "args", args)
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return calygo.ExistingTourneeRecord{}, err
	}
	insertedID, err := result.LastInsertId()
	if err != nil {
		return calygo.ExistingTourneeRecord{}, err
	}
	existing.ID = int(insertedID)

	query = "INSERT INTO tournee_addresses (tournee_id, address_id, position) VALUES (?, ?, ?)"
	for pos, addressID := range tournee.AddressIDs {
		r.l.Debug("adding tournee address", "query", query, "tourneeID", existing.ID, "addressID", addressID, "position", pos)
		if _, err := db.ExecContext(ctx, query, existing.ID, addressID, pos); err != nil {
			return calygo.ExistingTourneeRecord{}, fmt.Errorf("failed to add address %d: %w", addressID, err)
		}
	}

	return mapToExistingTourneeRecord(e, existing.ID, tournee.AddressIDs), nil
}

func (r *tourneeRepo) UpdateTourneeStatus(ctx context.Context, id int, status calygo.TourneeStatus) (calygo.ExistingTourneeRecord, error) {
	if !status.Valid() {
		return calygo.ExistingTourneeRecord{}, fmt.Errorf("unknown status %q: %w", status, calygo.ErrInvalid)
	}
	existing, err := r.GetTournee(ctx, id)
	if err != nil {
		return existing, err
	}

	existing.Status = status
	existing.UpdatedAt = unixTime(time.Now().Unix())

	query := "UPDATE tournees SET status = ?, updated_at = ? WHERE id = ?"
	args := []any{string(status), existing.UpdatedAt.Unix(), id}
	r.l.Debug("updating tournee status", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return calygo.ExistingTourneeRecord{}, err
	}
	return existing, nil
}

func (r *tourneeRepo) DeleteTournee(ctx context.Context, id int) (calygo.ExistingTourneeRecord, error) {
	existing, err := r.GetTournee(ctx, id)
	if err != nil {
		return existing, err
	}

	db := r.dbGetter(ctx)
	for _, query := range []string{
		"DELETE FROM tournee_addresses WHERE tournee_id = ?",
		"DELETE FROM tournees WHERE id = ?",
	} {
		r.l.Debug("deleting tournee", "query", query, "id", id)
		if _, err := db.ExecContext(ctx, query, id); err != nil {
			return calygo.ExistingTourneeRecord{}, err
		}
	}
	return existing, nil
}

func (r *tourneeRepo) getAddressIDs(ctx context.Context, tourneeID int) ([]int, error) {
	rows, err := r.dbGetter(ctx).QueryContext(
		ctx,
		"SELECT address_id FROM tournee_addresses WHERE tournee_id = ? ORDER BY position", tourneeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func extractTournee(s scannable) (calygo.ExistingTourneeRecord, error) {
	var e tourneeEntity
	if err := s.Scan(&e.ID, &e.Name, &e.PompierID, &e.ScheduledDate, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calygo.ExistingTourneeRecord{}, fmt.Errorf("failed to extract tournee: %w", ErrNotFound)
		}
		return calygo.ExistingTourneeRecord{}, err
	}
	return mapToExistingTourneeRecord(e, e.ID, nil), nil
}

func mapToTourneeEntity(t calygo.ExistingTourneeRecord) tourneeEntity {
	return tourneeEntity{
		ID:            t.ID,
		Name:          t.Name,
		PompierID:     t.PompierID,
		ScheduledDate: t.ScheduledDate.Unix(),
		Status:        string(t.Status),
		CreatedBy:     nullInt(t.CreatedBy),
		CreatedAt:     t.CreatedAt.Unix(),
		UpdatedAt:     t.UpdatedAt.Unix(),
	}
}

func mapToExistingTourneeRecord(e tourneeEntity, id int, addressIDs []int) calygo.ExistingTourneeRecord {
	return calygo.ExistingTourneeRecord{
		ID:        id,
		CreatedAt: unixTime(e.CreatedAt),
		UpdatedAt: unixTime(e.UpdatedAt),
		TourneeRecord: calygo.TourneeRecord{
			Name:          e.Name,
			PompierID:     e.PompierID,
			ScheduledDate: unixTime(e.ScheduledDate),
			Status:        calygo.TourneeStatus(e.Status),
			AddressIDs:    addressIDs,
			CreatedBy:     int(e.CreatedBy.Int64),
		},
	}
}
