package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"github.com/calygofire/calygo"
)

const selectAllPending = "SELECT id, url, method, headers, body, timestamp FROM pending_requests"

type pendingRequestRepo struct {
	dbGetter txStdLib.DBGetter
	l        calygo.Logger
}

var _ calygo.PendingRequestRepo = (*pendingRequestRepo)(nil)

func NewPendingRequestRepo(dbGetter txStdLib.DBGetter, logger calygo.Logger) calygo.PendingRequestRepo {
	return &pendingRequestRepo{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (r *pendingRequestRepo) ClearPending(ctx context.Context) error {
	query := "DELETE FROM pending_requests"
	r.l.Debug("clearing pending requests", "query", query)
	_, err := r.dbGetter(ctx).ExecContext(ctx, query)
	return err
}

func (r *pendingRequestRepo) InsertPending(ctx context.Context, req calygo.PendingRequest) error {
	if req.ID == "" {
		return fmt.Errorf("provide required field 'ID': %w", calygo.ErrInvalid)
	}

	headers := req.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	b, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}

	query := "INSERT INTO pending_requests (id, url, method, headers, body, timestamp) VALUES (?, ?, ?, ?, ?, ?)"
	r.l.Debug("inserting pending request", "query", query, "id", req.ID)
	_, err = r.dbGetter(ctx).ExecContext(ctx, query, req.ID, req.URL, req.Method, string(b), req.Body, req.Timestamp)
	return err
}

// GetAllPending returns the requests in insertion order. Rows whose headers
// cannot be decoded are logged and skipped.
func (r *pendingRequestRepo) GetAllPending(ctx context.Context) ([]calygo.PendingRequest, error) {
	query := selectAllPending + " ORDER BY seq"
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var reqs []calygo.PendingRequest
	for rows.Next() {
		var req calygo.PendingRequest
		var headers string
		if err := rows.Scan(&req.ID, &req.URL, &req.Method, &headers, &req.Body, &req.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(headers), &req.Headers); err != nil {
			r.l.Warn("skipping pending request with unreadable headers", "id", req.ID, "error", err)
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}
