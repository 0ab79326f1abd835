package calygo

import "context"

// PendingRequestRepo is the durable collection behind the offline queue.
// It is owned by the queue; nothing else should write to it.
type PendingRequestRepo interface {
	ClearPending(ctx context.Context) error
	InsertPending(ctx context.Context, req PendingRequest) error
	GetAllPending(ctx context.Context) ([]PendingRequest, error)
}
