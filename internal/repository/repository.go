package repository

import (
	"context"

	"parkgate/internal/domain/parking"
)

// LedgerStore is the persistent record store shared by the entry, exit
// and payment controllers. Every write is a single-record insert or a
// single-record update; no cross-record transactions are needed. Find
// methods return (nil, nil) when no matching record exists.
type LedgerStore interface {
	InsertEntry(ctx context.Context, event *parking.Event) error
	// UpdateEvent applies a settlement atomically: either all fields of
	// the update become visible or none do.
	UpdateEvent(ctx context.Context, id int64, update parking.SettlementUpdate) error
	// FindLatestPaid returns the most recent paid visit for the plate,
	// the record an exit authorization is decided on.
	FindLatestPaid(ctx context.Context, plate string) (*parking.Event, error)
	// FindOldestUnpaid returns the earliest unpaid visit for the plate;
	// settlement is FIFO.
	FindOldestUnpaid(ctx context.Context, plate string) (*parking.Event, error)
	InsertIncident(ctx context.Context, incident *parking.Incident) error
	// ListEvents returns all visits ordered by entry time descending.
	ListEvents(ctx context.Context) ([]parking.Event, error)
	// ListIncidents returns all incidents ordered by timestamp descending.
	ListIncidents(ctx context.Context) ([]parking.Incident, error)
}
