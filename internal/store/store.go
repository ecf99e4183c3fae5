// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// ProfileWriter appends registration profiles.
type ProfileWriter interface {
	AppendProfile(ctx context.Context, p domain.Profile) error
}

// SelectionWriter appends finalized result selections.
type SelectionWriter interface {
	AppendSelection(ctx context.Context, sel domain.Selection) error
}

// RecordSource reads the full influencer table.
type RecordSource interface {
	ListRecords(ctx context.Context) ([]domain.Record, error)
}

// Repository is the complete persistence surface.
type Repository interface {
	ProfileWriter
	SelectionWriter
	RecordSource

	// InsertRecords appends raw influencer rows and returns how many were written.
	InsertRecords(ctx context.Context, rows []Row) (int, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
