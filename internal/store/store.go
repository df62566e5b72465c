// Package store persists the command history.
package store

import (
	"context"

	"github.com/ashureev/agentdesk/internal/domain"
)

// Repository defines the interface for persisting handled commands.
type Repository interface {
	// RecordCommand appends one handled command to the history.
	RecordCommand(ctx context.Context, rec *domain.CommandRecord) error

	// RecentCommands returns up to limit records, newest first.
	RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
