package migration

import (
	"context"
	"time"
)

// Immigration runs migration Up or Down.
// Up means running all pending queries to latest version,
// Down means rollback the latest applied migrations.
type Immigration interface {
	Up(ctx context.Context) (applied int, err error)
	Down(ctx context.Context, steps int) (rolledBack int, err error)
	Status(ctx context.Context) (records []Record, err error)
}

// Migrate is a migration data to run.
type Migrate interface {
	// ID return unique identifier for each migration. The prefix must be number
	ID(ctx context.Context) string

	// SequenceNumber must be unique, this useful to see the current status of the migration.
	SequenceNumber(ctx context.Context) int

	// Up return sql migration for sync database
	Up(ctx context.Context) (sql string, err error)

	// Down return sql migration for rollback database
	Down(ctx context.Context) (sql string, err error)
}

// Record is known migration with the time it is applied, zero AppliedAt means pending.
type Record struct {
	ID        string
	AppliedAt time.Time
}

func (r Record) Applied() bool {
	return !r.AppliedAt.IsZero()
}
