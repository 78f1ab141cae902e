package migration

import (
	"context"
	"database/sql"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/ylog"
	"go.opentelemetry.io/otel/trace"
)

type SQLImmigrationConfig struct {
	Dialect        string    `validate:"required,oneof=mysql postgres"`
	DB             *sql.DB   `validate:"required"`
	MigrationTable string    `validate:"required"`
	Migrations     []Migrate `validate:"required,min=1"`
}

type SQLImmigration struct {
	config SQLImmigrationConfig
	source *migrate.MemoryMigrationSource
}

var _ Immigration = (*SQLImmigration)(nil)

func NewSQLImmigration(ctx context.Context, config SQLImmigrationConfig) (*SQLImmigration, error) {
	err := validator.Validate(config)
	if err != nil {
		return nil, err
	}

	source, err := memorySource(ctx, config.Migrations)
	if err != nil {
		return nil, err
	}

	return &SQLImmigration{
		config: config,
		source: source,
	}, nil
}

func (p *SQLImmigration) Up(ctx context.Context) (applied int, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "migration.Up")
	defer span.End()

	migrate.SetTable(p.config.MigrationTable)
	applied, err = migrate.Exec(p.config.DB, p.config.Dialect, p.source, migrate.Up)
	if err != nil {
		err = fmt.Errorf("migration up: %w", err)
		return
	}

	ylog.Info(ctx, "migration up done", ylog.KV("applied", applied))
	return
}

// Down rollback at most steps migrations, steps <= 0 rollback everything.
func (p *SQLImmigration) Down(ctx context.Context, steps int) (rolledBack int, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "migration.Down")
	defer span.End()

	if steps < 0 {
		steps = 0
	}

	migrate.SetTable(p.config.MigrationTable)
	rolledBack, err = migrate.ExecMax(p.config.DB, p.config.Dialect, p.source, migrate.Down, steps)
	if err != nil {
		err = fmt.Errorf("migration down: %w", err)
		return
	}

	ylog.Info(ctx, "migration down done", ylog.KV("rolled_back", rolledBack))
	return
}

// Status list every known migration in order, marking which one is already applied.
func (p *SQLImmigration) Status(ctx context.Context) (records []Record, err error) {
	var span trace.Span
	_, span = tracer.StartSpan(ctx, "migration.Status")
	defer span.End()

	migrate.SetTable(p.config.MigrationTable)
	applied, err := migrate.GetMigrationRecords(p.config.DB, p.config.Dialect)
	if err != nil {
		err = fmt.Errorf("get migration records: %w", err)
		return
	}

	known, err := p.source.FindMigrations()
	if err != nil {
		return
	}

	return mergeRecords(known, applied), nil
}

func memorySource(ctx context.Context, migrations []Migrate) (*migrate.MemoryMigrationSource, error) {
	seen := make(map[string]struct{}, len(migrations))
	mig := make([]*migrate.Migration, 0, len(migrations))
	for _, m := range migrations {
		id := m.ID(ctx)
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate migration id %s", id)
		}
		seen[id] = struct{}{}

		sqlUp, err := m.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("migration %s up: %w", id, err)
		}

		sqlDown, err := m.Down(ctx)
		if err != nil {
			return nil, fmt.Errorf("migration %s down: %w", id, err)
		}

		mig = append(mig, &migrate.Migration{
			Id:   id,
			Up:   []string{sqlUp},
			Down: []string{sqlDown},
		})
	}

	return &migrate.MemoryMigrationSource{
		Migrations: mig,
	}, nil
}

func mergeRecords(known []*migrate.Migration, applied []*migrate.MigrationRecord) []Record {
	appliedAt := make(map[string]*migrate.MigrationRecord, len(applied))
	for _, a := range applied {
		appliedAt[a.Id] = a
	}

	records := make([]Record, 0, len(known))
	for _, k := range known {
		rec := Record{ID: k.Id}
		if a, ok := appliedAt[k.Id]; ok {
			rec.AppliedAt = a.AppliedAt
		}

		records = append(records, rec)
	}

	return records
}
