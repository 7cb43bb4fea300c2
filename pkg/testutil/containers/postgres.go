//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"etatcivil/migrations"
	id "etatcivil/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("etatcivil_test"),
		postgres.WithUsername("etatcivil"),
		postgres.WithPassword("etatcivil_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{Container: container, DSN: dsn, DB: db}
	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// The Manager shares this container across suites; Ryuk removes it at process exit.
	return pc
}

// runMigrations executes all *.up.sql migrations from the embedded migrations.FS.
func (p *PostgresContainer) runMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return nil
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables truncates every table the service owns.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"outbox",
		"notifications",
		"download_entries",
		"certificates",
		"sequence_counters",
		"declaration_transitions",
		"declarations",
		"agents",
		"users",
		"hospitals",
		"offices",
	)
}

// CreateTestOffice inserts an office and returns its ID.
func (p *PostgresContainer) CreateTestOffice(ctx context.Context, t testing.TB, name string) id.OfficeID {
	t.Helper()
	officeID := id.OfficeID(uuid.New())
	if _, err := p.DB.ExecContext(ctx, `INSERT INTO offices (id, name) VALUES ($1, $2)`, uuid.UUID(officeID), name); err != nil {
		t.Fatalf("CreateTestOffice: %v", err)
	}
	return officeID
}

// CreateTestHospital inserts a hospital attached to officeID and returns its ID.
func (p *PostgresContainer) CreateTestHospital(ctx context.Context, t testing.TB, officeID id.OfficeID) id.HospitalID {
	t.Helper()
	hospitalID := id.HospitalID(uuid.New())
	if _, err := p.DB.ExecContext(ctx, `INSERT INTO hospitals (id, name, office_id) VALUES ($1, $2, $3)`,
		uuid.UUID(hospitalID), "Hopital "+uuid.NewString()[:8], uuid.UUID(officeID)); err != nil {
		t.Fatalf("CreateTestHospital: %v", err)
	}
	return hospitalID
}

// CreateTestUser inserts a user with role and returns its ID.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, role id.Role) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	if _, err := p.DB.ExecContext(ctx, `INSERT INTO users (id, role) VALUES ($1, $2)`, uuid.UUID(userID), string(role)); err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}

// CreateTestAgent inserts a user plus agent affiliation and returns the user ID.
func (p *PostgresContainer) CreateTestAgent(ctx context.Context, t testing.TB, role id.Role, orgID uuid.UUID, verified bool) id.UserID {
	t.Helper()
	userID := p.CreateTestUser(ctx, t, role)
	var org any
	if orgID != uuid.Nil {
		org = orgID
	}
	if _, err := p.DB.ExecContext(ctx, `INSERT INTO agents (user_id, role, organization_id, verified) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(userID), string(role), org, verified); err != nil {
		t.Fatalf("CreateTestAgent: %v", err)
	}
	return userID
}
