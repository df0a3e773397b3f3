//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/meetly/meetly/internal/testutil"
	"github.com/meetly/meetly/migrations"
)

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	for _, table := range []string{"users", "meetings", "invitations"} {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_MeetingsTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"title",
		"description",
		"start_time",
		"end_time",
		"created_by",
		"file_path",
		"public_link_id",
		"is_canceled",
		"created_at",
		"updated_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "meetings", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in meetings table", col)
			}
		})
	}
}

func TestIntegrationMigration_Constraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)
	if err := testutil.TruncateAll(ctx, pool); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash)
		VALUES ('u1', 'Ada', 'Lovelace', 'ada@example.com', 'x')
	`)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash)
		VALUES ('u2', 'Ada', 'Again', 'ada@example.com', 'x')
	`)
	if !isUniqueViolation(err) {
		t.Errorf("Expected unique violation on duplicate email, got %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role)
		VALUES ('u3', 'Bad', 'Role', 'role@example.com', 'x', 'owner')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for unknown role")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO meetings (id, title, description, start_time, end_time, created_by, public_link_id)
		VALUES ('m1', 't', 'd', NOW(), NOW() - INTERVAL '1 minute', 'u1', gen_random_uuid())
	`)
	if err == nil {
		t.Error("Expected check constraint violation for end_time before start_time")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO meetings (id, title, description, start_time, end_time, created_by, public_link_id)
		VALUES ('m2', 't', 'd', NOW(), NOW() + INTERVAL '1 hour', 'nobody', gen_random_uuid())
	`)
	if err == nil {
		t.Error("Expected foreign key violation for unknown creator")
	}
}

func TestIntegrationMigration_DownAndUp(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		t.Fatalf("set dialect: %v", err)
	}

	if err := goose.DownToContext(ctx, db, ".", 1); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	exists, err := tableExists(ctx, pool, "meetings")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("meetings table should not exist after rollback")
	}

	if err := runMigrations(ctx, db); err != nil {
		t.Fatalf("reapply migrations: %v", err)
	}
	exists, err = tableExists(ctx, pool, "meetings")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if !exists {
		t.Error("meetings table should exist after reapplying")
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })

	if err := runMigrations(ctx, db); err != nil {
		t.Fatalf("second apply should be a no-op: %v", err)
	}
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// newMigrationTestEnv connects, takes the shared test lock and makes sure
// the schema is current.
func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := runMigrations(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return ctx, pool
}
