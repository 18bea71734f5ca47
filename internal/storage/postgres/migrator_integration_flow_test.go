package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	steps := []struct {
		name        string
		run         func() error
		wantVersion int64
		wantCount   int
	}{
		{name: "reset", run: func() error { return store.MigrateDown(ctx, 100) }},
		{name: "up all", run: func() error { return store.MigrateUp(ctx, 0) }, wantVersion: 2, wantCount: 2},
		{name: "idempotent up", run: func() error { return store.MigrateUp(ctx, 0) }, wantVersion: 2, wantCount: 2},
		{name: "down one", run: func() error { return store.MigrateDown(ctx, 1) }, wantVersion: 1, wantCount: 1},
		{name: "up one", run: func() error { return store.MigrateUp(ctx, 1) }, wantVersion: 2, wantCount: 2},
		{name: "down default step", run: func() error { return store.MigrateDown(ctx, 0) }, wantVersion: 1, wantCount: 1},
		{name: "down rest", run: func() error { return store.MigrateDown(ctx, 5) }},
		{name: "down on empty", run: func() error { return store.MigrateDown(ctx, 1) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		version, count, err := store.MigrationStatus(ctx)
		if err != nil {
			t.Fatalf("%s: migration status: %v", step.name, err)
		}
		if version != step.wantVersion || count != step.wantCount {
			t.Fatalf("%s: unexpected status version=%d count=%d", step.name, version, count)
		}
	}

	// Остальные интеграционные тесты ожидают актуальную схему.
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
}

func TestMigrator_NilStoreGuards(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := nilStore.MigrateUp(ctx, 0); err == nil {
		t.Fatal("expected error for nil store MigrateUp")
	}
	if err := nilStore.MigrateDown(ctx, 1); err == nil {
		t.Fatal("expected error for nil store MigrateDown")
	}
	if _, _, err := nilStore.MigrationStatus(ctx); err == nil {
		t.Fatal("expected error for nil store MigrationStatus")
	}
}
