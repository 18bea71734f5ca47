package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/mongo"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second

	backendPostgres = "postgres"
	backendMongo    = "mongodb"
)

type options struct {
	backend   string
	direction string
	steps     int
	dsn       string
	uri       string
	database  string
}

func main() {
	var opts options

	flag.StringVar(&opts.backend, "backend", backendPostgres, "storage backend: postgres|mongodb")
	flag.StringVar(&opts.direction, "direction", "up", "migration direction: up|down|status (postgres only)")
	flag.IntVar(&opts.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flag.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: STOREFRONT_POSTGRES_DSN)")
	flag.StringVar(&opts.uri, "uri", "", "MongoDB URI (fallback: STOREFRONT_MONGODB_URI)")
	flag.StringVar(&opts.database, "database", "", "MongoDB database (fallback: STOREFRONT_MONGODB_DATABASE)")
	flag.Parse()

	opts = opts.withEnv(os.Getenv)
	if err := opts.validate(); err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fail("%v", err)
	}
}

// withEnv дополняет пустые флаги значениями из окружения.
func (o options) withEnv(getenv func(string) string) options {
	o.backend = strings.ToLower(strings.TrimSpace(o.backend))
	o.direction = strings.ToLower(strings.TrimSpace(o.direction))
	if strings.TrimSpace(o.dsn) == "" {
		o.dsn = strings.TrimSpace(getenv("STOREFRONT_POSTGRES_DSN"))
	}
	if strings.TrimSpace(o.uri) == "" {
		o.uri = strings.TrimSpace(getenv("STOREFRONT_MONGODB_URI"))
	}
	if strings.TrimSpace(o.database) == "" {
		o.database = strings.TrimSpace(getenv("STOREFRONT_MONGODB_DATABASE"))
	}
	return o
}

func (o options) validate() error {
	switch o.backend {
	case backendPostgres:
		if o.dsn == "" {
			return errors.New("STOREFRONT_POSTGRES_DSN (or -dsn) is required")
		}
		switch o.direction {
		case "up", "down", "status":
		default:
			return fmt.Errorf("unsupported direction: %s (use up|down|status)", o.direction)
		}
	case backendMongo:
		if o.uri == "" || o.database == "" {
			return errors.New("STOREFRONT_MONGODB_URI and STOREFRONT_MONGODB_DATABASE (or -uri/-database) are required")
		}
	default:
		return fmt.Errorf("unsupported backend: %s (use postgres|mongodb)", o.backend)
	}
	return nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.backend == backendMongo {
		return ensureMongoIndexes(ctx, opts, out)
	}
	return migratePostgres(ctx, opts, out)
}

func migratePostgres(ctx context.Context, opts options, out io.Writer) error {
	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close(ctx)

	switch opts.direction {
	case "up":
		if err := store.MigrateUp(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		steps := opts.steps
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "migrate %s ok: version=%d applied=%d\n", opts.direction, version, count)
	return nil
}

func ensureMongoIndexes(ctx context.Context, opts options, out io.Writer) error {
	store, err := mongo.Connect(ctx, opts.uri, opts.database)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer store.Close(ctx)

	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "mongodb indexes ok: database=%s\n", opts.database)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
