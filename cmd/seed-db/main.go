package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-factory/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		dir         string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dir, "dir", "db/seed", "directory with <table>.json.gz fixtures")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, dir); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, dir string) error {
	// Fixtures decode in parallel; missing files are skipped.
	loaded := make([][]row, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tables {
		path := filepath.Join(dir, t.name+".json.gz")
		g.Go(func() error {
			rows, err := readFixture(gctx, path, t)
			if errors.Is(err, os.ErrNotExist) {
				lg.Info("No fixture", zap.String("table", t.name))
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			loaded[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i, t := range tables {
			if len(loaded[i]) == 0 {
				continue
			}
			batch := &pgx.Batch{}
			queueUpserts(batch, t, loaded[i])
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return errors.Wrapf(err, "upsert %s", t.name)
			}
			lg.Info("Upserted", zap.String("table", t.name), zap.Int("rows", len(loaded[i])))
		}
		return nil
	})
}
