package cli

import (
	"fmt"

	"github.com/julianstephens/activitytracker/internal/migration"
	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/migrations"
)

// MigrateCmd brings a SQL store's schema up to date, or copies the whole
// store into another backend when --to is given.
type MigrateCmd struct {
	To string `help:"Copy every entry and the metadata into this store (file path, postgres:// URL or keyring)."`
}

func (cmd *MigrateCmd) Run(ctx *Context) error {
	if cmd.To != "" {
		return cmd.copyTo(ctx)
	}

	store, ok := sqlStore(ctx)
	if !ok {
		ctx.println("JSON stores have no schema. Nothing to migrate.")
		return nil
	}

	// Opening the connection applies pending migrations
	db, err := store.DB()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fsys, err := migrations.For(string(store.Dialect()))
	if err != nil {
		return err
	}
	runner := migration.NewRunner(db, fsys, store.Dialect(), ctx.Logger)
	count, err := runner.Apply()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, err := runner.CurrentVersion()
	if err != nil {
		return err
	}

	if count == 0 {
		ctx.printf("Database is up to date (schema version %d).\n", version)
	} else {
		ctx.printf("Successfully applied %d migration(s). Schema version %d.\n", count, version)
	}
	return nil
}

func (cmd *MigrateCmd) copyTo(ctx *Context) error {
	src, err := ctx.Load()
	if err != nil {
		return err
	}

	dst, err := OpenModel(cmd.To, storage.Options{
		OwnerLabel: src.OwnerLabel(),
		Timestamps: ctx.Timestamps(),
		Logger:     ctx.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open target store: %w", err)
	}
	defer dst.Close()

	if err := dst.Replace(src.Snapshot()); err != nil {
		return err
	}
	if err := dst.Save(""); err != nil {
		return fmt.Errorf("failed to write target store: %w", err)
	}

	ctx.printf("✓ Copied %d entries to %s\n", dst.Len(), displayURI(dst.StoreURI()))
	return nil
}
