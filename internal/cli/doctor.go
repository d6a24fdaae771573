package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/activitytracker/internal/keyring"
	"github.com/julianstephens/activitytracker/internal/migration"
	"github.com/julianstephens/activitytracker/internal/storage/sqlstore"
	"github.com/julianstephens/activitytracker/internal/validation"
	"github.com/julianstephens/activitytracker/migrations"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	storeReachable := false

	// Check 1: Store reachable
	if err := checkStoreReachable(ctx); err != nil {
		ctx.printf("❌ Store reachable: FAIL\n")
		ctx.printf("   Error: %v\n", err)
		hasError = true
	} else {
		ctx.printf("✓ Store reachable: OK\n")
		storeReachable = true
	}

	// Check 2: Schema version valid
	if err := checkSchemaVersion(ctx); err != nil {
		ctx.printf("❌ Schema version: FAIL\n")
		ctx.printf("   Error: %v\n", err)
		hasError = true
	} else {
		ctx.printf("✓ Schema version: OK\n")
	}

	// Check 3: Migrations complete
	if err := checkMigrationsComplete(ctx); err != nil {
		ctx.printf("❌ Migrations complete: FAIL\n")
		ctx.printf("   Error: %v\n", err)
		hasError = true
	} else {
		ctx.printf("✓ Migrations complete: OK\n")
	}

	// Check 4: Backups present (warning only)
	if err := checkBackupsPresent(ctx); err != nil {
		ctx.printf("⚠ Backups present: WARNING\n")
		ctx.printf("   %v\n", err)
	} else {
		ctx.printf("✓ Backups present: OK\n")
	}

	// Check 5: Validation passes (only if the store is reachable)
	if storeReachable {
		if err := checkValidation(ctx); err != nil {
			ctx.printf("❌ Data validation: FAIL\n")
			ctx.printf("   Error: %v\n", err)
			hasError = true
		} else {
			ctx.printf("✓ Data validation: OK\n")
		}
	} else {
		ctx.printf("⊘ Data validation: SKIPPED (store not reachable)\n")
	}

	// Check 6: Keyring (only matters for keyring-backed stores)
	if ctx.storeURI() == KeyringURI {
		if keyring.IsAvailable() {
			ctx.printf("✓ OS keyring: OK\n")
		} else {
			ctx.printf("⚠ OS keyring: WARNING\n")
			ctx.printf("   keyring unavailable; set %s instead\n", keyring.EnvConnection)
		}
	}

	// Check 7: Clock/timezone sanity
	if err := checkClockTimezone(ctx, time.Now()); err != nil {
		ctx.printf("❌ Clock/timezone: FAIL\n")
		ctx.printf("   Error: %v\n", err)
		hasError = true
	} else {
		ctx.printf("✓ Clock/timezone: OK\n")
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.println("All diagnostics passed!")
	return nil
}

func checkStoreReachable(ctx *Context) error {
	if _, err := ctx.Load(); err != nil {
		return err
	}

	store, ok := sqlStore(ctx)
	if !ok {
		return nil
	}
	db, err := store.DB()
	if err != nil {
		return err
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

// schemaVersions reads the current and latest schema versions of a SQL store.
// ok is false for JSON stores, which have no schema.
func schemaVersions(ctx *Context) (current, latest int, ok bool, err error) {
	store, isSQL := sqlStore(ctx)
	if !isSQL {
		return 0, 0, false, nil
	}
	db, err := store.DB()
	if err != nil {
		return 0, 0, true, err
	}
	fsys, err := migrations.For(string(store.Dialect()))
	if err != nil {
		return 0, 0, true, err
	}
	runner := migration.NewRunner(db, fsys, store.Dialect(), ctx.Logger)

	current, err = runner.CurrentVersion()
	if err != nil {
		return 0, 0, true, fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err = runner.LatestVersion()
	if err != nil {
		return 0, 0, true, fmt.Errorf("failed to get latest schema version: %w", err)
	}
	return current, latest, true, nil
}

func checkSchemaVersion(ctx *Context) error {
	current, latest, ok, err := schemaVersions(ctx)
	if !ok || err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *Context) error {
	current, latest, ok, err := schemaVersions(ctx)
	if !ok || err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'activitytracker backup create'")
	}

	return nil
}

func checkValidation(ctx *Context) error {
	m, err := ctx.Model()
	if err != nil {
		return err
	}
	result := validation.NewWith(ctx.Timestamps()).ValidateEntries(m.Entries())
	if result.HasErrors() {
		errs := 0
		for _, c := range result.Conflicts {
			if c.Severity == validation.SeverityError {
				errs++
			}
		}
		return fmt.Errorf("%d conflict(s) found - run 'activitytracker validate' for details", errs)
	}
	return nil
}

func checkClockTimezone(ctx *Context, now time.Time) error {
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	name, offset := now.Zone()
	ctx.printf("   Local zone: %s (UTC%+03d:%02d)\n", name, offset/3600, abs(offset%3600)/60)

	return nil
}

func sqlStore(ctx *Context) (*sqlstore.Store, bool) {
	m, err := ctx.Model()
	if err != nil {
		return nil, false
	}
	store, ok := m.(*sqlstore.Store)
	return store, ok
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
