package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/activitytracker/internal/backup"
	"github.com/julianstephens/activitytracker/internal/constants"
)

// backupManager returns a manager for file-backed stores. PostgreSQL
// stores are backed up with the database's own tooling.
func backupManager(ctx *Context) (*backup.Manager, error) {
	m, err := ctx.Model()
	if err != nil {
		return nil, err
	}
	path, ok := filePath(m)
	if !ok {
		return nil, fmt.Errorf("backups are only supported for file stores; use pg_dump for PostgreSQL")
	}
	return backup.NewManagerWith(path, backup.Options{Logger: ctx.Logger}), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	ctx.printf("✓ Backup created: %s\n", filepath.Base(backupPath))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.println("No backups found.")
		ctx.printf("Backups are stored in: %s\n", mgr.GetBackupDir())
		return nil
	}

	ctx.printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		sizeKB := float64(b.Size) / 1024.0
		timestamp := b.Timestamp.Format("2006-01-02 15:04:05")
		ctx.printf("  %s  %s  (%.1f KB)\n", timestamp, filepath.Base(b.Path), sizeKB)
	}
	ctx.printf("\nBackup directory: %s\n", mgr.GetBackupDir())

	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}

	backupPath := c.BackupFile
	if !filepath.IsAbs(backupPath) {
		possiblePath := filepath.Join(mgr.GetBackupDir(), c.BackupFile)
		if _, err := os.Stat(possiblePath); err == nil {
			backupPath = possiblePath
		}
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	if !c.Yes {
		ctx.println("⚠️  WARNING: This will replace your current store with the backup.")
		ctx.println("A backup of your current store will be created before restoring.")
		ctx.printf("\nRestore from: %s\n", filepath.Base(backupPath))
		ok, err := ctx.confirm("Continue?")
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Restore cancelled.")
			return nil
		}
	}

	// Release the database file before it is replaced
	if err := ctx.Close(); err != nil {
		ctx.logger().Warn("failed to close store before restore", "err", err)
	}

	safety, err := mgr.RestoreBackup(backupPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	if safety != "" {
		ctx.printf("Created backup of current store: %s\n", filepath.Base(safety))
	}
	ctx.println("✓ Store restored successfully!")
	ctx.println("Restart any running activitytracker processes to use the restored store.")

	return nil
}

// autoBackup snapshots a file store before an interactive session
func autoBackup(ctx *Context) {
	mgr, err := backupManager(ctx)
	if err != nil {
		return
	}
	if _, err := os.Stat(mgr.StorePath()); err != nil {
		return
	}
	if _, err := mgr.CreateBackup(); err != nil {
		ctx.logger().Warn("automatic backup failed", "err", err)
	}
}
