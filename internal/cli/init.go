package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/internal/storage/sqlite"
)

type InitCmd struct {
	Owner string `help:"Owner label written into the store. Defaults to the configured owner."`
	Force bool   `help:"Reinitialize an existing store, discarding its entries."`
}

func (c *InitCmd) Run(ctx *Context) error {
	m, err := ctx.Model()
	if err != nil {
		return err
	}

	loadErr := m.Load("")
	if !c.Force {
		if loadErr == nil {
			ctx.printf("Store already initialized at: %s (%d entries). Use --force to reinitialize.\n", m.StoreURI(), m.Len())
			return nil
		}
		if path, ok := filePath(m); ok && !sqlite.IsPath(path) && !errors.Is(loadErr, fs.ErrNotExist) {
			return fmt.Errorf("store at %s exists but cannot be read (use --force to overwrite): %w", path, loadErr)
		}
	}

	owner := c.Owner
	if owner == "" {
		owner = ctx.config().Owner
	}
	now := ctx.Timestamps().NowText()
	err = m.Replace(storage.Snapshot{
		OwnerLabel: owner,
		CreatedAt:  now,
		ModifiedAt: now,
		ModifiedBy: storage.CurrentUser(),
	})
	if err != nil {
		return err
	}
	if path, ok := filePath(m); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	if err := m.Save(""); err != nil {
		return err
	}

	ctx.printf("Initialized activitytracker store at: %s\n", m.StoreURI())
	return nil
}
