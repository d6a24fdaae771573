package cli

import (
	"fmt"
	"os"

	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/internal/storage/sqlite"
	"github.com/julianstephens/activitytracker/internal/validation"
)

type ValidateCmd struct {
	Fix bool `help:"Remove later duplicates of repeated entry IDs and save."`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	m, err := ctx.Model()
	if err != nil {
		return err
	}
	validator := validation.NewWith(ctx.Timestamps())

	ctx.println("Validating entries...")
	loadErr := m.Load("")
	if loadErr != nil {
		// A JSON store that fails strict loading is inspected leniently
		path, ok := filePath(m)
		if !ok || sqlite.IsPath(path) {
			return fmt.Errorf("failed to load store: %w", loadErr)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load store: %w", loadErr)
		}
		inputs, err := storage.DecodeInputs(data)
		if err != nil {
			return fmt.Errorf("failed to load store: %w", loadErr)
		}
		result := validator.ValidateInputs(inputs)
		ctx.println()
		ctx.printf("Store cannot be loaded: %v\n", loadErr)
		ctx.println(result.FormatReport())
		if cmd.Fix {
			ctx.println("Auto-fix is unavailable until the store loads; correct the entries above by hand.")
		}
		return nil
	}

	entries := m.Entries()
	result := validator.ValidateEntries(entries)

	ctx.println()
	ctx.println(result.FormatReport())

	if !cmd.Fix || !result.HasConflicts() {
		return nil
	}

	kept, actions := validation.AutoFixDuplicateEntries(result.Conflicts, entries)
	if len(actions) == 0 {
		ctx.println("Nothing to auto-fix.")
		return nil
	}
	snap := m.Snapshot()
	snap.Entries = kept
	if err := m.Replace(snap); err != nil {
		return err
	}
	if err := m.Save(""); err != nil {
		return fmt.Errorf("failed to save fixes: %w", err)
	}
	for _, a := range actions {
		ctx.printf("✓ %s\n", a.Action)
	}
	return nil
}
