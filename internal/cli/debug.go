package cli

import (
	"fmt"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/julianstephens/activitytracker/internal/config"
	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/storage"
)

type DebugCmd struct {
	Path *DebugPathCmd `cmd:"" help:"Show store, config and log locations."`
	Dump *DebugDumpCmd `cmd:"" help:"Dump the store as a JSON document."`
}

type DebugPathCmd struct{}

func (cmd *DebugPathCmd) Run(ctx *Context) error {
	dir := config.Dir(ctx.ConfigDir)
	store := displayURI(ctx.storeURI())

	// Output in machine-readable format
	output := map[string]string{
		"store":       store,
		"config_dir":  dir,
		"config_file": config.File(ctx.ConfigDir),
		"log_file":    filepath.Join(dir, constants.LogDirName, constants.LogFileName),
	}

	jsonBytes, err := sonic.ConfigStd.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	ctx.println(string(jsonBytes))
	return nil
}

type DebugDumpCmd struct{}

func (cmd *DebugDumpCmd) Run(ctx *Context) error {
	m, err := ctx.Load()
	if err != nil {
		return err
	}

	data, err := storage.EncodeDocument(m.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	ctx.println(string(data))
	return nil
}
