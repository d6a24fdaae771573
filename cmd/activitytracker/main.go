package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/activitytracker/internal/cli"
	"github.com/julianstephens/activitytracker/internal/config"
	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/logger"
)

var CLI struct {
	Version   kong.VersionFlag
	Store     string `help:"Activity store: a JSON file, a .db SQLite file, a postgres:// URL (no password) or 'keyring'. Overrides store_uri from the config file." type:"string"`
	ConfigDir string `help:"Configuration directory." type:"path" default:"~/.config/activitytracker"`
	Debug     bool   `help:"Enable debug logging to stderr."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize the activity store."`
	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Add      cli.AddCmd      `cmd:"" help:"Record an activity."`
	List     cli.ListCmd     `cmd:"" help:"List recorded activities."`
	Summary  cli.SummaryCmd  `cmd:"" help:"Total time per activity."`
	Duration cli.DurationCmd `cmd:"" help:"Compute the span between two timestamps."`
	Shift    cli.ShiftCmd    `cmd:"" help:"Move a timestamp forward or back."`
	Now      cli.NowCmd      `cmd:"" help:"Print the current timestamp."`
	Compare  cli.CompareCmd  `cmd:"" help:"Check whether two timestamps are within a tolerance."`
	Watch    cli.WatchCmd    `cmd:"" help:"Follow changes made to the store by other processes."`
	Validate cli.ValidateCmd `cmd:"" help:"Check entries for conflicts."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Migrate  cli.MigrateCmd  `cmd:"" help:"Run schema migrations or copy the store to another backend."`
	DebugCmd cli.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Config   cli.ConfigCmd   `cmd:"" help:"Show or change configuration."`
	Backup   struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage store backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Record and summarize time spent on activities"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":   constants.Version,
			"tolerance": fmt.Sprint(constants.DefaultApproxToleranceSec),
		},
	)

	cfg, err := config.Load(CLI.ConfigDir)
	if err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug || cfg.Log.Debug,
		ConfigDir: config.Dir(CLI.ConfigDir),
	}); err != nil {
		errors.Fatal(fmt.Errorf("failed to initialize logger: %w", err))
	}
	logger.Debug("starting", "command", ctx.Command(), "version", constants.Version)

	appCtx := &cli.Context{
		StoreURI:  CLI.Store,
		ConfigDir: CLI.ConfigDir,
		Config:    cfg,
		Runtime:   config.DetectRuntime(os.Stdout),
		Logger:    logger.Logger,
		Out:       os.Stdout,
		In:        os.Stdin,
	}

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("failed to close store", "err", closeErr)
	}
	errors.Fatal(err)
}
