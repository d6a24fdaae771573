package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/activitytracker/internal/config"
	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/keyring"
	"github.com/julianstephens/activitytracker/internal/storage/postgres"

	apperrors "github.com/julianstephens/activitytracker/internal/errors"
)

type ConfigCmd struct {
	Show    ConfigShowCmd `cmd:"" help:"Show the effective configuration." default:"1"`
	Set     ConfigSetCmd  `cmd:"" help:"Write one setting to the config file."`
	Keyring KeyringCmd    `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
}

type ConfigShowCmd struct{}

func (cmd *ConfigShowCmd) Run(ctx *Context) error {
	cfg := ctx.config()
	store := displayURI(cfg.StoreURI)

	ctx.printf("Config file: %s\n\n", config.File(ctx.ConfigDir))
	ctx.printf("%-22s %s\n", constants.SettingStoreURI, store)
	ctx.printf("%-22s %s\n", constants.SettingOwner, cfg.Owner)
	ctx.printf("%-22s %d\n", constants.SettingDefaultDurationMin, cfg.DefaultDurationMin)
	ctx.printf("%-22s %s\n", constants.SettingPollInterval, cfg.Dispatcher.PollInterval)
	ctx.printf("%-22s %t\n", constants.SettingLogDebug, cfg.Log.Debug)
	return nil
}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Setting name (store_uri, owner, default_duration_min, dispatcher.poll_interval, log.debug)."`
	Value string `arg:"" help:"New value."`
}

func (cmd *ConfigSetCmd) Run(ctx *Context) error {
	// Reloaded so the --store flag is not written back
	cfg, err := config.Load(ctx.ConfigDir)
	if err != nil {
		return err
	}
	if err := applySetting(cfg, cmd.Key, cmd.Value); err != nil {
		return err
	}
	if err := config.Save(ctx.ConfigDir, cfg); err != nil {
		return err
	}

	ctx.printf("✓ %s updated in %s\n", cmd.Key, config.File(ctx.ConfigDir))
	return nil
}

func applySetting(cfg *config.Config, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case constants.SettingStoreURI:
		if postgres.IsConnString(value) {
			if err := postgres.ValidateConnString(value); err != nil {
				return err
			}
		}
		cfg.StoreURI = value
	case constants.SettingOwner:
		cfg.Owner = value
	case constants.SettingDefaultDurationMin:
		n, err := strconv.Atoi(value)
		if err != nil {
			return apperrors.InvalidArgument("%s must be a whole number of minutes, got %q", key, value)
		}
		cfg.DefaultDurationMin = n
	case constants.SettingPollInterval:
		d, err := time.ParseDuration(value)
		if err != nil {
			return apperrors.InvalidArgument("%s must be a duration such as 2s, got %q", key, value)
		}
		cfg.Dispatcher.PollInterval = d
	case constants.SettingLogDebug:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return apperrors.InvalidArgument("%s must be true or false, got %q", key, value)
		}
		cfg.Log.Debug = b
	default:
		return apperrors.InvalidArgument("unknown setting %q", key)
	}
	return cfg.Validate()
}

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a connection string in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is usable."`
}

// KeyringSetCmd stores database connection credentials in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in keyring."`
}

func (cmd *KeyringSetCmd) Run(ctx *Context) error {
	if !postgres.IsConnString(cmd.ConnectionString) && !strings.Contains(cmd.ConnectionString, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so a password is accepted here
		ctx.println("⚠️  Warning: Connection string contains embedded credentials.")
		ctx.println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return err
	}

	ctx.println("✓ Connection string stored successfully in OS keyring")
	ctx.printf("  Use --store %s to select it\n", KeyringURI)
	return nil
}

// KeyringGetCmd retrieves database connection credentials from the OS keyring
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'activitytracker config keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	ctx.println("Connection string retrieved from keyring:")
	ctx.println(postgres.Redact(connStr))
	return nil
}

// KeyringDeleteCmd removes database connection credentials from the OS keyring
type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}

	ctx.println("✓ Connection string deleted from OS keyring")
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *Context) error {
	if !keyring.IsAvailable() {
		ctx.println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}

	ctx.println("✓ OS keyring is available")
	_, err := keyring.GetConnectionString()
	switch {
	case err == nil:
		ctx.println("✓ Connection string is stored in keyring")
	case errors.Is(err, keyring.ErrNotFound):
		ctx.println("ℹ No connection string stored in keyring")
	}
	return nil
}
