package constants

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ConflictType represents the type of validation conflict
type ConflictType string

// SessionState represents the current state of the TUI application
type SessionState int

// StatusMsg carries a transient status line for the TUI footer
type StatusMsg struct {
	Text  string
	Error bool
}

// ConfirmationMsg is a message to trigger a confirmation dialog
type ConfirmationMsg struct {
	Message string
	Action  func() tea.Cmd
}

const (
	AppName            = "activitytracker"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/activitytracker"
	ConfigFileName     = "config"
	ConfigFileType     = "yaml"
	EnvPrefix          = "ACTIVITYTRACKER"
	Version            = "v0.2.0"

	// DefaultStoreURI is the store file used when no location is configured
	DefaultStoreURI = "activities.json"

	// Log constants
	LogDirName    = "logs"
	LogFileName   = "activitytracker.log"
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "activitytracker-"

	// Dispatcher constants
	DefaultPollInterval = 2 * time.Second

	// Event type keys
	EventsModel = "model.events"
	EventsView  = "view.events"

	// Event names carried in Event.Type
	EventEntryAdded   = "entry.added"
	EventModelSaved   = "model.saved"
	EventModelLoaded  = "model.loaded"
	EventModelChanged = "model.changed"
	EventViewRefresh  = "view.refresh"

	// Conflict Types
	ConflictNegativeDuration   ConflictType = "negative_duration"
	ConflictOverlappingEntries ConflictType = "overlapping_entries"
	ConflictDuplicateEntryID   ConflictType = "duplicate_entry_id"
	ConflictInvalidTimestamp   ConflictType = "invalid_timestamp"
	ConflictEmptyActivity      ConflictType = "empty_activity"
)

// Session States
const (
	StateEntries SessionState = iota
	StateSummary
	StateAdding
	StateConfirmation
)
