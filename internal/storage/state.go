package storage

import (
	"os"
	"os/user"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/logger"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/utils"
)

// Snapshot is a detached copy of a model's aggregate
type Snapshot struct {
	OwnerLabel string
	Entries    []models.ActivityEntry
	CreatedAt  string
	ModifiedAt string
	ModifiedBy string
	StoreURI   string
}

// Options configures a new model. Zero fields take their defaults.
type Options struct {
	OwnerLabel string
	Entries    []models.ActivityEntry
	CreatedAt  string
	ModifiedAt string
	ModifiedBy string
	StoreURI   string

	Timestamps  *utils.Timestamps
	CurrentUser func() string
	Logger      *log.Logger
}

// State holds the in-memory aggregate shared by every backend.
type State struct {
	ts          *utils.Timestamps
	currentUser func() string
	logger      *log.Logger

	ownerLabel string
	entries    []models.ActivityEntry
	createdAt  string
	modifiedAt string
	modifiedBy string
	storeURI   string
}

// NewState applies defaults and validates opts
func NewState(opts Options) (*State, error) {
	s := &State{
		ts:          opts.Timestamps,
		currentUser: opts.CurrentUser,
		logger:      logger.OrDiscard(opts.Logger),
		ownerLabel:  opts.OwnerLabel,
	}
	if s.ts == nil {
		s.ts = utils.Default()
	}
	if s.currentUser == nil {
		s.currentUser = CurrentUser
	}

	for i, e := range opts.Entries {
		if e.IsZero() {
			return nil, errors.InvalidArgument("entry %d is not an activity entry", i)
		}
	}
	s.entries = append([]models.ActivityEntry{}, opts.Entries...)

	var err error
	if s.createdAt, err = s.ts.ValidateStart(opts.CreatedAt); err != nil {
		return nil, err
	}
	if s.modifiedAt, err = s.ts.ValidateStart(opts.ModifiedAt); err != nil {
		return nil, err
	}
	s.modifiedBy = opts.ModifiedBy
	if s.modifiedBy == "" {
		s.modifiedBy = s.currentUser()
	}
	if s.storeURI, err = ValidateURI(opts.StoreURI); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) OwnerLabel() string { return s.ownerLabel }
func (s *State) CreatedAt() string  { return s.createdAt }
func (s *State) ModifiedAt() string { return s.modifiedAt }
func (s *State) ModifiedBy() string { return s.modifiedBy }
func (s *State) StoreURI() string   { return s.storeURI }
func (s *State) Len() int           { return len(s.entries) }

// Logger returns the sink the model logs to
func (s *State) Logger() *log.Logger { return s.logger }

// Timestamps returns the timestamp rules the model defaults with
func (s *State) Timestamps() *utils.Timestamps { return s.ts }

// SetOwnerLabel renames the owner and marks the model modified
func (s *State) SetOwnerLabel(label string) {
	s.ownerLabel = label
	s.touch()
}

// Entries returns the entries in insertion order
func (s *State) Entries() []models.ActivityEntry {
	return append([]models.ActivityEntry(nil), s.entries...)
}

// Append adds entry at the end of the log and returns it
func (s *State) Append(entry models.ActivityEntry) (models.ActivityEntry, error) {
	if entry.IsZero() {
		return models.ActivityEntry{}, errors.InvalidArgument("cannot append a zero entry")
	}
	if entry.IsNegative() {
		s.logger.Warn("entry stops before it starts", "activity", entry.Activity(), "start", entry.Start(), "stop", entry.Stop())
	}
	s.entries = append(s.entries, entry)
	s.touch()
	s.logger.Debug("entry appended", "id", entry.ID(), "count", len(s.entries))
	return entry, nil
}

// Snapshot copies the aggregate
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		OwnerLabel: s.ownerLabel,
		Entries:    s.Entries(),
		CreatedAt:  s.createdAt,
		ModifiedAt: s.modifiedAt,
		ModifiedBy: s.modifiedBy,
		StoreURI:   s.storeURI,
	}
}

// Replace swaps in snap wholesale. The store uri of the receiver is kept.
func (s *State) Replace(snap Snapshot) error {
	for i, e := range snap.Entries {
		if e.IsZero() {
			return errors.InvalidArgument("entry %d is not an activity entry", i)
		}
	}
	s.ownerLabel = snap.OwnerLabel
	s.entries = append([]models.ActivityEntry{}, snap.Entries...)
	s.createdAt = snap.CreatedAt
	s.modifiedAt = snap.ModifiedAt
	s.modifiedBy = snap.ModifiedBy
	return nil
}

func (s *State) touch() {
	s.modifiedAt = s.ts.NowText()
	s.modifiedBy = s.currentUser()
}

// CurrentUser returns the login name of the process owner
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if name := os.Getenv(key); name != "" {
			return name
		}
	}
	return "unknown"
}
