package storage

import "github.com/julianstephens/activitytracker/internal/models"

// Model is an ordered log of activity entries plus bookkeeping metadata.
// Implementations are not safe for concurrent use; callers serialize access.
type Model interface {
	// Metadata
	OwnerLabel() string
	SetOwnerLabel(string)
	CreatedAt() string
	ModifiedAt() string
	ModifiedBy() string
	StoreURI() string

	// Entries
	Entries() []models.ActivityEntry
	Len() int
	Append(models.ActivityEntry) (models.ActivityEntry, error)

	// Whole-aggregate transfer between backends
	Snapshot() Snapshot
	Replace(Snapshot) error

	// Persistence. An empty uri means StoreURI().
	Save(uri string) error
	Load(uri string) error
	Close() error
}
