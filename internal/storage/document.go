package storage

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/utils"
)

// Top-level keys of the persisted document
const (
	KeyOwner      = "activityname"
	KeyActivities = "activities"
	KeyCreated    = "created_date"
	KeyModified   = "last_modified_date"
	KeyModifiedBy = "modified_by"
	KeyStoreURI   = "activity_store_uri"
)

var requiredKeys = []string{KeyOwner, KeyActivities, KeyCreated, KeyModified, KeyModifiedBy, KeyStoreURI}

type document struct {
	ActivityName     string                 `json:"activityname"`
	Activities       []models.ActivityEntry `json:"activities"`
	CreatedDate      string                 `json:"created_date"`
	LastModifiedDate string                 `json:"last_modified_date"`
	ModifiedBy       string                 `json:"modified_by"`
	ActivityStoreURI string                 `json:"activity_store_uri"`
}

// EncodeDocument renders snap as an indented JSON document
func EncodeDocument(snap Snapshot) ([]byte, error) {
	doc := document{
		ActivityName:     snap.OwnerLabel,
		Activities:       snap.Entries,
		CreatedDate:      snap.CreatedAt,
		LastModifiedDate: snap.ModifiedAt,
		ModifiedBy:       snap.ModifiedBy,
		ActivityStoreURI: snap.StoreURI,
	}
	if doc.Activities == nil {
		doc.Activities = []models.ActivityEntry{}
	}
	return sonic.MarshalIndent(doc, "", "  ")
}

// DecodeDocument parses data strictly. Every top-level key is required and
// every entry is re-validated; any violation is ErrMalformedDocument.
func DecodeDocument(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, errors.MalformedDocument("not a JSON object: %v", err)
	}
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return Snapshot{}, errors.MalformedDocument("missing key %q", key)
		}
	}

	var snap Snapshot
	fields := map[string]*string{
		KeyOwner:      &snap.OwnerLabel,
		KeyCreated:    &snap.CreatedAt,
		KeyModified:   &snap.ModifiedAt,
		KeyModifiedBy: &snap.ModifiedBy,
		KeyStoreURI:   &snap.StoreURI,
	}
	for key, dst := range fields {
		if err := sonic.Unmarshal(raw[key], dst); err != nil {
			return Snapshot{}, errors.MalformedDocument("key %q must be a string", key)
		}
	}
	for _, key := range []string{KeyCreated, KeyModified} {
		if err := utils.ValidateText(*fields[key]); err != nil {
			return Snapshot{}, errors.MalformedDocument("key %q: %v", key, err)
		}
	}

	var items []json.RawMessage
	if err := sonic.Unmarshal(raw[KeyActivities], &items); err != nil {
		return Snapshot{}, errors.MalformedDocument("key %q must be an array", KeyActivities)
	}
	snap.Entries = make([]models.ActivityEntry, 0, len(items))
	for i, item := range items {
		var entry models.ActivityEntry
		if err := entry.UnmarshalJSON(item); err != nil {
			return Snapshot{}, errors.MalformedDocument("activity %d: %v", i, err)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	return snap, nil
}

type looseEntry struct {
	ID       string `json:"id"`
	Start    string `json:"start"`
	Stop     string `json:"stop"`
	Activity string `json:"activity"`
	Notes    string `json:"notes"`
}

// DecodeInputs reads only the activities array, without validating the
// entries, so that a damaged document can still be inspected.
func DecodeInputs(data []byte) ([]models.EntryInput, error) {
	var doc struct {
		Activities []looseEntry `json:"activities"`
	}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, errors.MalformedDocument("cannot read activities: %v", err)
	}
	inputs := make([]models.EntryInput, 0, len(doc.Activities))
	for _, e := range doc.Activities {
		inputs = append(inputs, models.EntryInput{
			ID:       e.ID,
			Start:    e.Start,
			Stop:     e.Stop,
			Activity: e.Activity,
			Notes:    e.Notes,
		})
	}
	return inputs, nil
}
