package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/internal/storage/sqlite"
)

var sampleInputs = []models.EntryInput{
	{Start: "2024-01-02T09:00:00", Stop: "2024-01-02T10:00:00", Activity: "write"},
	{Start: "2024-01-02T10:00:00", Stop: "2024-01-02T10:45:00", Activity: "review"},
}

func fill(t *testing.T, m storage.Model, inputs []models.EntryInput) {
	t.Helper()
	for _, in := range inputs {
		e, err := models.NewActivityEntry(in)
		if err != nil {
			t.Fatalf("NewActivityEntry failed: %v", err)
		}
		if _, err := m.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := m.Save(""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func openSQLite(t *testing.T, path string) storage.Model {
	t.Helper()
	store, err := sqlite.NewStore(storage.Options{StoreURI: path, CurrentUser: func() string { return "tester" }})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func openJSON(t *testing.T, path string) storage.Model {
	t.Helper()
	m, err := storage.NewFileModel(storage.Options{StoreURI: path, CurrentUser: func() string { return "tester" }})
	if err != nil {
		t.Fatalf("failed to create model: %v", err)
	}
	return m
}

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := openSQLite(t, dbPath)
	fill(t, store, sampleInputs)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return dbPath
}

func setupTestDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activities.json")
	fill(t, openJSON(t, path), sampleInputs)
	return path
}

// steppingClock advances one minute per call
func steppingClock() func() time.Time {
	current := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManager(dbPath)
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		t.Errorf("backup file was not created: %s", backupPath)
	}
	if filepath.Ext(backupPath) != ".db" {
		t.Errorf("backup suffix = %q, want .db", filepath.Ext(backupPath))
	}

	restored := openSQLite(t, backupPath)
	if err := restored.Load(""); err != nil {
		t.Fatalf("failed to load backup: %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("expected 2 entries in backup, got %d", restored.Len())
	}
}

func TestCreateBackupDocument(t *testing.T) {
	path := setupTestDocument(t)

	mgr := NewManager(path)
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if filepath.Ext(backupPath) != ".json" {
		t.Errorf("backup suffix = %q, want .json", filepath.Ext(backupPath))
	}

	restored := openJSON(t, backupPath)
	if err := restored.Load(""); err != nil {
		t.Fatalf("failed to load backup: %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("expected 2 entries in backup, got %d", restored.Len())
	}
}

func TestCreateBackupRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.json")
	if err := os.WriteFile(path, []byte(`{"activities": []}`), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(path).CreateBackup(); err == nil {
		t.Error("CreateBackup should refuse an invalid document")
	}
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManagerWith(dbPath, Options{Now: steppingClock()})

	numBackups := constants.MaxBackups + 5
	for i := 0; i < numBackups; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}

	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}

	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted correctly: backup %d is newer than backup %d", i, i-1)
		}
	}

	// The oldest five were removed
	oldest := backups[len(backups)-1].Timestamp
	want := time.Date(2024, 1, 2, 8, 6, 0, 0, time.UTC)
	if !oldest.Equal(want) {
		t.Errorf("oldest remaining backup = %v, want %v", oldest, want)
	}
}

func TestListBackups(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManagerWith(dbPath, Options{Now: steppingClock()})

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected 0 backups initially, got %d", len(backups))
	}

	numBackups := 3
	for i := 0; i < numBackups; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}

	// Files that do not look like backups are ignored
	os.WriteFile(filepath.Join(mgr.GetBackupDir(), "notes.txt"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(mgr.GetBackupDir(), constants.BackupFilePrefix+"garbage.db"), []byte("x"), 0600)

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}

	if len(backups) != numBackups {
		t.Errorf("expected %d backups, got %d", numBackups, len(backups))
	}

	for _, backup := range backups {
		if backup.Path == "" {
			t.Error("backup path is empty")
		}
		if backup.Size == 0 {
			t.Error("backup size is 0")
		}
		if backup.Timestamp.IsZero() {
			t.Error("backup timestamp is zero")
		}
	}
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManager(dbPath)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	store := openSQLite(t, dbPath)
	if err := store.Load(""); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	fill(t, store, []models.EntryInput{{Start: "2024-01-02T11:00:00", Activity: "extra"}})
	if store.Len() != 3 {
		t.Errorf("expected 3 entries before restore, got %d", store.Len())
	}
	store.Close()

	if _, err := mgr.RestoreBackup(backupPath); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}

	restored := openSQLite(t, dbPath)
	if err := restored.Load(""); err != nil {
		t.Fatalf("Load after restore failed: %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("expected 2 entries after restore, got %d", restored.Len())
	}
}

func TestRestoreBackupCreatesPreRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManagerWith(dbPath, Options{Now: steppingClock()})

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	initialCount := len(backups)

	safety, err := mgr.RestoreBackup(backupPath)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if safety == "" || safety == backupPath {
		t.Errorf("RestoreBackup safety backup = %q", safety)
	}

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}

	if len(backups) != initialCount+1 {
		t.Errorf("expected %d backups after restore, got %d", initialCount+1, len(backups))
	}
}

func TestVerifyBackup(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManager(dbPath)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if err := mgr.verifyBackup(backupPath); err != nil {
		t.Errorf("verifyBackup failed for valid backup: %v", err)
	}

	invalidPath := filepath.Join(mgr.GetBackupDir(), "invalid.db")
	if err := os.WriteFile(invalidPath, []byte("not a database"), 0600); err != nil {
		t.Fatalf("failed to create invalid file: %v", err)
	}

	if err := mgr.verifyBackup(invalidPath); err == nil {
		t.Error("verifyBackup should fail for invalid backup")
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManager(dbPath)

	paths := make(map[string]bool)
	for i := 0; i < 5; i++ {
		backupPath, err := mgr.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}

		filename := filepath.Base(backupPath)
		if paths[filename] {
			t.Errorf("duplicate backup filename: %s", filename)
		}
		paths[filename] = true
	}
}

func TestParseStamp(t *testing.T) {
	tests := []struct {
		stamp string
		want  time.Time
		ok    bool
	}{
		{"20240102-0930", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), true},
		{"20240102-093015", time.Date(2024, 1, 2, 9, 30, 15, 0, time.UTC), true},
		{"20240102-093015-7", time.Date(2024, 1, 2, 9, 30, 15, 0, time.UTC), true},
		{"garbage", time.Time{}, false},
		{"20240102", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.stamp, func(t *testing.T) {
			got, ok := parseStamp(tt.stamp)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("parseStamp(%q) = %v, %v; want %v, %v", tt.stamp, got, ok, tt.want, tt.ok)
			}
		})
	}
}
