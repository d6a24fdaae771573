package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/errors"
)

// ValidateURI normalizes a store location taken from untyped input such as
// decoded config. nil and "" select the default file; URLs pass through.
func ValidateURI(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return constants.DefaultStoreURI, nil
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return constants.DefaultStoreURI, nil
		}
		if strings.Contains(val, "://") {
			return val, nil
		}
		return filepath.Clean(ExpandHome(val)), nil
	default:
		return "", errors.InvalidArgument("store uri must be a string, got %T", v)
	}
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
