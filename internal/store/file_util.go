package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// readJSON loads one state file (issue updates or app state). A zero-
// length file is reported as an error so callers fall back to an empty
// default the same way they do for corrupt contents.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("state file is empty")
	}
	return json.Unmarshal(data, v)
}

// writeJSONAtomic replaces a state file via temp-file-and-rename so a
// crash mid-write never leaves a half-written issue-update or app-state
// file behind; readers always see the previous complete version.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".triage-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), path)
}
