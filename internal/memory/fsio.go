package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// readJSON decodes the file at path into v. Returns (false, nil) when the
// file does not exist and (false, err) when it exists but cannot be
// decoded; callers fall back to a template in both cases, logging only
// the second.
func readJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("memory: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("memory: decoding %s: %w", path, err)
	}
	return true, nil
}

// writeJSONAtomic replaces the file at path with the JSON encoding of v.
// The document is written to a temp file in the same directory, synced,
// and renamed over the target, so a crash mid-write leaves the previous
// document untouched and readers never see a partial one.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("memory: create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encoding %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("memory: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	// Any failure before the rename discards the temp file.
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("memory: writing %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("memory: syncing %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("memory: closing temp for %s: %w", path, err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("memory: replacing %s: %w", path, err)
	}
	return nil
}

// appendJSONLine appends one JSON Lines record to the file at path,
// creating parents as needed. A record is written whole or not at all.
func appendJSONLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("memory: create directory for %s: %w", path, err)
	}

	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memory: encoding record for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("memory: opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("memory: appending to %s: %w", path, err)
	}
	return nil
}
