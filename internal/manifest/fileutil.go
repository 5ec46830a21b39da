package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic durably replaces the file at path. The data lands in a temp
// file in the target directory first and is renamed into place, so readers
// see either the old document or the new one, never a partial write.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	switch {
	case writeErr != nil:
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), writeErr)
	case closeErr != nil:
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), closeErr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s -> %s: %w", tmp.Name(), path, err)
	}
	return nil
}

// WriteJSON atomically writes v as indented JSON, newline-terminated so the
// files diff cleanly.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return WriteAtomic(path, append(data, '\n'))
}

// ReadJSON reads the JSON document at path into v.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
