package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fintrack/internal/ledger"
)

// loadStore reads the snapshot file. A missing file yields an empty ledger.
func loadStore(path string) (*ledger.Store, ledger.ParseReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.New(), ledger.ParseReport{}, nil
	}
	if err != nil {
		return nil, ledger.ParseReport{}, fmt.Errorf("read %s: %w", path, err)
	}
	snap, report, err := ledger.ParseSnapshot(data)
	if err != nil {
		return nil, report, fmt.Errorf("parse %s: %w", path, err)
	}
	return ledger.FromSnapshot(snap), report, nil
}

// saveStore writes the store as indented JSON, replacing the file atomically.
func saveStore(path string, store *ledger.Store) error {
	data, err := encodeIndented(store)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".fintrack-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func encodeIndented(store *ledger.Store) ([]byte, error) {
	raw, err := ledger.EncodeSnapshot(store.Snapshot())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent snapshot: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
