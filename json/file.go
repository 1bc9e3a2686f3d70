// Package json persists chats and slides as versioned JSON documents.
//
// Message and infographic encoders are exported so the relational store
// can keep the same wire format in its columns.
package json

import (
	"fmt"
	"os"
	"path/filepath"
)

const version = 1

// writeFile replaces path atomically, creating parent directories as needed.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func checkVersion(v int) error {
	if v != version {
		return fmt.Errorf("unsupported envelope version: %d", v)
	}
	return nil
}
