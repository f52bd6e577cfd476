// Package workdir lays out the local data directory used by the voice CLI
// and the server.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DatasetDir holds the stored recordings, keyed by dataset.Key.
	DatasetDir = "recordings"
	// ManifestFile is the SQLite index of stored recordings.
	ManifestFile = "manifest.db"
	// LogFile receives CLI logs while the TUI owns the terminal.
	LogFile = "voice.log"
)

// Root returns the default data root. The path is expanded at runtime to
// resolve to:
//
//	$HOME/Documents/VoiceCollector
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "VoiceCollector"), nil
}

// Dir is a data root.
type Dir string

// Resolve returns dir, or the default Root when dir is empty.
func Resolve(dir string) (Dir, error) {
	if dir != "" {
		return Dir(dir), nil
	}

	root, err := Root()
	if err != nil {
		return "", err
	}

	return Dir(root), nil
}

func (d Dir) Dataset() string {
	return filepath.Join(string(d), DatasetDir)
}

func (d Dir) Manifest() string {
	return filepath.Join(string(d), ManifestFile)
}

func (d Dir) Log() string {
	return filepath.Join(string(d), LogFile)
}

// Prep ensures that the data root and dataset directory exist.
func (d Dir) Prep() error {
	if err := os.MkdirAll(d.Dataset(), 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", d, err)
	}

	return nil
}
