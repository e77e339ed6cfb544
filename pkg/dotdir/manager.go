// Package dotdir resolves the .vecgate/ directory that holds config.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the vecgate directory.
	dirName = ".vecgate"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .vecgate/ directory.
// Order of precedence is as follows:
//  1. Provided override, created if missing
//  2. Local ./.vecgate/ dir
//  3. Home ~/.vecgate/ dir
//
// When none of these apply Target returns an empty string.
func (m *Manager) Target(overrideDir string) (string, error) {
	switch {
	case overrideDir != "":
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating vecgate directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, dirName), nil
	}

	home, err := homeDir()
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(home); err == nil && info.IsDir() {
		return home, nil
	}

	return "", nil
}

// EnsureHome creates ~/.vecgate/ if needed and returns its path.
func (m *Manager) EnsureHome() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", fmt.Errorf("creating vecgate directory %s: %w", home, err)
	}
	return home, nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// localDirExists checks whether a .vecgate/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
