package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName      = ".travel-planner"
	SQLiteCacheFile = "cache.db"
)

// GetAppDir returns ~/.travel-planner, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// DefaultSQLitePath returns ~/.travel-planner/cache.db
func DefaultSQLitePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, SQLiteCacheFile), nil
}
