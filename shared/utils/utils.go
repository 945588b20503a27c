package utils

import (
	"os"
	"path/filepath"
	"strconv"
)

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ResolveConfFilePath resolves a config file name against SERVICE_HOME/conf.
// Absolute paths are returned unchanged; without SERVICE_HOME the working
// directory is used as home.
func ResolveConfFilePath(configPath string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	homeDir := GetEnv("SERVICE_HOME", ".")
	return filepath.Join(homeDir, "conf", configPath)
}
