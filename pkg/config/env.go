package config

import (
	"os"
	"strconv"
)

// Getenv returns an environment variable or a default when unset/empty.
func Getenv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetenvInt returns an integer environment variable or a default when
// unset or unparseable.
func GetenvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
