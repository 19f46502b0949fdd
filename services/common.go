package services

import "os"

// GetEnv reads an environment variable, falling back when it is unset or empty.
func GetEnv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}
