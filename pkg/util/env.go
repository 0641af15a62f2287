package util

import "os"

// GetEnv returns the value of the environment variable or defaultValue if unset.
func GetEnv(name, defaultValue string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return defaultValue
}
