package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// InstanceID names the running process in logs. BITETRACK_INSTANCE_ID wins
// over the container hostname.
func InstanceID() string {
	if id := os.Getenv("BITETRACK_INSTANCE_ID"); id != "" {
		return id
	}
	return Get("HOSTNAME", "local")
}
