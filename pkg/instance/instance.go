package instance

import (
	"os"
	"strings"
)

// EnvWorkerID overrides the identifier reported by GetID.
const EnvWorkerID = "GALLERY_WORKER_ID"

const fallbackID = "worker-0"

// GetID returns the worker instance identifier. It prefers GALLERY_WORKER_ID,
// then the hostname, then a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(EnvWorkerID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
