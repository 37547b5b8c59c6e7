package env

import (
	"os"
	"strings"
)

// Prefix namespaces every setting the binaries read.
const Prefix = "AUDITMAGIC_"

// Get returns the prefixed variable (AUDITMAGIC_<key>), then the bare key,
// then fallback. Blank values count as unset.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
