package snapshot

import (
	"fmt"
	"strings"
)

// latestObjectName is the object name of the most recent snapshot for a save.
const latestObjectName = "latest.json.gz"

// ObjectPath returns the deterministic storage path for a save's current
// snapshot: <prefix>/<spaceID>/<saveID>/latest.json.gz. An empty prefix
// yields a path rooted at the space ID.
func ObjectPath(prefix, spaceID, saveID string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s/%s", spaceID, saveID, latestObjectName)
	}

	return fmt.Sprintf("%s/%s/%s/%s", prefix, spaceID, saveID, latestObjectName)
}
