package agent

import (
	"strings"

	"github.com/google/uuid"
)

// generateRequestID returns a short id for correlating the log lines of
// one Run: "r_" followed by 8 hex characters.
func generateRequestID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "r_" + id[:8]
}
