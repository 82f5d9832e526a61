package session

import (
	"fmt"
	"time"
)

// sessionNameTimeLayout matches the original tool's session-name date
// stamp: sortable, filesystem-safe, second resolution.
const sessionNameTimeLayout = "2006-01-02_15-04-05"

// DefaultName builds the default session directory name from a capture
// start time and a run counter, e.g. "2026-07-30_14-05-02_run001".
func DefaultName(now time.Time, runID uint32) string {
	return fmt.Sprintf("%s_run%03d", now.Format(sessionNameTimeLayout), runID)
}
