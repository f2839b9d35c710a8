package pipeline

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to pin lastSyncAt in the state file.
var timeNow = time.Now
