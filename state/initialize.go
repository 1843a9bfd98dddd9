package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values. Logger
// stays nil until configuration is loaded, main relies on that to decide
// where errors are reported.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}
