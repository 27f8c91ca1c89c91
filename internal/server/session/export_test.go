package session

import "time"

// This file is only for test purpose and is only loaded by test framework.

// SetClock replaces the clock used by the manager.
func SetClock(m Manager, now func() time.Time) {
	m.(*manager).now = now
}
