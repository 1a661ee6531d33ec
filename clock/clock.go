// Package clock provides a Clock capability so that modification-time
// updates can be injected and advanced deterministically in tests, instead
// of every caller reaching for time.Now directly.
package clock

import "time"

// Clock knows the current time. Mounting code uses RealClock; tests use
// SimulatedClock to control what inodes observe as "now".
type Clock interface {
	Now() time.Time
}
