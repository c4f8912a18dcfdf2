package domain

import "time"

// Clock is a monotonic source of wall-clock timestamps, injectable so
// engine tests can control ordering deterministically.
type Clock interface {
	Now() time.Time
}
