// Package clock provides the production domain.Clock implementation.
package clock

import "time"

// Real is the production domain.Clock: a thin wrapper over time.Now so the
// engine never calls time.Now directly and tests can swap in a fake.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }
