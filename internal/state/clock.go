package state

import "time"

// Clock supplies the current time. Injected so the dedup window and
// order cache can be tested deterministically.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock
}
