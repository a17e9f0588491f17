package engine

import "time"

// Clock supplies the current time for due-date comparisons. Injected so
// lifecycle rules can be exercised deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
