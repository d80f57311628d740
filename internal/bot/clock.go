package bot

import (
	"context"
	"time"
)

// Clock abstracts time so tests can drive iterations without real delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done; it reports whether the
	// full duration elapsed.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
