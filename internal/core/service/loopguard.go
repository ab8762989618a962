package service

import "time"

// loopGuard is a sliding-window event counter. The remote event stream has
// been observed to re-fire in bursts when a resolution routine writes the
// resolved role back into identity metadata; events above the threshold
// inside one window are dropped until the window resets.
type loopGuard struct {
	window      time.Duration
	max         int
	count       int
	windowStart time.Time
}

func newLoopGuard(window time.Duration, max int) *loopGuard {
	return &loopGuard{window: window, max: max}
}

// allow records one event and reports whether it is within the window
// budget. Only called from the synchronizer goroutine.
func (g *loopGuard) allow(now time.Time) bool {
	if now.Sub(g.windowStart) > g.window {
		g.windowStart = now
		g.count = 0
	}
	g.count++
	return g.count <= g.max
}
