package crow

import (
	"time"

	"github.com/crowgo/crow/timer"
)

// connIdleTimer arms a task-timer deadline whenever a connection is
// waiting for the next request, and disarms it once that request has been
// read in full (headers and body) — reusing the shared one-second-tick
// timer.Queue instead of a per-connection time.Timer, matching the
// original core's task_timer-driven idle handling.
type connIdleTimer struct {
	q       *timer.Queue
	timeout time.Duration
	onFire  func()
	handle  timer.Handle
	active  bool
}

func newConnIdleTimer(q *timer.Queue, timeout time.Duration, onFire func()) *connIdleTimer {
	return &connIdleTimer{q: q, timeout: timeout, onFire: onFire}
}

func (t *connIdleTimer) arm() {
	if t.active {
		return
	}
	t.handle = t.q.Schedule(t.timeout, t.onFire)
	t.active = true
}

func (t *connIdleTimer) disarm() {
	if !t.active {
		return
	}
	t.q.Cancel(t.handle)
	t.active = false
}

func (t *connIdleTimer) cancel() { t.disarm() }
