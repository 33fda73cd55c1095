package format

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer calls fn once, delay after the last Trigger (trailing edge).
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer clockwork.Timer
}

func NewDebouncer(clock clockwork.Clock, delay time.Duration, fn func()) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, d.fn)
}

// Stop drops a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
