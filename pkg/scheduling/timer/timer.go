package timer

import (
	"sync"
	"time"
)

// Handle cancels a pending or repeating timer. Stop is idempotent and never
// runs the callback itself.
type Handle interface {
	Stop()
}

// Facility schedules callbacks after a delay or at a fixed period.
type Facility interface {
	// AfterFunc runs f once after d. With a zero d, f may run before
	// AfterFunc returns.
	AfterFunc(d time.Duration, f func()) Handle

	// Every runs f every d, the first time d after the call. f never runs
	// before Every returns.
	Every(d time.Duration, f func()) Handle
}

type systemFacility struct{}

var system Facility = systemFacility{}

// System returns the facility backed by the runtime's timers.
func System() Facility { return system }

type onceHandle struct {
	t *time.Timer
}

func (h onceHandle) Stop() { h.t.Stop() }

func (systemFacility) AfterFunc(d time.Duration, f func()) Handle {
	if d < 0 {
		d = 0
	}
	return onceHandle{t: time.AfterFunc(d, f)}
}

type repeatingHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *repeatingHandle) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

func (systemFacility) Every(d time.Duration, f func()) Handle {
	h := &repeatingHandle{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-h.done:
				return
			case <-h.ticker.C:
				// A tick that raced with Stop is dropped.
				select {
				case <-h.done:
					return
				default:
				}
				go f()
			}
		}
	}()
	return h
}
