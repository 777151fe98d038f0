package clock

import (
	"sync"
	"time"
)

// Mock is a Clock whose time only moves when Advance is called. Timer
// callbacks fire synchronously inside Advance, in deadline order; ticker
// ticks are delivered non-blocking to their channels.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*mockTimer
	tickers []*mockTicker
}

func NewMock() *Mock {
	return &Mock{now: time.Unix(1_700_000_000, 0)}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTimer{clock: m, deadline: m.now.Add(d), f: f, active: true}
	m.timers = append(m.timers, t)
	return t
}

func (m *Mock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Buffered so an Advance spanning several intervals keeps every tick.
	t := &mockTicker{clock: m, interval: d, next: m.now.Add(d), ch: make(chan time.Time, 16), active: true}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer and ticker that
// comes due along the way. A callback may itself schedule new timers; those
// also fire if they land inside the window.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		var dueTimer *mockTimer
		var dueTicker *mockTicker
		earliest := target.Add(time.Nanosecond)

		for _, t := range m.timers {
			if t.active && !t.deadline.After(target) && t.deadline.Before(earliest) {
				dueTimer, dueTicker, earliest = t, nil, t.deadline
			}
		}
		for _, t := range m.tickers {
			if t.active && !t.next.After(target) && t.next.Before(earliest) {
				dueTimer, dueTicker, earliest = nil, t, t.next
			}
		}
		if dueTimer == nil && dueTicker == nil {
			break
		}
		m.now = earliest

		if dueTicker != nil {
			dueTicker.next = dueTicker.next.Add(dueTicker.interval)
			select {
			case dueTicker.ch <- m.now:
			default:
			}
			continue
		}

		dueTimer.active = false
		f := dueTimer.f
		m.mu.Unlock()
		f()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

type mockTimer struct {
	clock    *Mock
	deadline time.Time
	f        func()
	active   bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *mockTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.deadline = t.clock.now.Add(d)
	t.active = true
	return was
}

type mockTicker struct {
	clock    *Mock
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	active   bool
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.active = false
}
