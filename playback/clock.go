package playback

import "time"

// Clock is the time source of the state machine's timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// deadline is a one-shot timer whose callback runs on the control loop.
// Re-arming or disarming invalidates a callback that already fired but has
// not run yet.
type deadline struct {
	timer Timer
	token uint64
}

func (m *Machine) arm(d *deadline, after time.Duration, fn func()) {
	m.disarm(d)

	m.tokens++
	token := m.tokens
	d.token = token

	d.timer = m.clock.AfterFunc(after, func() {
		m.post(func() {
			if d.token != token {
				return
			}

			d.token = 0
			d.timer = nil
			fn()
		})
	})
}

func (m *Machine) disarm(d *deadline) {
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = nil
	d.token = 0
}
