package render

import (
	"fmt"
	"sync"

	"github.com/phinze/switchdeck/internal/device"
)

// Strategy produces the content of one surface.
//
// Start and Stop are idempotent. Draw forces one synchronous redraw whatever
// the timer or subscription state. IsActive only queries. Start, Stop and
// Draw return an error wrapping device.ErrInvalidState until the strategy is
// attached to a surface through a Controller.
//
// Stop must not be called from inside the strategy's own tick or
// notification; it waits for those to finish.
type Strategy interface {
	Start() error
	Stop() error
	Draw() error
	IsActive() bool

	// Close stops the strategy and detaches it from its surface for good.
	Close() error

	core() *lifecycle
}

// driver is implemented by every strategy variant. arm and disarm are called
// with the lifecycle lock held; disarm must tolerate never having been armed.
type driver interface {
	arm(s *Surface, report func(error)) error
	disarm()
	armed() bool
	render(s *Surface) error
}

// lifecycle carries the state shared by all strategy variants: the surface
// back-reference and the suspended-by-coordinator flag. Whether the strategy
// is active comes from the driver's own timer or subscription.
type lifecycle struct {
	mu        sync.Mutex
	drv       driver
	surface   *Surface
	report    func(error)
	suspended bool
	closed    bool
}

func (l *lifecycle) core() *lifecycle {
	return l
}

func notAttached(op string) error {
	return fmt.Errorf("render: %s: strategy is not attached to a surface: %w", op, device.ErrInvalidState)
}

func (l *lifecycle) bind(s *Surface, report func(error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("render: attach: strategy was closed: %w", device.ErrInvalidState)
	}
	if l.surface != nil && l.surface != s {
		return fmt.Errorf("render: attach: strategy already drives %s: %w", l.surface.Target(), device.ErrInvalidState)
	}
	l.surface = s
	l.report = report
	return nil
}

// Start arms the strategy.
func (l *lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.surface == nil {
		return notAttached("start")
	}
	if l.drv.armed() {
		return nil
	}
	return l.drv.arm(l.surface, l.reporter())
}

// Stop disarms the strategy. An owner stop also cancels a pending resume.
func (l *lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.surface == nil {
		return notAttached("stop")
	}
	l.suspended = false
	l.drv.disarm()
	return nil
}

// Draw renders once, synchronously.
func (l *lifecycle) Draw() error {
	l.mu.Lock()
	s := l.surface
	l.mu.Unlock()

	if s == nil {
		return notAttached("draw")
	}
	return l.drv.render(s)
}

// IsActive reports whether the timer or subscription is live.
func (l *lifecycle) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drv.armed()
}

// Close disarms and detaches. Closing twice is a no-op.
func (l *lifecycle) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.drv.disarm()
	l.closed = true
	l.suspended = false
	l.surface = nil
	return nil
}

// suspend stops an active strategy on behalf of the activation coordinator.
// An inactive strategy is left alone so the next resume does not start
// something its owner stopped.
func (l *lifecycle) suspend() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.surface == nil || !l.drv.armed() {
		return
	}
	l.drv.disarm()
	l.suspended = true
}

// resume restarts a strategy that suspend stopped. The flag is cleared
// whether or not a restart happened.
func (l *lifecycle) resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wasSuspended := l.suspended
	l.suspended = false
	if !wasSuspended || l.surface == nil || l.drv.armed() {
		return nil
	}
	return l.drv.arm(l.surface, l.reporter())
}

// isSuspended reports the suspended-by-coordinator flag.
func (l *lifecycle) isSuspended() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended
}

// reporter returns the function asynchronous tick and notification failures
// go to. It is captured when arming so ticks never need the lifecycle lock,
// which Stop holds while it waits for them.
func (l *lifecycle) reporter() func(error) {
	report := l.report
	return func(err error) {
		if err != nil && report != nil {
			report(err)
		}
	}
}
