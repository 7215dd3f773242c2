package hal

import (
	"errors"
	"fmt"
	"sync"
)

var ErrDeviceLost = errors.New("device lost")

// DeviceLoss latches the first device-lost notification. Backends report
// loss from driver callbacks, which may run on any thread.
type DeviceLoss struct {
	mu      sync.Mutex
	lost    bool
	reason  string
	message string
}

// Lose records the loss and reports whether this was the first report.
func (l *DeviceLoss) Lose(reason, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost {
		return false
	}
	l.lost, l.reason, l.message = true, reason, message
	return true
}

func (l *DeviceLoss) Lost() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost
}

// Err is nil while the device is alive. Afterwards it wraps ErrDeviceLost
// with op, the reason and the driver message.
func (l *DeviceLoss) Err(op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.lost {
		return nil
	}
	if l.message == "" {
		return fmt.Errorf("%s: %w (%s)", op, ErrDeviceLost, l.reason)
	}
	return fmt.Errorf("%s: %w (%s): %s", op, ErrDeviceLost, l.reason, l.message)
}
