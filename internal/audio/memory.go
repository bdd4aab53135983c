package audio

import (
	"sync"
	"time"

	"phonebuddy/internal/model"
)

// MemoryController is an in-process Controller with permission and
// do-not-disturb simulation. The default agent wiring uses it when no OS
// binding is configured; tests use it to script permission races.
type MemoryController struct {
	mu sync.Mutex

	mode         model.RingerMode
	dndActive    bool
	policyAccess bool
	denyWrites   bool

	vibrations []time.Duration
	setCalls   int
}

func NewMemoryController() *MemoryController {
	return &MemoryController{mode: model.RingerNormal, policyAccess: true}
}

func (c *MemoryController) RingerMode() (model.RingerMode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode, nil
}

func (c *MemoryController) SetRingerMode(mode model.RingerMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setCalls++
	if c.denyWrites {
		return ErrPermissionDenied
	}
	c.mode = mode
	return nil
}

func (c *MemoryController) ClearInterruptionFilter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dndActive = false
	return nil
}

func (c *MemoryController) Vibrate(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vibrations = append(c.vibrations, d)
	return nil
}

func (c *MemoryController) PolicyAccessGranted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policyAccess
}

// Test and simulation hooks.

func (c *MemoryController) SetPolicyAccess(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policyAccess = granted
}

// DenyWrites makes subsequent SetRingerMode calls fail with
// ErrPermissionDenied while leaving the gate check untouched, simulating a
// revocation between check and call.
func (c *MemoryController) DenyWrites(deny bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.denyWrites = deny
}

func (c *MemoryController) ActivateDND() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dndActive = true
}

func (c *MemoryController) DNDActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dndActive
}

func (c *MemoryController) Vibrations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.vibrations))
	copy(out, c.vibrations)
	return out
}

func (c *MemoryController) SetCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setCalls
}
