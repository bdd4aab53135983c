package applier

import (
	"log"
	"sync"
)

// RecoverySignal is the device-local broadcast emitted when a profile
// command cannot be applied for a permission reason. A foreground layer
// consumes it to prompt the user toward the system settings surface;
// nothing here blocks or retries.
type RecoverySignal struct {
	RequiredPermission string
	Err                error
}

// SignalHub fans recovery signals out to subscribers. Emission is one-shot
// and non-blocking: a subscriber that is not draining its channel misses
// signals rather than stalling the applier.
type SignalHub struct {
	mu   sync.Mutex
	subs []chan RecoverySignal
}

func NewSignalHub() *SignalHub {
	return &SignalHub{}
}

// Subscribe returns a channel that receives future recovery signals.
func (h *SignalHub) Subscribe() <-chan RecoverySignal {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan RecoverySignal, 8)
	h.subs = append(h.subs, ch)
	return ch
}

// Emit delivers a signal to every subscriber.
func (h *SignalHub) Emit(sig RecoverySignal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Printf("[Applier] Recovery signal: permission=%s err=%v", sig.RequiredPermission, sig.Err)
	for _, ch := range h.subs {
		select {
		case ch <- sig:
		default:
		}
	}
}
