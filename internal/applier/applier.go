// Package applier turns delivered profile commands into idempotent,
// permission-aware ringer changes. One Applying at a time: all mutations to
// the system audio state are serialized through a single worker goroutine,
// and concurrent submitters queue.
package applier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"phonebuddy/internal/audio"
	"phonebuddy/internal/model"
)

// State is the command lifecycle position. Terminal states return to Idle;
// no state lingers between commands.
type State int

const (
	StateIdle State = iota
	StateApplying
	StateApplied
	StatePermissionBlocked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateApplying:
		return "Applying"
	case StateApplied:
		return "Applied"
	case StatePermissionBlocked:
		return "PermissionBlocked"
	case StateFailed:
		return "Failed"
	default:
		return "Idle"
	}
}

// FeedbackPulse is the haptic confirmation for a remote-initiated change.
// It is the only user feedback channel when the app is backgrounded and no
// visible alert was shown.
const FeedbackPulse = 150 * time.Millisecond

const commandQueueSize = 32

// Result reports the outcome of one command. Changed is true only when the
// system state was actually mutated; duplicate deliveries of an
// already-applied profile complete with Changed=false and no feedback.
type Result struct {
	Command model.ProfileCommand
	State   State
	Mode    model.RingerMode
	Changed bool
	Err     error
}

// ProfileWriter syncs the applied profile back into the room store with the
// receiver's own ID as provenance, so the dispatcher suppresses the echo.
type ProfileWriter interface {
	UpdateDeviceProfile(ctx context.Context, pairingCode, deviceID, profile, updatedBy string) error
}

// Service is the profile command state machine.
type Service struct {
	ctrl audio.Controller
	gate audio.PolicyGate
	hub  *SignalHub

	// Optional store sync, set when the agent owns a device document.
	writer      ProfileWriter
	pairingCode string
	deviceID    string

	commands chan model.ProfileCommand
	results  chan Result

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewService(ctrl audio.Controller, gate audio.PolicyGate, hub *SignalHub) *Service {
	return &Service{
		ctrl:     ctrl,
		gate:     gate,
		hub:      hub,
		commands: make(chan model.ProfileCommand, commandQueueSize),
		results:  make(chan Result, commandQueueSize),
	}
}

// SetStoreSync enables the post-apply write-back of the receiver's profile.
func (s *Service) SetStoreSync(writer ProfileWriter, pairingCode, deviceID string) {
	s.writer = writer
	s.pairingCode = pairingCode
	s.deviceID = deviceID
}

// Start launches the single worker goroutine. Idempotent: a START_SERVICE
// command may arrive any number of times.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(runCtx)
	log.Printf("[Applier] Started")
}

// Stop tears the worker down and waits for the in-flight command, if any.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	log.Printf("[Applier] Stopped")
}

// Submit queues a command for application. Commands submitted while another
// is Applying are processed in order after it completes.
func (s *Service) Submit(cmd model.ProfileCommand) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("command queue full, dropping profile=%q", cmd.Profile)
	}
}

// Results exposes per-command outcomes for the agent log and tests.
func (s *Service) Results() <-chan Result {
	return s.results
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			res := s.apply(ctx, cmd)
			select {
			case s.results <- res:
			default:
			}
		}
	}
}

// apply executes one command synchronously. Commands have no timeout: the
// permission check and the ringer call complete immediately or are rejected
// immediately; there is no in-flight cancelable state.
func (s *Service) apply(ctx context.Context, cmd model.ProfileCommand) Result {
	log.Printf("[Applier] Applying: profile=%q origin=%s", cmd.Profile, cmd.Origin)

	mode, known := model.RingerModeForProfile(cmd.Profile)
	if !known {
		log.Printf("[Applier] Unknown profile %q, defaulting to %s", cmd.Profile, mode)
	}

	if !s.gate.PolicyAccessGranted() {
		s.hub.Emit(RecoverySignal{RequiredPermission: audio.PermissionNotificationPolicy})
		return Result{Command: cmd, State: StatePermissionBlocked, Mode: mode}
	}

	// An active do-not-disturb filter can swallow the feedback that confirms
	// an audible mode took effect. Clearing it is best-effort.
	if mode != model.RingerSilent {
		if err := s.ctrl.ClearInterruptionFilter(); err != nil {
			log.Printf("[Applier] Could not clear interruption filter: %v", err)
		}
	}

	current, err := s.ctrl.RingerMode()
	if err != nil {
		return Result{Command: cmd, State: StateFailed, Mode: mode, Err: fmt.Errorf("read ringer mode: %w", err)}
	}

	if current == mode {
		// Already applied: duplicate deliveries must be harmless, so no
		// mutation and no feedback pulse.
		log.Printf("[Applier] Ringer already %s, nothing to do", mode)
		return Result{Command: cmd, State: StateApplied, Mode: mode}
	}

	if err := s.ctrl.SetRingerMode(mode); err != nil {
		if errors.Is(err, audio.ErrPermissionDenied) {
			// The gate passed but the call was denied: a revocation raced
			// the check. Surface the same recovery path, keep running.
			s.hub.Emit(RecoverySignal{RequiredPermission: audio.PermissionModifyAudio, Err: err})
			return Result{Command: cmd, State: StateFailed, Mode: mode, Err: err}
		}
		return Result{Command: cmd, State: StateFailed, Mode: mode, Err: fmt.Errorf("set ringer mode: %w", err)}
	}

	if err := s.ctrl.Vibrate(FeedbackPulse); err != nil {
		log.Printf("[Applier] Feedback pulse failed: %v", err)
	}

	s.syncProfile(ctx, cmd)

	log.Printf("[Applier] Applied: %s -> %s", current, mode)
	return Result{Command: cmd, State: StateApplied, Mode: mode, Changed: true}
}

// syncProfile writes the observed state back to the store so both devices
// converge. updatedBy is our own device ID, which is exactly the echo the
// evaluator suppresses.
func (s *Service) syncProfile(ctx context.Context, cmd model.ProfileCommand) {
	if s.writer == nil {
		return
	}
	if err := s.writer.UpdateDeviceProfile(ctx, s.pairingCode, s.deviceID, cmd.Profile, s.deviceID); err != nil {
		log.Printf("[Applier] Store sync failed: %v", err)
	}
}
