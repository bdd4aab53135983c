// Package agent runs the receiver side: it consumes delivered profile
// commands, drives the applier against the audio controller, and syncs the
// applied profile back into the room store. The delivery adapter owns the
// actual subscription; the applier never knows where a command came from.
package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonebuddy/internal/applier"
	"phonebuddy/internal/audio"
	"phonebuddy/internal/config"
	"phonebuddy/internal/model"
	"phonebuddy/internal/queue"
	appredis "phonebuddy/internal/redis"
	"phonebuddy/internal/store"
)

const (
	readBatchSize = 10
	readBlockTime = 5 * time.Second
)

// Run wires and blocks the receiver agent until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DeviceID == "" || cfg.PairingCode == "" {
		return fmt.Errorf("DEVICE_ID and PAIRING_CODE are required for the agent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		return err
	}

	roomStore, err := store.NewRoomStore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsJSON())
	if err != nil {
		return fmt.Errorf("failed to create room store: %w", err)
	}
	defer roomStore.Close()

	// No OS audio binding is wired here; the in-process controller stands in
	// until one is. Swap in a platform Controller to drive real hardware.
	ctrl := audio.NewMemoryController()

	hub := applier.NewSignalHub()
	svc := applier.NewService(ctrl, ctrl, hub)
	svc.SetStoreSync(roomStore, cfg.PairingCode, cfg.DeviceID)
	svc.Start(ctx)
	defer svc.Stop()

	go logResults(ctx, svc)
	go logSignals(ctx, hub.Subscribe())

	consumer := queue.NewConsumer(redisClient.Client)
	loop := &commandLoop{
		consumer:     consumer,
		service:      svc,
		ctx:          ctx,
		stream:       queue.CommandStream(cfg.DeviceID),
		consumerName: "agent-" + cfg.DeviceID,
	}

	log.Printf("[Agent] Running: room=%s device=%s", cfg.PairingCode, cfg.DeviceID)
	return loop.run()
}

type commandLoop struct {
	consumer     queue.Consumer
	service      *applier.Service
	ctx          context.Context
	stream       string
	consumerName string
}

func (l *commandLoop) run() error {
	if err := l.consumer.EnsureGroup(l.ctx, l.stream, queue.ConsumerGroupApplier); err != nil {
		return err
	}

	// Commands that were in-flight when a previous run crashed.
	l.drainPending()

	for {
		select {
		case <-l.ctx.Done():
			return nil
		default:
		}

		messages, err := l.consumer.Read(l.ctx, l.stream, queue.ConsumerGroupApplier, l.consumerName, readBatchSize, readBlockTime)
		if err != nil {
			if l.ctx.Err() != nil {
				return nil
			}
			log.Printf("[Agent] Read error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		l.handleMessages(messages)
	}
}

func (l *commandLoop) drainPending() {
	for {
		messages, err := l.consumer.ReadPending(l.ctx, l.stream, queue.ConsumerGroupApplier, l.consumerName, readBatchSize)
		if err != nil || len(messages) == 0 {
			return
		}
		log.Printf("[Agent] Replaying %d pending commands", len(messages))
		l.handleMessages(messages)
	}
}

// handleMessages routes each command and always acks: the applier's
// idempotence makes duplicate deliveries harmless, so nothing is retried
// through the stream.
func (l *commandLoop) handleMessages(messages []queue.Message) {
	for _, msg := range messages {
		ev, err := queue.ParseCommandEvent(msg.Values)
		if err != nil {
			log.Printf("[Agent] Dropping malformed command %s: %v", msg.ID, err)
		} else {
			l.route(ev)
		}

		if err := l.consumer.Ack(l.ctx, l.stream, queue.ConsumerGroupApplier, msg.ID); err != nil {
			log.Printf("[Agent] ACK error msgID=%s: %v", msg.ID, err)
		}
	}
}

func (l *commandLoop) route(ev queue.CommandEvent) {
	switch ev.Action {
	case queue.ActionStartService:
		// Ensure the applier is running; no profile change.
		l.service.Start(l.ctx)
	case queue.ActionStopService:
		l.service.Stop()
	case queue.ActionSetAudioProfile:
		cmd := model.ProfileCommand{
			Profile:    ev.Profile,
			Origin:     ev.Origin,
			ReceivedAt: time.Now(),
		}
		if err := l.service.Submit(cmd); err != nil {
			log.Printf("[Agent] Submit failed: %v", err)
		}
	default:
		log.Printf("[Agent] Unknown action: %s", ev.Action)
	}
}

func logResults(ctx context.Context, svc *applier.Service) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-svc.Results():
			if res.Err != nil {
				log.Printf("[Agent] Command %s: state=%s err=%v", res.Command.Profile, res.State, res.Err)
			} else {
				log.Printf("[Agent] Command %s: state=%s changed=%v", res.Command.Profile, res.State, res.Changed)
			}
		}
	}
}

func logSignals(ctx context.Context, signals <-chan applier.RecoverySignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			// A foreground UI would prompt the user here; the headless agent
			// can only surface it.
			log.Printf("[Agent] Permission required: %s", sig.RequiredPermission)
		}
	}
}
