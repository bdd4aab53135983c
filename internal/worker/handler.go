package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"phonebuddy/internal/model"
	"phonebuddy/internal/notify"
	"phonebuddy/internal/queue"
	"phonebuddy/internal/trigger"
)

// RoomReader fetches the full current device set of a room. Abstracts the
// store so workers don't depend on Firestore directly.
type RoomReader interface {
	Snapshot(ctx context.Context, pairingCode string) (model.RoomSnapshot, error)
}

// ProfileDispatcher sends one composed profile-change message.
type ProfileDispatcher interface {
	Dispatch(ctx context.Context, target model.DeviceState, payload model.ProfileChangePayload) (notify.Receipt, error)
}

// DeliveryRecorder appends to the dispatch audit trail. Can be nil if the
// audit log is not wired.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, rec model.DeliveryRecord) error
}

// Handler processes change events from the queue: evaluate, dispatch,
// record. Every failure on this path degrades to "no notification sent";
// the handler never owns a retry.
type Handler struct {
	rooms      RoomReader
	dispatcher ProfileDispatcher
	recorder   DeliveryRecorder
	now        func() time.Time
}

func NewHandler(rooms RoomReader, dispatcher ProfileDispatcher, recorder DeliveryRecorder) *Handler {
	return &Handler{
		rooms:      rooms,
		dispatcher: dispatcher,
		recorder:   recorder,
		now:        time.Now,
	}
}

// HandleMessage parses and processes one stream message.
func (h *Handler) HandleMessage(ctx context.Context, msg queue.Message) error {
	ev, err := queue.ParseChangeEvent(msg.Values)
	if err != nil {
		// Malformed events are dropped, not retried.
		log.Printf("[Worker] Dropping malformed message %s: %v", msg.ID, err)
		return nil
	}
	return h.HandleEvent(ctx, ev)
}

// HandleEvent runs one change event through the dispatch pipeline.
func (h *Handler) HandleEvent(ctx context.Context, ev model.ChangeEvent) error {
	room, err := h.rooms.Snapshot(ctx, ev.PairingCode)
	if err != nil {
		return fmt.Errorf("room snapshot %s: %w", ev.PairingCode, err)
	}

	dec := trigger.Evaluate(ev, room, h.now())
	if !dec.Dispatch {
		log.Printf("[Worker] NoAction: room=%s device=%s reason=%s",
			ev.PairingCode, ev.DeviceID, dec.Reason)
		return nil
	}

	receipt, err := h.dispatcher.Dispatch(ctx, dec.Target, dec.Payload)
	h.record(ctx, dec, receipt, err)
	if err != nil {
		if errors.Is(err, model.ErrTokenRejected) {
			// Terminal for this event; the device has to re-register.
			log.Printf("[Worker] Token rejected: room=%s target=%s", ev.PairingCode, dec.Target.DeviceID)
			return nil
		}
		return fmt.Errorf("dispatch to %s: %w", dec.Target.DeviceID, err)
	}

	log.Printf("[Worker] Dispatched: room=%s target=%s profile=%s delivery=%s",
		ev.PairingCode, dec.Target.DeviceID, dec.Payload.Profile, receipt.DeliveryID)
	return nil
}

func (h *Handler) record(ctx context.Context, dec trigger.Decision, receipt notify.Receipt, dispatchErr error) {
	if h.recorder == nil {
		return
	}

	status := model.DeliverySent
	if dispatchErr != nil {
		status = model.DeliveryFailed
	}

	rec := model.DeliveryRecord{
		ID:           receipt.DeliveryID,
		PairingCode:  dec.Payload.PairingCode,
		TargetDevice: dec.Target.DeviceID,
		Profile:      dec.Payload.Profile,
		SenderID:     dec.Payload.SenderID,
		Status:       status,
		ErrorClass:   notify.ErrorClass(dispatchErr),
		FCMMessageID: receipt.MessageID,
	}
	if err := h.recorder.RecordDelivery(ctx, rec); err != nil {
		log.Printf("[Worker] Audit record failed: delivery=%s err=%v", receipt.DeliveryID, err)
	}
}
