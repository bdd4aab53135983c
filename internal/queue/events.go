package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"phonebuddy/internal/model"
)

// Stream and group names for the dispatch pipeline.
const (
	StreamProfileChanges = "stream:profile-changes"

	ConsumerGroupDispatch = "dispatch_workers"
	ConsumerGroupApplier  = "applier"
)

// Inbound agent actions (the device-local command surface).
const (
	ActionStartService    = "START_SERVICE"
	ActionStopService     = "STOP_SERVICE"
	ActionSetAudioProfile = "SET_AUDIO_PROFILE"
)

// CommandStream names the per-device stream the agent's delivery adapter
// consumes from.
func CommandStream(deviceID string) string {
	return "stream:device:" + deviceID + ":commands"
}

// CommandEvent is one delivered command for a receiver agent.
type CommandEvent struct {
	Action    string `json:"action"`
	Profile   string `json:"profile,omitempty"`
	Origin    string `json:"origin,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewProfileCommand builds a SET_AUDIO_PROFILE command event.
func NewProfileCommand(profile, origin string) CommandEvent {
	return CommandEvent{
		Action:    ActionSetAudioProfile,
		Profile:   profile,
		Origin:    origin,
		Timestamp: time.Now().Unix(),
	}
}

// envelope is the field set stored per stream entry. Redis Streams store
// field-value pairs, so the full event is serialized as JSON in "data" with
// the type duplicated as its own field for cheap filtering.
func envelope(kind string, v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": kind,
		"data": string(data),
	}, nil
}

// ChangeEventToMap converts a store change event for XADD.
func ChangeEventToMap(ev model.ChangeEvent) (map[string]interface{}, error) {
	return envelope("device_change", ev)
}

// CommandEventToMap converts an agent command for XADD.
func CommandEventToMap(ev CommandEvent) (map[string]interface{}, error) {
	return envelope(ev.Action, ev)
}

// ParseChangeEvent parses a change event from stream message values.
func ParseChangeEvent(values map[string]interface{}) (model.ChangeEvent, error) {
	var ev model.ChangeEvent
	if err := unmarshalData(values, &ev); err != nil {
		return model.ChangeEvent{}, err
	}
	return ev, nil
}

// ParseCommandEvent parses an agent command from stream message values.
func ParseCommandEvent(values map[string]interface{}) (CommandEvent, error) {
	var ev CommandEvent
	if err := unmarshalData(values, &ev); err != nil {
		return CommandEvent{}, err
	}
	return ev, nil
}

func unmarshalData(values map[string]interface{}, v interface{}) error {
	data, ok := values["data"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid 'data' field")
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	return nil
}
