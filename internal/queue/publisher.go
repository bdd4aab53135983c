package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"phonebuddy/internal/model"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// PublishChange adds a store change event to the profile-changes stream.
	// Returns the message ID assigned by Redis.
	PublishChange(ctx context.Context, event model.ChangeEvent) (messageID string, err error)

	// PublishCommand adds a command to a device's command stream.
	PublishCommand(ctx context.Context, deviceID string, event CommandEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishChange(ctx context.Context, event model.ChangeEvent) (string, error) {
	values, err := ChangeEventToMap(event)
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.xadd(ctx, StreamProfileChanges, values)
	if err != nil {
		return "", err
	}

	log.Printf("[Publisher] Change OK: room=%s device=%s msgID=%s",
		event.PairingCode, event.DeviceID, messageID)
	return messageID, nil
}

func (p *RedisPublisher) PublishCommand(ctx context.Context, deviceID string, event CommandEvent) (string, error) {
	values, err := CommandEventToMap(event)
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.xadd(ctx, CommandStream(deviceID), values)
	if err != nil {
		return "", err
	}

	log.Printf("[Publisher] Command OK: device=%s action=%s msgID=%s",
		deviceID, event.Action, messageID)
	return messageID, nil
}

// xadd appends to a stream with "*" so Redis assigns the message ID
// (timestamp-sequence).
func (p *RedisPublisher) xadd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s err=%v", stream, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}
	return messageID, nil
}
