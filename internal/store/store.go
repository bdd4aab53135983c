// Package store owns the Firestore room documents: the device set under
// rooms/{pairingCode}/devices/{deviceId} and the change stream the
// dispatcher observes. The store is the source of truth; this package never
// decides anything, it only reads, writes and republishes changes.
package store

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"phonebuddy/internal/model"
)

const (
	roomsCollection   = "rooms"
	devicesCollection = "devices"
)

// RoomStore reads and writes room device documents.
type RoomStore struct {
	client *firestore.Client
}

// NewRoomStore connects to Firestore with the same service-account
// credentials the FCM sender uses.
func NewRoomStore(ctx context.Context, projectID string, credentialsJSON []byte) (*RoomStore, error) {
	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	log.Printf("[Store] Connected to Firestore project: %s", projectID)
	return &RoomStore{client: client}, nil
}

func (s *RoomStore) Close() error {
	return s.client.Close()
}

func (s *RoomStore) devices(pairingCode string) *firestore.CollectionRef {
	return s.client.Collection(roomsCollection).Doc(pairingCode).Collection(devicesCollection)
}

// Snapshot reads the room's full current device set.
func (s *RoomStore) Snapshot(ctx context.Context, pairingCode string) (model.RoomSnapshot, error) {
	docs, err := s.devices(pairingCode).Documents(ctx).GetAll()
	if err != nil {
		return model.RoomSnapshot{}, fmt.Errorf("read room %s: %w", pairingCode, err)
	}

	snap := model.RoomSnapshot{PairingCode: pairingCode}
	for _, doc := range docs {
		var state model.DeviceState
		if err := doc.DataTo(&state); err != nil {
			log.Printf("[Store] Skipping malformed device doc %s: %v", doc.Ref.Path, err)
			continue
		}
		if state.DeviceID == "" {
			state.DeviceID = doc.Ref.ID
		}
		snap.Devices = append(snap.Devices, state)
	}
	return snap, nil
}

// UpdateDeviceProfile writes a device's profile with explicit provenance.
// The receiver's post-apply self-sync calls this with updatedBy set to its
// own device ID, which is exactly what the evaluator's echo suppression
// keys on.
func (s *RoomStore) UpdateDeviceProfile(ctx context.Context, pairingCode, deviceID, profile, updatedBy string) error {
	_, err := s.devices(pairingCode).Doc(deviceID).Update(ctx, []firestore.Update{
		{Path: "profile", Value: profile},
		{Path: "updatedBy", Value: updatedBy},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.ErrDeviceNotFound
		}
		return fmt.Errorf("update device profile: %w", err)
	}
	return nil
}

// UpsertToken records a refreshed push token for a device. The token's
// platform-level refresh lifecycle is the device's own responsibility; the
// store only consumes the result.
func (s *RoomStore) UpsertToken(ctx context.Context, pairingCode, deviceID, token string) error {
	_, err := s.devices(pairingCode).Doc(deviceID).Set(ctx, map[string]interface{}{
		"deviceId":  deviceID,
		"fcmToken":  token,
		"updatedAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}
