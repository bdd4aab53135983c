package store

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"

	"phonebuddy/internal/cache"
	"phonebuddy/internal/model"
	"phonebuddy/internal/queue"
)

// Watcher subscribes to the devices collection group and republishes each
// document mutation as a ChangeEvent on the profile-changes stream.
//
// Firestore's Go snapshot stream only carries the new document, so the
// watcher keeps the last observed state per document in the device cache
// and pairs it with the incoming one. That cache is adapter state only: the
// evaluator still decides from the two snapshots handed to it, never from
// anything the watcher remembers.
type Watcher struct {
	client *firestore.Client
	differ *differ
	pub    queue.Publisher
}

func NewWatcher(store *RoomStore, deviceCache cache.DeviceCache, pub queue.Publisher) *Watcher {
	return &Watcher{
		client: store.client,
		differ: &differ{cache: deviceCache},
		pub:    pub,
	}
}

// Run blocks consuming the snapshot stream until the context is canceled or
// the stream fails.
func (w *Watcher) Run(ctx context.Context) error {
	snaps := w.client.CollectionGroup(devicesCollection).Snapshots(ctx)
	defer snaps.Stop()

	log.Printf("[Watcher] Watching collection group %q", devicesCollection)

	for {
		snap, err := snaps.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("snapshot stream: %w", err)
		}

		for _, change := range snap.Changes {
			w.handleChange(ctx, change)
		}
	}
}

func (w *Watcher) handleChange(ctx context.Context, change firestore.DocumentChange) {
	doc := change.Doc
	roomRef := doc.Ref.Parent.Parent
	if roomRef == nil {
		log.Printf("[Watcher] Device doc outside a room, ignoring: %s", doc.Ref.Path)
		return
	}

	var state model.DeviceState
	if err := doc.DataTo(&state); err != nil {
		log.Printf("[Watcher] Malformed device doc %s: %v", doc.Ref.Path, err)
		return
	}
	if state.DeviceID == "" {
		state.DeviceID = doc.Ref.ID
	}

	switch change.Kind {
	case firestore.DocumentAdded:
		// Seed the before-image; a join is not a profile change.
		if err := w.differ.seed(ctx, doc.Ref.Path, state); err != nil {
			log.Printf("[Watcher] Seed failed for %s: %v", doc.Ref.Path, err)
		}
	case firestore.DocumentModified:
		ev, ok, err := w.differ.observe(ctx, doc.Ref.Path, roomRef.ID, doc.Ref.ID, state)
		if err != nil {
			log.Printf("[Watcher] Diff failed for %s: %v", doc.Ref.Path, err)
			return
		}
		if !ok {
			return
		}
		if _, err := w.pub.PublishChange(ctx, ev); err != nil {
			log.Printf("[Watcher] Publish failed for %s: %v", doc.Ref.Path, err)
		}
	case firestore.DocumentRemoved:
		// Leaving a room is out of scope for dispatch; the cached
		// before-image ages out via TTL.
	}
}

// differ reconstructs before/after pairs from a stream of after-images.
type differ struct {
	cache cache.DeviceCache
}

func (d *differ) seed(ctx context.Context, path string, state model.DeviceState) error {
	return d.cache.Put(ctx, path, state)
}

// observe pairs the incoming after-image with the cached before-image and
// advances the cache. ok is false when no before-image exists yet; in that
// case the document is seeded and no event is emitted, since without a
// before snapshot the change is not evaluable.
func (d *differ) observe(ctx context.Context, path, pairingCode, deviceID string, after model.DeviceState) (model.ChangeEvent, bool, error) {
	before, found, err := d.cache.Get(ctx, path)
	if err != nil {
		return model.ChangeEvent{}, false, err
	}

	if err := d.cache.Put(ctx, path, after); err != nil {
		return model.ChangeEvent{}, false, err
	}

	if !found {
		return model.ChangeEvent{}, false, nil
	}

	return model.ChangeEvent{
		PairingCode: pairingCode,
		DeviceID:    deviceID,
		Before:      before,
		After:       after,
	}, true, nil
}
