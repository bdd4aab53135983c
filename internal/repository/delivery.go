package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"phonebuddy/internal/model"
)

// DeliveryRepository is the audit trail of dispatch attempts. One row per
// attempt, whether it reached the transport or not.
type DeliveryRepository interface {
	RecordDelivery(ctx context.Context, rec model.DeliveryRecord) error
	ListRecent(ctx context.Context, limit int) ([]model.DeliveryRecord, error)
}

type deliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) RecordDelivery(ctx context.Context, rec model.DeliveryRecord) error {
	query := `
		INSERT INTO deliveries (id, pairing_code, target_device, profile, sender_id, status, error_class, fcm_message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.PairingCode, rec.TargetDevice, rec.Profile, rec.SenderID,
		rec.Status, rec.ErrorClass, rec.FCMMessageID)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) ListRecent(ctx context.Context, limit int) ([]model.DeliveryRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, pairing_code, target_device, profile, sender_id, status, error_class, fcm_message_id, created_at
		FROM deliveries
		ORDER BY created_at DESC
		LIMIT $1
	`
	var records []model.DeliveryRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return records, nil
}
