package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pvzlink/parcel-system/internal/core/ports"
)

const collectionStatusEvents = "status_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{col: db.Collection(collectionStatusEvents)}
}

// InsertStatusEvent persists an applied transition to the audit trail.
func (r *AuditRepository) InsertStatusEvent(ctx context.Context, event *ports.StatusEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"tracking_number": event.TrackingNumber,
		"from":            string(event.From),
		"to":              string(event.To),
		"via":             event.Via,
		"timestamp":       event.Timestamp.UTC(),
		"processed_at":    time.Now().UTC(),
	}
	if event.ActorUserID != "" {
		doc["actor_user_id"] = event.ActorUserID
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}
