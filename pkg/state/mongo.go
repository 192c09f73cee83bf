package state

import (
	"context"

	"podcast-digest/pkg/db"
	"podcast-digest/pkg/domain"
)

// MongoBackend stores one tracking document per podcast.
type MongoBackend struct {
	client *db.Client
}

// NewMongoBackend wraps a connected client.
func NewMongoBackend(client *db.Client) *MongoBackend {
	return &MongoBackend{client: client}
}

func (b *MongoBackend) Load(ctx context.Context) ([]domain.TrackingRecord, error) {
	return b.client.LoadTrackingRecords(ctx)
}

func (b *MongoBackend) Save(ctx context.Context, records []domain.TrackingRecord) error {
	return b.client.SaveTrackingRecords(ctx, records)
}
