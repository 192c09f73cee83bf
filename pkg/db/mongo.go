package db

import (
	"context"
	"errors"
	"fmt"

	"podcast-digest/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	trackingCollection   = "podcast_tracking"
	transcriptCollection = "podcast_transcripts"
)

// Client wraps the MongoDB client and the digest database.
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
}

// NewClient creates a new database client. Connection errors surface from Connect.
func NewClient(connectionString, databaseName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		return &Client{}
	}

	return &Client{
		mongoClient: mongoClient,
		database:    mongoClient.Database(databaseName),
	}
}

// Connect verifies the connection to MongoDB.
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	if err := c.mongoClient.Ping(ctx, nil); err != nil {
		return errors.Join(domain.ErrSourceUnavailable, fmt.Errorf("ping mongo: %w", err))
	}
	return nil
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

func (c *Client) collection(name string) (*mongo.Collection, error) {
	if c.database == nil {
		return nil, fmt.Errorf("collection %s not initialized", name)
	}
	return c.database.Collection(name), nil
}

// SaveTrackingRecords upserts one document per podcast id and removes the
// documents of podcasts missing from records.
func (c *Client) SaveTrackingRecords(ctx context.Context, records []domain.TrackingRecord) error {
	coll, err := c.collection(trackingCollection)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(records))
	models := make([]mongo.WriteModel, 0, len(records)+1)
	for _, rec := range records {
		ids = append(ids, rec.PodcastID)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"podcast_id": rec.PodcastID}).
			SetUpdate(bson.M{"$set": rec}).
			SetUpsert(true))
	}
	models = append(models, mongo.NewDeleteManyModel().SetFilter(bson.M{"podcast_id": bson.M{"$nin": ids}}))

	if _, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("save tracking records: %w", err)
	}
	return nil
}

// LoadTrackingRecords returns every stored tracking record.
func (c *Client) LoadTrackingRecords(ctx context.Context) ([]domain.TrackingRecord, error) {
	coll, err := c.collection(trackingCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, errors.Join(domain.ErrSourceUnavailable, fmt.Errorf("query tracking records: %w", err))
	}
	defer cursor.Close(ctx)

	var records []domain.TrackingRecord
	for cursor.Next(ctx) {
		var rec domain.TrackingRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: decode tracking record: %v", domain.ErrParseFailure, err)
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return records, nil
}

// SaveTranscript upserts an archived transcript keyed by podcast and episode identity.
func (c *Client) SaveTranscript(ctx context.Context, t *domain.PodcastTranscript) error {
	coll, err := c.collection(transcriptCollection)
	if err != nil {
		return err
	}

	filter := bson.M{"podcast_id": t.PodcastID, "identity": t.Identity}
	update := bson.M{"$set": t}
	opts := options.Update().SetUpsert(true)

	_, err = coll.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetAllTranscripts loads every archived transcript.
func (c *Client) GetAllTranscripts(ctx context.Context) ([]domain.PodcastTranscript, error) {
	coll, err := c.collection(transcriptCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.PodcastTranscript
	for cursor.Next(ctx) {
		var t domain.PodcastTranscript
		if err := cursor.Decode(&t); err != nil {
			continue // skip documents written by older versions
		}
		out = append(out, t)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}
