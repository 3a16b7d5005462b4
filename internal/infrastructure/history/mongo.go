package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pricesheet/worker/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config selects the MongoDB deployment and collection for snapshots.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoRepository stores offer snapshots in MongoDB.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoRepository connects, pings and ensures the lookup index.
func NewMongoRepository(ctx context.Context, cfg Config) (*MongoRepository, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = "pricesheet"
	}
	if cfg.Collection == "" {
		cfg.Collection = "snapshots"
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to MongoDB: %v", domain.ErrHistoryUnavailable, err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: can't ping MongoDB: %v", domain.ErrHistoryUnavailable, err)
	}

	repo := &MongoRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
	}

	repo.createIndexes(connectCtx)
	return repo, nil
}

func (r *MongoRepository) createIndexes(ctx context.Context) {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "product_key", Value: 1},
			{Key: "searched_at", Value: -1},
		},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Printf("[HISTORY] Failed to create index: %v", err)
	}
}

// Record inserts a snapshot.
func (r *MongoRepository) Record(ctx context.Context, snapshot domain.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, toDocument(snapshot)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}
	return nil
}

// Latest returns the most recent snapshot for a product name.
func (r *MongoRepository) Latest(ctx context.Context, productName string) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "searched_at", Value: -1}})

	var doc snapshotDocument
	err := r.collection.FindOne(ctx, bson.M{"product_key": productKey(productName)}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}

	snapshot := fromDocument(doc)
	return &snapshot, nil
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}
