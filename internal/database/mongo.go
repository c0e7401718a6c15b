package database

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"

    appconfig "github.com/GTDGit/gtd_catalog/internal/config"
)

// ConnectMongo opens a MongoDB client with the same retry policy as Connect
// and returns the configured database.
func ConnectMongo(cfg *appconfig.MongoConfig) (*mongo.Database, error) {
    if cfg == nil {
        return nil, errors.New("nil mongo config")
    }

    const (
        maxAttempts = 5
        baseDelay   = 500 * time.Millisecond
    )

    clientOpts := options.Client().
        ApplyURI(cfg.URI).
        SetMaxPoolSize(25).
        SetMinPoolSize(5).
        SetMaxConnIdleTime(5 * time.Minute)

    var lastErr error
    for attempt := 1; attempt <= maxAttempts; attempt++ {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        client, err := mongo.Connect(ctx, clientOpts)
        if err != nil {
            cancel()
            lastErr = err
            _ = sleepWithBackoff(context.Background(), attempt, baseDelay)
            continue
        }

        lastErr = client.Ping(ctx, nil)
        cancel()
        if lastErr == nil {
            return client.Database(cfg.Database), nil
        }

        _ = client.Disconnect(context.Background())
        _ = sleepWithBackoff(context.Background(), attempt, baseDelay)
    }

    return nil, fmt.Errorf("failed to connect to mongo after %d attempts: %w", maxAttempts, lastErr)
}

// EnsureMongoIndexes creates the secondary indexes the catalog queries rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
    indexes := map[string][]mongo.IndexModel{
        "product_variants": {
            {Keys: bson.D{{Key: "data.templateId", Value: 1}, {Key: "data.tokens", Value: 1}}},
            {Keys: bson.D{{Key: "data.productId", Value: 1}}},
        },
        "variant_combinations": {
            {Keys: bson.D{{Key: "data.productId", Value: 1}}},
        },
        "combination_values": {
            {Keys: bson.D{{Key: "data.combinationId", Value: 1}}},
            {Keys: bson.D{{Key: "data.productId", Value: 1}}},
        },
        "variant_options": {
            {Keys: bson.D{{Key: "data.templateId", Value: 1}}},
        },
        "products": {
            {Keys: bson.D{{Key: "data.storeId", Value: 1}, {Key: "createdAt", Value: -1}}},
            {Keys: bson.D{{Key: "data.storeId", Value: 1}, {Key: "data.sku", Value: 1}}},
        },
        "virtual_products": {
            {Keys: bson.D{{Key: "data.storeId", Value: 1}}},
            {Keys: bson.D{{Key: "data.originalProductId", Value: 1}}},
        },
    }

    for collection, models := range indexes {
        if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
            return fmt.Errorf("create indexes on %s: %w", collection, err)
        }
    }
    return nil
}
