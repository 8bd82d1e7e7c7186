package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Timeout  int    `toml:"timeout"`
}

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB with bounded retries and verifies the connection
// with a ping before handing the handle out.
func Connect(ctx context.Context, cfg MongoConfig) (*DB, error) {
	timeout := defaultConnTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	var client *mongo.Client
	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		client, err = mongo.Connect(ctx, opts)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				break
			}
			_ = client.Disconnect(ctx)
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	db := &DB{client: client, db: client.Database(cfg.Database)}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	slog.Info("MongoDB connected",
		slog.String("type", "db"),
		slog.String("database", cfg.Database))
	return db, nil
}

func (d *DB) Database() *mongo.Database {
	return d.db
}

func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *DB) Ping(ctx context.Context) error {
	if err := d.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// ensureIndexes creates the indexes the hot paths rely on. CreateMany is
// idempotent, so this runs on every startup.
func (d *DB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"factions": {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "disbanded", Value: 1}}},
			{Keys: bson.D{{Key: "disbanded", Value: 1}, {Key: "next_upkeep_at", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		"quests": {
			{Keys: bson.D{{Key: "faction_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "accept_deadline", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "faction_id", Value: 1}}},
			{Keys: bson.D{{Key: "balance", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to index %s: %w", coll, err)
		}
	}
	return nil
}
