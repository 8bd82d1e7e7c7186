package repositories

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CooldownRepository interface {
	// Get returns the faction's active cooldown, or nil when there is none.
	// Expired records are removed lazily here.
	Get(ctx context.Context, factionID string) (*models.QuestCooldown, error)
	// Put refreshes the cooldown expiry and bumps the rejection counter.
	Put(ctx context.Context, factionID string, expiresAt time.Time) error
	Clear(ctx context.Context, factionID string) error
}

type cooldownRepository struct {
	coll *mongo.Collection
}

func NewCooldownRepository(db *mongo.Database) CooldownRepository {
	return &cooldownRepository{coll: db.Collection("quest_cooldowns")}
}

func (r *cooldownRepository) Get(ctx context.Context, factionID string) (*models.QuestCooldown, error) {
	cooldown := new(models.QuestCooldown)
	err := r.coll.FindOne(ctx, bson.M{"_id": factionID}).Decode(cooldown)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	if cooldown.ExpiredAt(time.Now()) {
		if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": factionID}); err != nil {
			slog.Warn("Failed to clean up expired quest cooldown",
				slog.String("type", "db"),
				slog.String("faction_id", factionID),
				slog.Any("error", err))
		}
		return nil, nil
	}
	return cooldown, nil
}

func (r *cooldownRepository) Put(ctx context.Context, factionID string, expiresAt time.Time) error {
	update := bson.M{
		"$set": bson.M{"expires_at": expiresAt, "updated_at": time.Now()},
		"$inc": bson.M{"rejections": 1},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": factionID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *cooldownRepository) Clear(ctx context.Context, factionID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": factionID})
	return err
}
