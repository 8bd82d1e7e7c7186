package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

type UserRepository interface {
	GetOrCreate(ctx context.Context, id snowflake.ID, username string) (*models.User, error)
	GetByID(ctx context.Context, id snowflake.ID) (*models.User, error)
	// AdjustBalance atomically adjusts the user's balance and returns the
	// result. Debits are guarded; a guard miss returns
	// ErrInsufficientBalance.
	AdjustBalance(ctx context.Context, id snowflake.ID, delta int64) (int64, error)
	SetFaction(ctx context.Context, id snowflake.ID, factionID string) error
	// ClearFaction drops the faction affiliation of every listed user in a
	// single write (used on disband).
	ClearFaction(ctx context.Context, ids []snowflake.ID) error
	TopBalances(ctx context.Context, limit int) ([]*models.User, error)
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection("users")}
}

func (r *userRepository) GetOrCreate(ctx context.Context, id snowflake.ID, username string) (*models.User, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"balance":    int64(0),
			"created_at": now,
		},
		"$set": bson.M{
			"username":   username,
			"updated_at": now,
		},
	}
	user := new(models.User)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id snowflake.ID) (*models.User, error) {
	user := new(models.User)
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) AdjustBalance(ctx context.Context, id snowflake.ID, delta int64) (int64, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["balance"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"balance": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}

	user := new(models.User)
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, gerr := r.GetByID(ctx, id); gerr != nil {
				return 0, gerr
			}
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}
	return user.Balance, nil
}

func (r *userRepository) SetFaction(ctx context.Context, id snowflake.ID, factionID string) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if factionID == "" {
		update["$unset"] = bson.M{"faction_id": ""}
	} else {
		update["$set"].(bson.M)["faction_id"] = factionID
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *userRepository) ClearFaction(ctx context.Context, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$unset": bson.M{"faction_id": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		})
	return err
}

func (r *userRepository) TopBalances(ctx context.Context, limit int) ([]*models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "balance", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
