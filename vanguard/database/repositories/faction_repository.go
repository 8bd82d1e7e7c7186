package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientTreasury = errors.New("insufficient treasury")
	ErrFactionDisbanded     = errors.New("faction is disbanded")
)

type FactionRepository interface {
	Create(ctx context.Context, faction *models.Faction) error
	GetByID(ctx context.Context, id string) (*models.Faction, error)
	GetByMember(ctx context.Context, userID snowflake.ID) (*models.Faction, error)
	ListByGuild(ctx context.Context, guildID snowflake.ID) ([]*models.Faction, error)
	ListActive(ctx context.Context) ([]*models.Faction, error)
	ListDueUpkeep(ctx context.Context, now time.Time) ([]*models.Faction, error)

	// IncrementTreasury atomically adjusts the treasury and returns the
	// resulting balance. Debits are guarded so the balance can never be
	// persisted negative; a guard miss returns ErrInsufficientTreasury.
	IncrementTreasury(ctx context.Context, id string, delta int64) (int64, error)
	AppendLedger(ctx context.Context, id string, entry models.LedgerEntry) error

	IncrementXP(ctx context.Context, id string, amount int64) (int64, error)
	SetLevelIfGreater(ctx context.Context, id string, level int) (bool, error)
	AddPendingVC(ctx context.Context, id string, ms int64) error
	// DrainPendingVC conditionally subtracts ms from the accumulator,
	// reporting whether the subtraction applied (false when a concurrent
	// drain got there first).
	DrainPendingVC(ctx context.Context, id string, ms int64) (bool, error)

	SetNextUpkeep(ctx context.Context, id string, next time.Time) error
	SetEffect(ctx context.Context, id string, effect *models.FactionEffect) error
	ClearEffect(ctx context.Context, id string) error

	AddMember(ctx context.Context, id string, userID snowflake.ID) error
	RemoveMember(ctx context.Context, id string, userID snowflake.ID, reason string) error
	PromoteOfficer(ctx context.Context, id string, userID snowflake.ID) error

	// MarkDisbanded flips the disbanded flag exactly once; the boolean
	// reports whether this caller won the transition.
	MarkDisbanded(ctx context.Context, id string, reason models.DisbandReason, at time.Time) (bool, error)
	FinalizeMemberHistory(ctx context.Context, id string, at time.Time, reason string) error
}

type factionRepository struct {
	coll *mongo.Collection
}

func NewFactionRepository(db *mongo.Database) FactionRepository {
	return &factionRepository{coll: db.Collection("factions")}
}

func (r *factionRepository) Create(ctx context.Context, faction *models.Faction) error {
	faction.CreatedAt = time.Now()
	faction.UpdatedAt = faction.CreatedAt
	if faction.Ledger == nil {
		faction.Ledger = []models.LedgerEntry{}
	}
	if faction.MemberHistory == nil {
		faction.MemberHistory = []models.MemberRecord{}
	}
	if _, err := r.coll.InsertOne(ctx, faction); err != nil {
		return fmt.Errorf("failed to create faction: %w", err)
	}
	return nil
}

func (r *factionRepository) GetByID(ctx context.Context, id string) (*models.Faction, error) {
	faction := new(models.Faction)
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(faction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return faction, nil
}

func (r *factionRepository) GetByMember(ctx context.Context, userID snowflake.ID) (*models.Faction, error) {
	filter := bson.M{
		"disbanded": false,
		"$or": []bson.M{
			{"owner_id": userID},
			{"officer_ids": userID},
			{"member_ids": userID},
		},
	}
	faction := new(models.Faction)
	err := r.coll.FindOne(ctx, filter).Decode(faction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return faction, nil
}

func (r *factionRepository) ListByGuild(ctx context.Context, guildID snowflake.ID) ([]*models.Faction, error) {
	return r.list(ctx, bson.M{"guild_id": guildID, "disbanded": false})
}

func (r *factionRepository) ListActive(ctx context.Context) ([]*models.Faction, error) {
	return r.list(ctx, bson.M{"disbanded": false})
}

func (r *factionRepository) ListDueUpkeep(ctx context.Context, now time.Time) ([]*models.Faction, error) {
	return r.list(ctx, bson.M{"disbanded": false, "next_upkeep_at": bson.M{"$lte": now}})
}

func (r *factionRepository) list(ctx context.Context, filter bson.M) ([]*models.Faction, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var factions []*models.Faction
	if err := cursor.All(ctx, &factions); err != nil {
		return nil, err
	}
	return factions, nil
}

func (r *factionRepository) IncrementTreasury(ctx context.Context, id string, delta int64) (int64, error) {
	filter := bson.M{"_id": id, "disbanded": false}
	if delta < 0 {
		// Guard: only debit when the balance covers it.
		filter["treasury"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"treasury": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}

	faction := new(models.Faction)
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(faction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a missed guard from a missing faction.
			if _, gerr := r.GetByID(ctx, id); gerr != nil {
				return 0, gerr
			}
			if delta < 0 {
				return 0, ErrInsufficientTreasury
			}
			return 0, ErrFactionDisbanded
		}
		return 0, err
	}
	return faction.Treasury, nil
}

func (r *factionRepository) AppendLedger(ctx context.Context, id string, entry models.LedgerEntry) error {
	update := bson.M{
		"$push": bson.M{
			"ledger": bson.M{
				"$each":  []models.LedgerEntry{entry},
				"$slice": -models.LedgerCap,
			},
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *factionRepository) IncrementXP(ctx context.Context, id string, amount int64) (int64, error) {
	faction := new(models.Faction)
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "disbanded": false},
		bson.M{"$inc": bson.M{"xp": amount}, "$set": bson.M{"updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(faction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return faction.XP, nil
}

func (r *factionRepository) SetLevelIfGreater(ctx context.Context, id string, level int) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "level": bson.M{"$lt": level}},
		bson.M{"$set": bson.M{"level": level, "updated_at": time.Now()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *factionRepository) AddPendingVC(ctx context.Context, id string, ms int64) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "disbanded": false},
		bson.M{"$inc": bson.M{"pending_vc_ms": ms}})
	return err
}

func (r *factionRepository) DrainPendingVC(ctx context.Context, id string, ms int64) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "pending_vc_ms": bson.M{"$gte": ms}},
		bson.M{"$inc": bson.M{"pending_vc_ms": -ms}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *factionRepository) SetNextUpkeep(ctx context.Context, id string, next time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"next_upkeep_at": next, "updated_at": time.Now()}})
	return err
}

func (r *factionRepository) SetEffect(ctx context.Context, id string, effect *models.FactionEffect) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "disbanded": false},
		bson.M{"$set": bson.M{"effect": effect, "updated_at": time.Now()}})
	return err
}

func (r *factionRepository) ClearEffect(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{"effect": ""}, "$set": bson.M{"updated_at": time.Now()}})
	return err
}

func (r *factionRepository) AddMember(ctx context.Context, id string, userID snowflake.ID) error {
	update := bson.M{
		"$addToSet": bson.M{"member_ids": userID},
		"$push": bson.M{"member_history": models.MemberRecord{
			UserID:   userID,
			JoinedAt: time.Now(),
		}},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "disbanded": false}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *factionRepository) RemoveMember(ctx context.Context, id string, userID snowflake.ID, reason string) error {
	now := time.Now()
	update := bson.M{
		"$pull": bson.M{"member_ids": userID, "officer_ids": userID},
		"$set":  bson.M{"updated_at": now},
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return err
	}
	return r.finalizeMemberRecord(ctx, id, userID, now, reason)
}

func (r *factionRepository) PromoteOfficer(ctx context.Context, id string, userID snowflake.ID) error {
	update := bson.M{
		"$pull":     bson.M{"member_ids": userID},
		"$addToSet": bson.M{"officer_ids": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "disbanded": false}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *factionRepository) MarkDisbanded(ctx context.Context, id string, reason models.DisbandReason, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "disbanded": false},
		bson.M{"$set": bson.M{
			"disbanded":      true,
			"disband_reason": reason,
			"disbanded_at":   at,
			"updated_at":     at,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *factionRepository) FinalizeMemberHistory(ctx context.Context, id string, at time.Time, reason string) error {
	// Close every open history record in one pass with an array filter.
	update := bson.M{"$set": bson.M{
		"member_history.$[open].left_at": at,
		"member_history.$[open].reason":  reason,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"open.left_at": bson.M{"$exists": false}}},
	})
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}

func (r *factionRepository) finalizeMemberRecord(ctx context.Context, id string, userID snowflake.ID, at time.Time, reason string) error {
	update := bson.M{"$set": bson.M{
		"member_history.$[rec].left_at": at,
		"member_history.$[rec].reason":  reason,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"rec.user_id": userID,
			"rec.left_at": bson.M{"$exists": false},
		}},
	})
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}
