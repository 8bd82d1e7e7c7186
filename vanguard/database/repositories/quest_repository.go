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

type QuestRepository interface {
	// Templates
	CreateTemplate(ctx context.Context, tmpl *models.Quest) error
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, id string) (*models.Quest, error)
	ListTemplates(ctx context.Context) ([]*models.Quest, error)
	RandomTemplate(ctx context.Context) (*models.Quest, error)

	// Instances
	Create(ctx context.Context, quest *models.Quest) error
	GetByID(ctx context.Context, id string) (*models.Quest, error)
	// GetCurrentForFaction returns the faction's offered or active quest,
	// or nil when there is none.
	GetCurrentForFaction(ctx context.Context, factionID string) (*models.Quest, error)

	// Conditional transitions. Each returns whether this caller won the
	// transition; a false result means another writer moved the quest first.
	MarkAccepted(ctx context.Context, id string, now, deadline time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	MarkStatus(ctx context.Context, id string, from, to models.QuestStatus) (bool, error)
	CancelNonTerminal(ctx context.Context, id string) (bool, error)

	// AddContribution atomically bumps both the aggregate progress and the
	// contributor's tally while the quest is active, returning the
	// post-update document (nil when the quest was no longer active).
	AddContribution(ctx context.Context, id string, userID snowflake.ID, delta int64) (*models.Quest, error)
	// AddUniqueParticipant counts a contributor once: the first event per
	// user adds one unit of progress, repeats are no-ops (nil result).
	AddUniqueParticipant(ctx context.Context, id string, userID snowflake.ID) (*models.Quest, error)

	ListOfferDeadlineElapsed(ctx context.Context, now time.Time) ([]*models.Quest, error)
	ListDeadlineElapsed(ctx context.Context, now time.Time) ([]*models.Quest, error)
}

type questRepository struct {
	coll *mongo.Collection
}

func NewQuestRepository(db *mongo.Database) QuestRepository {
	return &questRepository{coll: db.Collection("quests")}
}

func (r *questRepository) CreateTemplate(ctx context.Context, tmpl *models.Quest) error {
	tmpl.Status = models.QuestStatusTemplate
	tmpl.FactionID = ""
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = tmpl.CreatedAt
	if _, err := r.coll.InsertOne(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to create quest template: %w", err)
	}
	return nil
}

func (r *questRepository) DeleteTemplate(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "status": models.QuestStatusTemplate})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *questRepository) GetTemplate(ctx context.Context, id string) (*models.Quest, error) {
	return r.get(ctx, bson.M{"_id": id, "status": models.QuestStatusTemplate})
}

func (r *questRepository) ListTemplates(ctx context.Context) ([]*models.Quest, error) {
	return r.list(ctx, bson.M{"status": models.QuestStatusTemplate})
}

func (r *questRepository) RandomTemplate(ctx context.Context) (*models.Quest, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": models.QuestStatusTemplate}}},
		bson.D{{Key: "$sample", Value: bson.M{"size": 1}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var quests []*models.Quest
	if err := cursor.All(ctx, &quests); err != nil {
		return nil, err
	}
	if len(quests) == 0 {
		return nil, ErrNotFound
	}
	return quests[0], nil
}

func (r *questRepository) Create(ctx context.Context, quest *models.Quest) error {
	quest.CreatedAt = time.Now()
	quest.UpdatedAt = quest.CreatedAt
	if quest.Contributions == nil {
		quest.Contributions = map[string]int64{}
	}
	if _, err := r.coll.InsertOne(ctx, quest); err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}

func (r *questRepository) GetByID(ctx context.Context, id string) (*models.Quest, error) {
	return r.get(ctx, bson.M{"_id": id})
}

func (r *questRepository) GetCurrentForFaction(ctx context.Context, factionID string) (*models.Quest, error) {
	quest, err := r.get(ctx, bson.M{
		"faction_id": factionID,
		"status":     bson.M{"$in": []models.QuestStatus{models.QuestStatusOffered, models.QuestStatusActive}},
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return quest, err
}

func (r *questRepository) MarkAccepted(ctx context.Context, id string, now, deadline time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":             id,
			"status":          models.QuestStatusOffered,
			"accept_deadline": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{
			"status":      models.QuestStatusActive,
			"accepted_at": now,
			"deadline":    deadline,
			"updated_at":  now,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *questRepository) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.QuestStatusActive},
		bson.M{"$set": bson.M{
			"status":       models.QuestStatusCompleted,
			"completed_at": at,
			"updated_at":   at,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *questRepository) MarkStatus(ctx context.Context, id string, from, to models.QuestStatus) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *questRepository) CancelNonTerminal(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []models.QuestStatus{
			models.QuestStatusOffered, models.QuestStatusActive,
		}}},
		bson.M{"$set": bson.M{"status": models.QuestStatusExpired, "updated_at": time.Now()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *questRepository) AddContribution(ctx context.Context, id string, userID snowflake.ID, delta int64) (*models.Quest, error) {
	quest := new(models.Quest)
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.QuestStatusActive},
		bson.M{
			"$inc": bson.M{
				"progress":                         delta,
				"contributions." + userID.String(): delta,
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(quest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return quest, nil
}

func (r *questRepository) AddUniqueParticipant(ctx context.Context, id string, userID snowflake.ID) (*models.Quest, error) {
	key := "contributions." + userID.String()
	quest := new(models.Quest)
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{
			"_id":    id,
			"status": models.QuestStatusActive,
			key:      bson.M{"$exists": false},
		},
		bson.M{
			"$inc": bson.M{"progress": 1},
			"$set": bson.M{key: int64(1), "updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(quest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Already counted, or quest no longer active.
			return nil, nil
		}
		return nil, err
	}
	return quest, nil
}

func (r *questRepository) ListOfferDeadlineElapsed(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	return r.list(ctx, bson.M{
		"status":          models.QuestStatusOffered,
		"accept_deadline": bson.M{"$lte": now},
	})
}

func (r *questRepository) ListDeadlineElapsed(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	return r.list(ctx, bson.M{
		"status":   models.QuestStatusActive,
		"deadline": bson.M{"$lte": now},
	})
}

func (r *questRepository) get(ctx context.Context, filter bson.M) (*models.Quest, error) {
	quest := new(models.Quest)
	err := r.coll.FindOne(ctx, filter).Decode(quest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return quest, nil
}

func (r *questRepository) list(ctx context.Context, filter bson.M) ([]*models.Quest, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var quests []*models.Quest
	if err := cursor.All(ctx, &quests); err != nil {
		return nil, err
	}
	return quests, nil
}
