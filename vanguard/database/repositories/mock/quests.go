package mock

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
)

type Quests struct {
	mu   sync.Mutex
	byID map[string]*models.Quest
}

var _ repositories.QuestRepository = (*Quests)(nil)

func NewQuests(quests ...*models.Quest) *Quests {
	q := &Quests{byID: make(map[string]*models.Quest)}
	for _, quest := range quests {
		q.byID[quest.ID] = cloneQuest(quest)
	}
	return q
}

func cloneQuest(q *models.Quest) *models.Quest {
	c := *q
	c.Contributions = make(map[string]int64, len(q.Contributions))
	for k, v := range q.Contributions {
		c.Contributions[k] = v
	}
	return &c
}

func (r *Quests) Snapshot(id string) *models.Quest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.byID[id]; ok {
		return cloneQuest(q)
	}
	return nil
}

func (r *Quests) CreateTemplate(_ context.Context, tmpl *models.Quest) error {
	tmpl.Status = models.QuestStatusTemplate
	tmpl.FactionID = ""
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[tmpl.ID] = cloneQuest(tmpl)
	return nil
}

func (r *Quests) DeleteTemplate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != models.QuestStatusTemplate {
		return repositories.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Quests) GetTemplate(_ context.Context, id string) (*models.Quest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != models.QuestStatusTemplate {
		return nil, repositories.ErrNotFound
	}
	return cloneQuest(q), nil
}

func (r *Quests) ListTemplates(_ context.Context) ([]*models.Quest, error) {
	return r.listWhere(func(q *models.Quest) bool {
		return q.Status == models.QuestStatusTemplate
	}), nil
}

// RandomTemplate returns the first template found; tests that care about the
// pick seed exactly one.
func (r *Quests) RandomTemplate(_ context.Context) (*models.Quest, error) {
	templates, _ := r.ListTemplates(context.Background())
	if len(templates) == 0 {
		return nil, repositories.ErrNotFound
	}
	return templates[0], nil
}

func (r *Quests) Create(_ context.Context, quest *models.Quest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if quest.Contributions == nil {
		quest.Contributions = map[string]int64{}
	}
	r.byID[quest.ID] = cloneQuest(quest)
	return nil
}

func (r *Quests) GetByID(_ context.Context, id string) (*models.Quest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneQuest(q), nil
}

func (r *Quests) GetCurrentForFaction(_ context.Context, factionID string) (*models.Quest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.byID {
		if q.FactionID == factionID &&
			(q.Status == models.QuestStatusOffered || q.Status == models.QuestStatusActive) {
			return cloneQuest(q), nil
		}
	}
	return nil, nil
}

func (r *Quests) MarkAccepted(_ context.Context, id string, now, deadline time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != models.QuestStatusOffered || !q.AcceptDeadline.After(now) {
		return false, nil
	}
	q.Status = models.QuestStatusActive
	q.AcceptedAt = now
	q.Deadline = deadline
	return true, nil
}

func (r *Quests) MarkCompleted(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != models.QuestStatusActive {
		return false, nil
	}
	q.Status = models.QuestStatusCompleted
	q.CompletedAt = at
	return true, nil
}

func (r *Quests) MarkStatus(_ context.Context, id string, from, to models.QuestStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	return true, nil
}

func (r *Quests) CancelNonTerminal(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	if q.Status != models.QuestStatusOffered && q.Status != models.QuestStatusActive {
		return false, nil
	}
	q.Status = models.QuestStatusExpired
	return true, nil
}

func (r *Quests) AddContribution(_ context.Context, id string, userID snowflake.ID, delta int64) (*models.Quest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != models.QuestStatusActive {
		return nil, nil
	}
	q.Progress += delta
	q.Contributions[userID.String()] += delta
	return cloneQuest(q), nil
}

func (r *Quests) AddUniqueParticipant(_ context.Context, id string, userID snowflake.ID) (*models.Quest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok || q.Status != models.QuestStatusActive {
		return nil, nil
	}
	if _, seen := q.Contributions[userID.String()]; seen {
		return nil, nil
	}
	q.Progress++
	q.Contributions[userID.String()] = 1
	return cloneQuest(q), nil
}

func (r *Quests) ListOfferDeadlineElapsed(_ context.Context, now time.Time) ([]*models.Quest, error) {
	return r.listWhere(func(q *models.Quest) bool {
		return q.Status == models.QuestStatusOffered && !q.AcceptDeadline.After(now)
	}), nil
}

func (r *Quests) ListDeadlineElapsed(_ context.Context, now time.Time) ([]*models.Quest, error) {
	return r.listWhere(func(q *models.Quest) bool {
		return q.Status == models.QuestStatusActive && !q.Deadline.After(now)
	}), nil
}

func (r *Quests) listWhere(match func(*models.Quest) bool) []*models.Quest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Quest
	for _, q := range r.byID {
		if match(q) {
			out = append(out, cloneQuest(q))
		}
	}
	return out
}
