package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
)

type Users struct {
	mu   sync.Mutex
	byID map[snowflake.ID]*models.User

	AdjustBalanceErr map[snowflake.ID]error
}

var _ repositories.UserRepository = (*Users)(nil)

func NewUsers(users ...*models.User) *Users {
	u := &Users{
		byID:             make(map[snowflake.ID]*models.User),
		AdjustBalanceErr: make(map[snowflake.ID]error),
	}
	for _, user := range users {
		c := *user
		u.byID[user.ID] = &c
	}
	return u
}

func (r *Users) Snapshot(id snowflake.ID) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		c := *u
		return &c
	}
	return nil
}

func (r *Users) GetOrCreate(_ context.Context, id snowflake.ID, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		u = &models.User{ID: id, Username: username}
		r.byID[id] = u
	} else if username != "" {
		u.Username = username
	}
	c := *u
	return &c, nil
}

func (r *Users) GetByID(_ context.Context, id snowflake.ID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *Users) AdjustBalance(_ context.Context, id snowflake.ID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.AdjustBalanceErr[id]; err != nil {
		return 0, err
	}
	u, ok := r.byID[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if delta < 0 && u.Balance < -delta {
		return 0, repositories.ErrInsufficientBalance
	}
	u.Balance += delta
	return u.Balance, nil
}

func (r *Users) SetFaction(_ context.Context, id snowflake.ID, factionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.FactionID = factionID
	}
	return nil
}

func (r *Users) ClearFaction(_ context.Context, ids []snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			u.FactionID = ""
		}
	}
	return nil
}

func (r *Users) TopBalances(_ context.Context, limit int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Cooldowns struct {
	mu   sync.Mutex
	byID map[string]*models.QuestCooldown
}

var _ repositories.CooldownRepository = (*Cooldowns)(nil)

func NewCooldowns() *Cooldowns {
	return &Cooldowns{byID: make(map[string]*models.QuestCooldown)}
}

func (r *Cooldowns) Get(_ context.Context, factionID string) (*models.QuestCooldown, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cd, ok := r.byID[factionID]
	if !ok {
		return nil, nil
	}
	if cd.ExpiredAt(time.Now()) {
		delete(r.byID, factionID)
		return nil, nil
	}
	c := *cd
	return &c, nil
}

func (r *Cooldowns) Put(_ context.Context, factionID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cd, ok := r.byID[factionID]
	if !ok {
		cd = &models.QuestCooldown{FactionID: factionID}
		r.byID[factionID] = cd
	}
	cd.ExpiresAt = expiresAt
	cd.Rejections++
	return nil
}

func (r *Cooldowns) Clear(_ context.Context, factionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, factionID)
	return nil
}
