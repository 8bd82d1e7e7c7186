// Package mock provides in-memory repository implementations for tests.
// They reproduce the store's conditional-update semantics (guards, CAS
// transitions, bounded ledger) so service tests exercise the same races the
// real store arbitrates.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
)

type Factions struct {
	mu   sync.Mutex
	byID map[string]*models.Faction

	// Per-method error injection for failure-path tests.
	IncrementTreasuryErr map[string]error
	AppendLedgerErr      error
}

var _ repositories.FactionRepository = (*Factions)(nil)

func NewFactions(factions ...*models.Faction) *Factions {
	f := &Factions{
		byID:                 make(map[string]*models.Faction),
		IncrementTreasuryErr: make(map[string]error),
	}
	for _, faction := range factions {
		f.byID[faction.ID] = cloneFaction(faction)
	}
	return f
}

func cloneFaction(f *models.Faction) *models.Faction {
	c := *f
	c.OfficerIDs = append([]snowflake.ID(nil), f.OfficerIDs...)
	c.MemberIDs = append([]snowflake.ID(nil), f.MemberIDs...)
	c.Ledger = append([]models.LedgerEntry(nil), f.Ledger...)
	c.MemberHistory = append([]models.MemberRecord(nil), f.MemberHistory...)
	if f.Effect != nil {
		effect := *f.Effect
		c.Effect = &effect
	}
	return &c
}

// Snapshot returns a copy of the stored faction for assertions.
func (r *Factions) Snapshot(id string) *models.Faction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byID[id]; ok {
		return cloneFaction(f)
	}
	return nil
}

func (r *Factions) Create(_ context.Context, faction *models.Faction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[faction.ID] = cloneFaction(faction)
	return nil
}

func (r *Factions) GetByID(_ context.Context, id string) (*models.Faction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneFaction(f), nil
}

func (r *Factions) GetByMember(_ context.Context, userID snowflake.ID) (*models.Faction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.byID {
		if !f.Disbanded && f.IsMember(userID) {
			return cloneFaction(f), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Factions) ListByGuild(_ context.Context, guildID snowflake.ID) ([]*models.Faction, error) {
	return r.listWhere(func(f *models.Faction) bool {
		return !f.Disbanded && f.GuildID == guildID
	}), nil
}

func (r *Factions) ListActive(_ context.Context) ([]*models.Faction, error) {
	return r.listWhere(func(f *models.Faction) bool { return !f.Disbanded }), nil
}

func (r *Factions) ListDueUpkeep(_ context.Context, now time.Time) ([]*models.Faction, error) {
	return r.listWhere(func(f *models.Faction) bool {
		return !f.Disbanded && !f.NextUpkeepAt.After(now)
	}), nil
}

func (r *Factions) listWhere(match func(*models.Faction) bool) []*models.Faction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Faction
	for _, f := range r.byID {
		if match(f) {
			out = append(out, cloneFaction(f))
		}
	}
	return out
}

func (r *Factions) IncrementTreasury(_ context.Context, id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.IncrementTreasuryErr[id]; err != nil {
		return 0, err
	}
	f, ok := r.byID[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if f.Disbanded {
		return 0, repositories.ErrFactionDisbanded
	}
	if delta < 0 && f.Treasury < -delta {
		return 0, repositories.ErrInsufficientTreasury
	}
	f.Treasury += delta
	return f.Treasury, nil
}

func (r *Factions) AppendLedger(_ context.Context, id string, entry models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendLedgerErr != nil {
		return r.AppendLedgerErr
	}
	f, ok := r.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	f.Ledger = append(f.Ledger, entry)
	if len(f.Ledger) > models.LedgerCap {
		f.Ledger = f.Ledger[len(f.Ledger)-models.LedgerCap:]
	}
	return nil
}

func (r *Factions) IncrementXP(_ context.Context, id string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.Disbanded {
		return 0, repositories.ErrNotFound
	}
	f.XP += amount
	return f.XP, nil
}

func (r *Factions) SetLevelIfGreater(_ context.Context, id string, level int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.Level >= level {
		return false, nil
	}
	f.Level = level
	return true, nil
}

func (r *Factions) AddPendingVC(_ context.Context, id string, ms int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byID[id]; ok && !f.Disbanded {
		f.PendingVCMs += ms
	}
	return nil
}

func (r *Factions) DrainPendingVC(_ context.Context, id string, ms int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.PendingVCMs < ms {
		return false, nil
	}
	f.PendingVCMs -= ms
	return true, nil
}

func (r *Factions) SetNextUpkeep(_ context.Context, id string, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byID[id]; ok {
		f.NextUpkeepAt = next
	}
	return nil
}

func (r *Factions) SetEffect(_ context.Context, id string, effect *models.FactionEffect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byID[id]; ok && !f.Disbanded {
		e := *effect
		f.Effect = &e
	}
	return nil
}

func (r *Factions) ClearEffect(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byID[id]; ok {
		f.Effect = nil
	}
	return nil
}

func (r *Factions) AddMember(_ context.Context, id string, userID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.Disbanded {
		return repositories.ErrNotFound
	}
	for _, m := range f.MemberIDs {
		if m == userID {
			return nil
		}
	}
	f.MemberIDs = append(f.MemberIDs, userID)
	f.MemberHistory = append(f.MemberHistory, models.MemberRecord{
		UserID:   userID,
		JoinedAt: time.Now(),
	})
	return nil
}

func (r *Factions) RemoveMember(_ context.Context, id string, userID snowflake.ID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	f.MemberIDs = removeID(f.MemberIDs, userID)
	f.OfficerIDs = removeID(f.OfficerIDs, userID)
	now := time.Now()
	for i := range f.MemberHistory {
		rec := &f.MemberHistory[i]
		if rec.UserID == userID && rec.LeftAt.IsZero() {
			rec.LeftAt = now
			rec.Reason = reason
		}
	}
	return nil
}

func (r *Factions) PromoteOfficer(_ context.Context, id string, userID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.Disbanded {
		return repositories.ErrNotFound
	}
	f.MemberIDs = removeID(f.MemberIDs, userID)
	for _, o := range f.OfficerIDs {
		if o == userID {
			return nil
		}
	}
	f.OfficerIDs = append(f.OfficerIDs, userID)
	return nil
}

func (r *Factions) MarkDisbanded(_ context.Context, id string, reason models.DisbandReason, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.Disbanded {
		return false, nil
	}
	f.Disbanded = true
	f.DisbandReason = reason
	f.DisbandedAt = at
	return true, nil
}

func (r *Factions) FinalizeMemberHistory(_ context.Context, id string, at time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for i := range f.MemberHistory {
		rec := &f.MemberHistory[i]
		if rec.LeftAt.IsZero() {
			rec.LeftAt = at
			rec.Reason = reason
		}
	}
	return nil
}

func removeID(ids []snowflake.ID, id snowflake.ID) []snowflake.ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
