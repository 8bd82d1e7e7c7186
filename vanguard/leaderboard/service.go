// Package leaderboard serves the read-heavy ranking views. Rankings are
// snapshots computed from the store and held behind the stampede-protected
// cache, so a popular leaderboard command hits the database once per TTL
// instead of once per invocation.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/cache"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
)

const defaultLimit = 10

// FactionEntry is one row of the faction XP ranking.
type FactionEntry struct {
	FactionID string `json:"faction_id"`
	Name      string `json:"name"`
	Level     int    `json:"level"`
	XP        int64  `json:"xp"`
	Treasury  int64  `json:"treasury"`
	Members   int    `json:"members"`
}

// UserEntry is one row of the personal balance ranking.
type UserEntry struct {
	UserID   snowflake.ID `json:"user_id"`
	Username string       `json:"username"`
	Balance  int64        `json:"balance"`
}

type Service struct {
	factions repositories.FactionRepository
	users    repositories.UserRepository
	cache    *cache.ReadThrough
}

func NewService(factions repositories.FactionRepository, users repositories.UserRepository, rt *cache.ReadThrough) *Service {
	return &Service{
		factions: factions,
		users:    users,
		cache:    rt,
	}
}

// Factions returns the guild's factions ranked by XP descending. Disbanded
// factions are excluded. The snapshot is cached per guild.
func (s *Service) Factions(ctx context.Context, guildID snowflake.ID, limit int) ([]FactionEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	key := fmt.Sprintf("leaderboard:factions:%s", guildID)
	raw, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		entries, err := s.computeFactions(ctx, guildID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entries)
	})
	if err != nil {
		return nil, err
	}

	var entries []FactionEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode faction leaderboard: %w", err)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) computeFactions(ctx context.Context, guildID snowflake.ID) ([]FactionEntry, error) {
	factions, err := s.factions.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild factions: %w", err)
	}

	entries := make([]FactionEntry, 0, len(factions))
	for _, f := range factions {
		if f.Disbanded {
			continue
		}
		entries = append(entries, FactionEntry{
			FactionID: f.ID,
			Name:      f.Name,
			Level:     f.Level,
			XP:        f.XP,
			Treasury:  f.Treasury,
			Members:   f.MemberCount(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].FactionID < entries[j].FactionID
	})
	return entries, nil
}

// RichestUsers returns the top personal balances across the whole bot.
func (s *Service) RichestUsers(ctx context.Context, limit int) ([]UserEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	key := fmt.Sprintf("leaderboard:users:%d", limit)
	raw, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		users, err := s.users.TopBalances(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list top balances: %w", err)
		}
		entries := make([]UserEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, UserEntry{
				UserID:   u.ID,
				Username: u.Username,
				Balance:  u.Balance,
			})
		}
		return json.Marshal(entries)
	})
	if err != nil {
		return nil, err
	}

	var entries []UserEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode user leaderboard: %w", err)
	}
	return entries, nil
}

// CoinRateMultiplier returns the effective coin multiplier shown next to a
// faction's leaderboard row, 1.0 when no boost is running.
func CoinRateMultiplier(f *models.Faction, now time.Time) float64 {
	if f.Effect == nil || f.Effect.Kind != models.EffectCoinRate || !f.Effect.ActiveAt(now) {
		return 1.0
	}
	if f.Effect.Multiplier <= 0 {
		return 1.0
	}
	return f.Effect.Multiplier
}
