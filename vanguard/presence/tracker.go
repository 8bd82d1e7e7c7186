// Package presence bridges Discord voice activity into the economy. Voice
// gateway events carry join/leave timestamps; the bot reports the elapsed
// span here and the tracker fans it out to coin accrual, faction voice
// banking and quest progress.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/quests"
)

const msPerHour = int64(time.Hour / time.Millisecond)

type Config struct {
	CoinsPerVoiceHour int64 `toml:"coins_per_voice_hour"`
}

func (c Config) WithDefaults() Config {
	if c.CoinsPerVoiceHour == 0 {
		c.CoinsPerVoiceHour = 25
	}
	return c
}

// Tracker remembers when each user entered voice and settles the elapsed
// span when they leave or switch channels.
type Tracker struct {
	factions repositories.FactionRepository
	users    repositories.UserRepository
	economy  *economy.Service
	quests   *quests.Service
	cfg      Config

	mu       sync.Mutex
	sessions map[snowflake.ID]time.Time
}

func NewTracker(
	factions repositories.FactionRepository,
	users repositories.UserRepository,
	econ *economy.Service,
	questSvc *quests.Service,
	cfg Config,
) *Tracker {
	return &Tracker{
		factions: factions,
		users:    users,
		economy:  econ,
		quests:   questSvc,
		cfg:      cfg.WithDefaults(),
		sessions: make(map[snowflake.ID]time.Time),
	}
}

// VoiceJoin opens a session for the user. Joining while a session is open
// (channel hop) settles the old span first.
func (t *Tracker) VoiceJoin(ctx context.Context, userID snowflake.ID) {
	now := time.Now()
	t.mu.Lock()
	started, open := t.sessions[userID]
	t.sessions[userID] = now
	t.mu.Unlock()

	if open {
		t.settle(ctx, userID, now.Sub(started))
	}
}

// VoiceLeave closes the user's session and settles the elapsed span.
func (t *Tracker) VoiceLeave(ctx context.Context, userID snowflake.ID) {
	now := time.Now()
	t.mu.Lock()
	started, open := t.sessions[userID]
	delete(t.sessions, userID)
	t.mu.Unlock()

	if open {
		t.settle(ctx, userID, now.Sub(started))
	}
}

// Flush settles every open session without closing it, restarting each span
// from now. The scheduler calls this so long-running sessions accrue
// incrementally instead of in one lump at leave time.
func (t *Tracker) Flush(ctx context.Context) {
	now := time.Now()
	t.mu.Lock()
	spans := make(map[snowflake.ID]time.Duration, len(t.sessions))
	for userID, started := range t.sessions {
		spans[userID] = now.Sub(started)
		t.sessions[userID] = now
	}
	t.mu.Unlock()

	for userID, span := range spans {
		t.settle(ctx, userID, span)
	}
}

func (t *Tracker) settle(ctx context.Context, userID snowflake.ID, span time.Duration) {
	if err := t.ReportElapsedTime(ctx, userID, span.Milliseconds()); err != nil {
		slog.Error("Failed to settle voice session",
			slog.String("type", "presence"),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}

// ReportElapsedTime credits a span of voice activity: personal coins at the
// configured hourly rate (scaled by any active coin-rate faction effect),
// voice milliseconds banked toward faction XP, and progress on a running
// voice quest.
func (t *Tracker) ReportElapsedTime(ctx context.Context, userID snowflake.ID, durationMs int64) error {
	if durationMs <= 0 {
		return nil
	}

	faction, err := t.factions.GetByMember(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to resolve faction for voice credit: %w", err)
	}

	coins := t.coinAccrual(durationMs, faction)
	if coins > 0 {
		if _, err := t.users.AdjustBalance(ctx, userID, coins); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				// First credit for an unseen user. Create and retry once.
				if _, err := t.users.GetOrCreate(ctx, userID, ""); err != nil {
					return fmt.Errorf("failed to create user for voice credit: %w", err)
				}
				if _, err := t.users.AdjustBalance(ctx, userID, coins); err != nil {
					return fmt.Errorf("failed to credit voice coins: %w", err)
				}
			} else {
				return fmt.Errorf("failed to credit voice coins: %w", err)
			}
		}
	}

	if faction == nil {
		return nil
	}

	if err := t.economy.AddVoiceTime(ctx, faction.ID, durationMs); err != nil {
		return fmt.Errorf("failed to bank faction voice time: %w", err)
	}
	t.quests.TrackVoiceTime(ctx, faction.ID, userID, durationMs)
	return nil
}

// coinAccrual converts milliseconds to coins at the hourly rate, applying an
// active coin-rate effect. Sub-coin remainders are dropped.
func (t *Tracker) coinAccrual(durationMs int64, faction *models.Faction) int64 {
	rate := float64(t.cfg.CoinsPerVoiceHour)
	if faction != nil && faction.Effect != nil &&
		faction.Effect.Kind == models.EffectCoinRate &&
		faction.Effect.ActiveAt(time.Now()) &&
		faction.Effect.Multiplier > 0 {
		rate *= faction.Effect.Multiplier
	}
	return int64(math.Floor(rate * float64(durationMs) / float64(msPerHour)))
}
