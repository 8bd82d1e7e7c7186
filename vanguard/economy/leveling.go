package economy

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/notifier"
)

const msPerHour = int64(60 * 60 * 1000)

// LevelCurve is the geometric XP curve: the requirement to advance from
// level L to L+1 is floor(Base * Rate^(L-1)), up to MaxLevel.
type LevelCurve struct {
	Base     float64
	Rate     float64
	MaxLevel int
}

// Requirement returns the XP needed to advance from level to level+1.
func (c LevelCurve) Requirement(level int) int64 {
	if level < 1 || level >= c.MaxLevel {
		return 0
	}
	return int64(math.Floor(c.Base * math.Pow(c.Rate, float64(level-1))))
}

// XPForLevel returns the cumulative XP needed to reach level.
func (c LevelCurve) XPForLevel(level int) int64 {
	if level > c.MaxLevel {
		level = c.MaxLevel
	}
	var total int64
	for l := 1; l < level; l++ {
		total += c.Requirement(l)
	}
	return total
}

// LevelForXP returns the level reached with xp total XP.
func (c LevelCurve) LevelForXP(xp int64) int {
	level := 1
	var cumulative int64
	for level < c.MaxLevel {
		cumulative += c.Requirement(level)
		if xp < cumulative {
			break
		}
		level++
	}
	return level
}

// XPToNext returns the XP still missing to the next level, 0 at the cap.
func (c LevelCurve) XPToNext(xp int64) int64 {
	level := c.LevelForXP(xp)
	if level >= c.MaxLevel {
		return 0
	}
	return c.XPForLevel(level+1) - xp
}

// AddXP atomically increments the faction's XP and then recomputes the
// cached level from the post-increment total. The level write is a separate
// conditional update, not a CAS with the increment: concurrent grants can
// compute the level from a stale total, but since the level is always
// derived from XP the next grant heals any lag. XP itself is never lost.
func (s *Service) AddXP(ctx context.Context, factionID string, amount int64, source string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	xp, err := s.factions.IncrementXP(ctx, factionID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}

	level := s.curve.LevelForXP(xp)
	leveled, err := s.factions.SetLevelIfGreater(ctx, factionID, level)
	if err != nil {
		slog.Error("Failed to update faction level",
			slog.String("faction_id", factionID),
			slog.Int("level", level),
			slog.Any("error", err))
		return xp, nil
	}

	if leveled {
		faction, gerr := s.factions.GetByID(ctx, factionID)
		if gerr == nil {
			s.notify.FactionEmbed(ctx, faction.ChannelID, levelUpEmbed(faction.Name, level))
		}
		slog.Info("Faction leveled up",
			slog.String("faction_id", factionID),
			slog.Int("level", level),
			slog.String("source", source))
	}
	return xp, nil
}

// AddVoiceTime banks raw voice-presence milliseconds into the faction's
// pending accumulator. Conversion to XP happens in SweepPendingVC, which
// amortizes XP writes from one per presence tick to one per accrued hour.
func (s *Service) AddVoiceTime(ctx context.Context, factionID string, durationMs int64) error {
	if durationMs <= 0 {
		return ErrInvalidAmount
	}
	return s.factions.AddPendingVC(ctx, factionID, durationMs)
}

// SweepPendingVC converts whole banked hours into XP at the configured
// per-hour rate, retaining the sub-hour remainder for the next sweep. The
// drain is conditional, so a concurrent sweep of the same faction converts
// the time at most once.
func (s *Service) SweepPendingVC(ctx context.Context, faction *models.Faction) error {
	hours := faction.PendingVCMs / msPerHour
	if hours <= 0 {
		return nil
	}

	drained, err := s.factions.DrainPendingVC(ctx, faction.ID, hours*msPerHour)
	if err != nil {
		return fmt.Errorf("failed to drain pending voice time: %w", err)
	}
	if !drained {
		return nil
	}

	if _, err := s.AddXP(ctx, faction.ID, hours*s.cfg.XPPerVoiceHour, "voice"); err != nil {
		return err
	}
	slog.Debug("Converted pending voice time",
		slog.String("faction_id", faction.ID),
		slog.Int64("hours", hours))
	return nil
}

func levelUpEmbed(name string, level int) notifier.Embed {
	return notifier.Embed{
		Title:       "🎖️ Level Up!",
		Description: fmt.Sprintf("**%s** reached level **%d**!", name, level),
	}
}
