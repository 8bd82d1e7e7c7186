// Package scheduler owns wall-clock time. A single fixed-interval ticker
// drives every time-gated transition: quest offer expiry, quest deadline
// failure, upkeep cycles, pending voice-XP conversion and fresh quest
// offers. Everything else in the bot runs request-triggered.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/quests"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	IntervalMinutes int `toml:"interval_minutes"`
	// Parallelism bounds how many factions are processed concurrently in
	// one tick. Factions share no mutable state, so this is safe to raise.
	Parallelism int `toml:"parallelism"`
}

func (c Config) WithDefaults() Config {
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 30
	}
	if c.Parallelism == 0 {
		c.Parallelism = 4
	}
	return c
}

type Scheduler struct {
	factions repositories.FactionRepository
	economy  *economy.Service
	quests   *quests.Service
	cfg      Config
}

func New(factions repositories.FactionRepository, econ *economy.Service, questSvc *quests.Service, cfg Config) *Scheduler {
	return &Scheduler{
		factions: factions,
		economy:  econ,
		quests:   questSvc,
		cfg:      cfg.WithDefaults(),
	}
}

// Run ticks until the context is cancelled. A tick also runs immediately at
// startup so transitions missed during downtime are caught up right away.
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one full pass. Failures are isolated per stage and per faction:
// a faction that errors is logged and skipped, never aborting the tick.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	now := start

	if err := s.quests.ExpireOverdueOffers(ctx, now); err != nil {
		slog.Error("Offer expiry sweep failed",
			slog.String("type", "sched"),
			slog.Any("error", err))
	}
	if err := s.quests.FailOverdueQuests(ctx, now); err != nil {
		slog.Error("Quest deadline sweep failed",
			slog.String("type", "sched"),
			slog.Any("error", err))
	}

	s.processUpkeep(ctx, now)
	s.sweepFactions(ctx)

	slog.Info("Scheduler tick complete",
		slog.String("type", "sched"),
		slog.Duration("took", time.Since(start)))
}

func (s *Scheduler) processUpkeep(ctx context.Context, now time.Time) {
	due, err := s.factions.ListDueUpkeep(ctx, now)
	if err != nil {
		slog.Error("Failed to list factions due for upkeep",
			slog.String("type", "sched"),
			slog.Any("error", err))
		return
	}
	if len(due) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, faction := range due {
		faction := faction
		g.Go(func() error {
			if err := s.economy.ProcessUpkeep(gctx, faction); err != nil {
				slog.Error("Upkeep processing failed",
					slog.String("type", "sched"),
					slog.String("faction_id", faction.ID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Upkeep pass complete",
		slog.String("type", "sched"),
		slog.Int("factions", len(due)))
}

// sweepFactions converts banked voice time and offers quests to factions
// that are idle (no current quest, no cooldown).
func (s *Scheduler) sweepFactions(ctx context.Context) {
	active, err := s.factions.ListActive(ctx)
	if err != nil {
		slog.Error("Failed to list active factions",
			slog.String("type", "sched"),
			slog.Any("error", err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, faction := range active {
		faction := faction
		g.Go(func() error {
			if err := s.economy.SweepPendingVC(gctx, faction); err != nil {
				slog.Error("Pending voice sweep failed",
					slog.String("type", "sched"),
					slog.String("faction_id", faction.ID),
					slog.Any("error", err))
			}

			if _, err := s.quests.OfferQuest(gctx, faction.ID, ""); err != nil && !benignOfferError(err) {
				slog.Error("Quest offer failed",
					slog.String("type", "sched"),
					slog.String("faction_id", faction.ID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// benignOfferError filters the offer outcomes that are normal for an
// unattended sweep: busy, cooling down, nothing to offer, or the faction
// disbanded between listing and processing.
func benignOfferError(err error) bool {
	return errors.Is(err, quests.ErrQuestInProgress) ||
		errors.Is(err, quests.ErrOnCooldown) ||
		errors.Is(err, quests.ErrNoTemplates) ||
		errors.Is(err, economy.ErrFactionDisbanded) ||
		errors.Is(err, repositories.ErrNotFound)
}
