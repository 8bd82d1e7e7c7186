package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
)

// Deposit moves amount from the actor's personal balance into the faction
// treasury and records a ledger entry. The two balances live in different
// documents, so this is a compensating transaction rather than an ACID one:
// if the treasury credit fails after the debit succeeded, the debit is
// rolled back; if the rollback itself fails, the incident is logged for
// manual reconciliation and the original error is returned.
func (s *Service) Deposit(ctx context.Context, factionID string, actorID snowflake.ID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return 0, err
	}
	if faction.Disbanded {
		return 0, ErrFactionDisbanded
	}
	if !faction.IsMember(actorID) {
		return 0, ErrNotAMember
	}

	if _, err := s.users.AdjustBalance(ctx, actorID, -amount); err != nil {
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("failed to debit user: %w", err)
	}

	balance, err := s.factions.IncrementTreasury(ctx, factionID, amount)
	if err != nil {
		if _, rerr := s.users.AdjustBalance(ctx, actorID, amount); rerr != nil {
			slog.Error("Compensating refund failed, balance requires manual reconciliation",
				slog.String("type", "error"),
				slog.String("faction_id", factionID),
				slog.String("user_id", actorID.String()),
				slog.Int64("amount", amount),
				slog.Any("error", rerr))
		}
		return 0, fmt.Errorf("failed to credit treasury: %w", err)
	}

	entry := models.LedgerEntry{
		ID:        snowflake.New(time.Now()).String(),
		ActorID:   actorID,
		Type:      models.LedgerEntryDeposit,
		Amount:    amount,
		Balance:   balance,
		CreatedAt: time.Now(),
	}
	if err := s.factions.AppendLedger(ctx, factionID, entry); err != nil {
		// The money already moved; the audit trail is best-effort.
		slog.Error("Failed to append ledger entry",
			slog.String("faction_id", factionID),
			slog.Any("error", err))
	}

	if s.onDeposit != nil {
		s.onDeposit.OnDeposit(ctx, factionID, actorID, amount)
	}
	return balance, nil
}

// ProcessUpkeep runs one due upkeep cycle for a faction: dissolve on
// insolvency, otherwise debit and advance the cycle. An upkeep waiver effect
// skips the debit once and still advances the cycle.
func (s *Service) ProcessUpkeep(ctx context.Context, faction *models.Faction) error {
	if faction.Disbanded {
		return nil
	}
	now := time.Now()

	if faction.Effect != nil && faction.Effect.Kind == models.EffectUpkeepWaiver {
		if err := s.factions.ClearEffect(ctx, faction.ID); err != nil {
			return fmt.Errorf("failed to consume upkeep waiver: %w", err)
		}
		if err := s.advanceUpkeep(ctx, faction, now); err != nil {
			return err
		}
		s.notify.FactionMessage(ctx, faction.ChannelID,
			fmt.Sprintf("Upkeep of %d was waived this cycle.", faction.UpkeepAmount))
		slog.Info("Upkeep waived",
			slog.String("faction_id", faction.ID))
		return nil
	}

	if faction.Treasury < faction.UpkeepAmount {
		return s.Disband(ctx, faction.ID, models.DisbandReasonUpkeepFailure)
	}

	balance, err := s.factions.IncrementTreasury(ctx, faction.ID, -faction.UpkeepAmount)
	if err != nil {
		if errors.Is(err, repositories.ErrInsufficientTreasury) {
			// The treasury shrank between the read and the debit.
			return s.Disband(ctx, faction.ID, models.DisbandReasonUpkeepFailure)
		}
		return fmt.Errorf("failed to debit upkeep: %w", err)
	}

	entry := models.LedgerEntry{
		ID:        snowflake.New(now).String(),
		Type:      models.LedgerEntryUpkeep,
		Amount:    -faction.UpkeepAmount,
		Balance:   balance,
		CreatedAt: now,
	}
	if err := s.factions.AppendLedger(ctx, faction.ID, entry); err != nil {
		slog.Error("Failed to append upkeep ledger entry",
			slog.String("faction_id", faction.ID),
			slog.Any("error", err))
	}

	if err := s.advanceUpkeep(ctx, faction, now); err != nil {
		return err
	}

	if runway := balance / faction.UpkeepAmount; runway <= s.cfg.LowRunwayCycles {
		s.notify.FactionMessage(ctx, faction.ChannelID,
			fmt.Sprintf("⚠️ Treasury is running low: %d left, covering %d more upkeep cycle(s). Deposit soon!",
				balance, runway))
	}

	slog.Info("Upkeep processed",
		slog.String("faction_id", faction.ID),
		slog.Int64("amount", faction.UpkeepAmount),
		slog.Int64("balance", balance))
	return nil
}

// advanceUpkeep moves the due date forward to the next cycle boundary after
// now, rolling over any cycles missed while the process was down.
func (s *Service) advanceUpkeep(ctx context.Context, faction *models.Faction, now time.Time) error {
	next := faction.NextUpkeepAt
	cycle := s.cfg.UpkeepCycle()
	for !next.After(now) {
		next = next.Add(cycle)
	}
	if err := s.factions.SetNextUpkeep(ctx, faction.ID, next); err != nil {
		return fmt.Errorf("failed to advance upkeep date: %w", err)
	}
	return nil
}

// UpkeepQuote returns the member-count-scaled upkeep shown by display
// helpers. Billing deliberately uses the flat per-faction amount fixed at
// creation; this quote is informational only.
func (s *Service) UpkeepQuote(memberCount int) int64 {
	if memberCount < 1 {
		memberCount = 1
	}
	return s.cfg.UpkeepAmount + int64(memberCount-1)*(s.cfg.UpkeepAmount/10)
}
