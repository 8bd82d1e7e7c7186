package quests

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/notifier"
)

// Contribution tracking. Every qualifying domain event funnels through one
// of the Track methods: look up the faction's current quest, match the
// event against the quest type, bump both tallies atomically, then check
// for completion. Tracking is best-effort from the caller's perspective:
// a failed progress write must never fail the underlying economy operation,
// so errors are logged here and swallowed.

// OnDeposit implements economy.DepositListener.
func (s *Service) OnDeposit(ctx context.Context, factionID string, userID snowflake.ID, amount int64) {
	s.track(ctx, factionID, models.QuestTypeTreasuryDeposit, userID, amount)
}

// TrackVoiceTime records elapsed voice milliseconds against a voice-time
// quest.
func (s *Service) TrackVoiceTime(ctx context.Context, factionID string, userID snowflake.ID, durationMs int64) {
	s.track(ctx, factionID, models.QuestTypeVoiceTime, userID, durationMs)
}

// TrackParticipation counts a member toward a participation quest. Each
// member counts once; repeat events are no-ops.
func (s *Service) TrackParticipation(ctx context.Context, factionID string, userID snowflake.ID) {
	quest := s.matchingQuest(ctx, factionID, models.QuestTypeParticipation)
	if quest == nil {
		return
	}

	updated, err := s.quests.AddUniqueParticipant(ctx, quest.ID, userID)
	if err != nil {
		slog.Error("Failed to record quest participation",
			slog.String("quest_id", quest.ID),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		return
	}
	s.maybeComplete(ctx, updated)
}

func (s *Service) track(ctx context.Context, factionID string, questType models.QuestType, userID snowflake.ID, delta int64) {
	if delta <= 0 {
		return
	}
	quest := s.matchingQuest(ctx, factionID, questType)
	if quest == nil {
		return
	}

	updated, err := s.quests.AddContribution(ctx, quest.ID, userID, delta)
	if err != nil {
		slog.Error("Failed to record quest contribution",
			slog.String("quest_id", quest.ID),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		return
	}
	s.maybeComplete(ctx, updated)
}

// matchingQuest returns the faction's active quest when its type matches
// the event, nil otherwise.
func (s *Service) matchingQuest(ctx context.Context, factionID string, questType models.QuestType) *models.Quest {
	quest, err := s.quests.GetCurrentForFaction(ctx, factionID)
	if err != nil {
		slog.Error("Failed to look up current quest",
			slog.String("faction_id", factionID),
			slog.Any("error", err))
		return nil
	}
	if quest == nil || quest.Status != models.QuestStatusActive || quest.Type != questType {
		return nil
	}
	return quest
}

// maybeComplete checks the post-update progress and, when the goal is
// reached, races for the active→completed transition. Concurrent
// contributions can both observe progress >= goal, so the conditional
// transition elects exactly one winner and only the winner distributes
// rewards.
func (s *Service) maybeComplete(ctx context.Context, quest *models.Quest) {
	if quest == nil || !quest.GoalReached() {
		return
	}

	won, err := s.quests.MarkCompleted(ctx, quest.ID, time.Now())
	if err != nil {
		slog.Error("Failed to complete quest",
			slog.String("quest_id", quest.ID),
			slog.Any("error", err))
		return
	}
	if !won {
		return
	}

	// Contributions can land between our snapshot and the transition. Once
	// the status left active no further contribution write applies, so the
	// stored document is the definitive record to pay from.
	final, err := s.quests.GetByID(ctx, quest.ID)
	if err != nil {
		slog.Error("Failed to reload completed quest, paying from snapshot",
			slog.String("quest_id", quest.ID),
			slog.Any("error", err))
		final = quest
	}
	s.distributeRewards(ctx, final)
}

type rankedContributor struct {
	UserID snowflake.ID
	Amount int64
}

// rankContributors orders contributors by contribution descending, breaking
// ties by ID so payouts are deterministic.
func rankContributors(contributions map[string]int64) []rankedContributor {
	ranked := make([]rankedContributor, 0, len(contributions))
	for key, amount := range contributions {
		id, err := snowflake.Parse(key)
		if err != nil {
			continue
		}
		ranked = append(ranked, rankedContributor{UserID: id, Amount: amount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked
}

// distributeRewards pays the ranked top three their fixed rewards, everyone
// else the flat participation amount, credits the faction treasury and XP,
// and applies the optional bonus effect. Runs exactly once per quest since
// the caller holds the completion transition.
func (s *Service) distributeRewards(ctx context.Context, quest *models.Quest) {
	now := time.Now()
	ranked := rankContributors(quest.Contributions)

	for i, contributor := range ranked {
		var amount int64
		switch i {
		case 0:
			amount = quest.Rewards.First
		case 1:
			amount = quest.Rewards.Second
		case 2:
			amount = quest.Rewards.Third
		default:
			amount = quest.Rewards.Participation
		}
		if amount <= 0 {
			continue
		}

		balance, err := s.users.AdjustBalance(ctx, contributor.UserID, amount)
		if err != nil {
			slog.Error("Failed to pay quest reward",
				slog.String("quest_id", quest.ID),
				slog.String("user_id", contributor.UserID.String()),
				slog.Int64("amount", amount),
				slog.Any("error", err))
			continue
		}

		entry := models.LedgerEntry{
			ID:        snowflake.New(now).String(),
			ActorID:   contributor.UserID,
			Type:      models.LedgerEntryQuestReward,
			Amount:    amount,
			Balance:   balance,
			CreatedAt: now,
		}
		if err := s.factions.AppendLedger(ctx, quest.FactionID, entry); err != nil {
			slog.Error("Failed to append reward ledger entry",
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
		}
	}

	if quest.Rewards.Treasury > 0 {
		balance, err := s.factions.IncrementTreasury(ctx, quest.FactionID, quest.Rewards.Treasury)
		if err != nil {
			slog.Error("Failed to credit quest treasury bonus",
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
		} else {
			entry := models.LedgerEntry{
				ID:        snowflake.New(now).String(),
				Type:      models.LedgerEntryQuestBonus,
				Amount:    quest.Rewards.Treasury,
				Balance:   balance,
				CreatedAt: now,
			}
			if err := s.factions.AppendLedger(ctx, quest.FactionID, entry); err != nil {
				slog.Error("Failed to append bonus ledger entry",
					slog.String("quest_id", quest.ID),
					slog.Any("error", err))
			}
		}
	}

	if quest.Rewards.XP > 0 {
		if _, err := s.economy.AddXP(ctx, quest.FactionID, quest.Rewards.XP, "quest"); err != nil {
			slog.Error("Failed to grant quest XP",
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
		}
	}

	if quest.Rewards.Effect != "" {
		effect := &models.FactionEffect{
			Kind:       quest.Rewards.Effect,
			Multiplier: quest.Rewards.EffectMultiplier,
		}
		if quest.Rewards.EffectDuration > 0 {
			effect.ExpiresAt = now.Add(quest.Rewards.EffectDuration)
		}
		if err := s.factions.SetEffect(ctx, quest.FactionID, effect); err != nil {
			slog.Error("Failed to apply quest bonus effect",
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
		}
	}

	s.announceCompletion(ctx, quest, ranked)
	slog.Info("Quest completed, rewards distributed",
		slog.String("quest_id", quest.ID),
		slog.String("faction_id", quest.FactionID),
		slog.Int("contributors", len(ranked)))
}

func (s *Service) announceCompletion(ctx context.Context, quest *models.Quest, ranked []rankedContributor) {
	faction, err := s.factions.GetByID(ctx, quest.FactionID)
	if err != nil {
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	fields := make([]notifier.EmbedField, 0, 3)
	for i, contributor := range ranked {
		if i >= len(medals) {
			break
		}
		fields = append(fields, notifier.EmbedField{
			Name:  medals[i],
			Value: fmt.Sprintf("<@%s> — %d", contributor.UserID, contributor.Amount),
		})
	}

	s.notify.FactionEmbed(ctx, faction.ChannelID, notifier.Embed{
		Title:       "🏆 Quest Complete!",
		Description: fmt.Sprintf("**%s** finished at %s. Rewards have been paid out.", quest.Name, FormatProgress(quest)),
		Fields:      fields,
	})
}
