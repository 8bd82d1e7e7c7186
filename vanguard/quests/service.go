package quests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/notifier"
)

type Config struct {
	// TierCeilings maps member counts to difficulty tiers: a faction lands
	// in the first tier whose ceiling covers its member count, and in the
	// top tier beyond the last ceiling.
	TierCeilings      []int `toml:"tier_ceilings"`
	AcceptWindowHours int   `toml:"accept_window_hours"`
	CooldownHours     int   `toml:"cooldown_hours"`
}

func DefaultConfig() Config {
	return Config{
		TierCeilings:      []int{5, 12},
		AcceptWindowHours: 24,
		CooldownHours:     12,
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if len(c.TierCeilings) == 0 {
		c.TierCeilings = def.TierCeilings
	}
	if c.AcceptWindowHours == 0 {
		c.AcceptWindowHours = def.AcceptWindowHours
	}
	if c.CooldownHours == 0 {
		c.CooldownHours = def.CooldownHours
	}
	return c
}

// Service drives the quest lifecycle: template administration, assignment,
// the offered/active transitions and the scheduler-facing deadline sweeps.
// Contribution tracking and rewards live in tracker.go.
type Service struct {
	quests    repositories.QuestRepository
	factions  repositories.FactionRepository
	cooldowns repositories.CooldownRepository
	users     repositories.UserRepository
	economy   *economy.Service
	notify    notifier.Notifier
	cfg       Config
}

func NewService(
	quests repositories.QuestRepository,
	factions repositories.FactionRepository,
	cooldowns repositories.CooldownRepository,
	users repositories.UserRepository,
	econ *economy.Service,
	notify notifier.Notifier,
	cfg Config,
) *Service {
	return &Service{
		quests:    quests,
		factions:  factions,
		cooldowns: cooldowns,
		users:     users,
		economy:   econ,
		notify:    notify,
		cfg:       cfg.WithDefaults(),
	}
}

// CreateTemplate registers an admin-authored quest template. Instances
// snapshot every field at assignment time, so editing or deleting a
// template never touches in-flight quests.
func (s *Service) CreateTemplate(ctx context.Context, tmpl *models.Quest) error {
	if _, ok := specFor(tmpl.Type); !ok {
		return ErrUnknownQuestType
	}
	if tmpl.BaseGoal <= 0 || tmpl.Duration <= 0 {
		return ErrInvalidTemplate
	}
	if tmpl.ID == "" {
		tmpl.ID = snowflake.New(time.Now()).String()
	}
	if tmpl.AcceptWindow <= 0 {
		tmpl.AcceptWindow = time.Duration(s.cfg.AcceptWindowHours) * time.Hour
	}
	return s.quests.CreateTemplate(ctx, tmpl)
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.quests.DeleteTemplate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context) ([]*models.Quest, error) {
	return s.quests.ListTemplates(ctx)
}

// OfferQuest assigns a quest to a faction: random template unless
// templateID pins one (the admin path). The faction must have no current
// quest and no active cooldown.
func (s *Service) OfferQuest(ctx context.Context, factionID, templateID string) (*models.Quest, error) {
	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return nil, err
	}
	if faction.Disbanded {
		return nil, economy.ErrFactionDisbanded
	}

	current, err := s.quests.GetCurrentForFaction(ctx, factionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up current quest: %w", err)
	}
	if current != nil {
		return nil, ErrQuestInProgress
	}

	cooldown, err := s.cooldowns.Get(ctx, factionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cooldown: %w", err)
	}
	if cooldown != nil {
		return nil, ErrOnCooldown
	}

	var tmpl *models.Quest
	if templateID != "" {
		tmpl, err = s.quests.GetTemplate(ctx, templateID)
	} else {
		tmpl, err = s.quests.RandomTemplate(ctx)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoTemplates
		}
		return nil, err
	}

	quest, err := s.instantiate(tmpl, faction)
	if err != nil {
		return nil, err
	}
	if err := s.quests.Create(ctx, quest); err != nil {
		return nil, err
	}

	spec, _ := specFor(quest.Type)
	s.notify.FactionEmbed(ctx, faction.ChannelID, notifier.Embed{
		Title:       "📜 New Quest Offered",
		Description: fmt.Sprintf("**%s** — %s", quest.Name, quest.Description),
		Fields: []notifier.EmbedField{
			{Name: "Goal", Value: spec.formatValue(quest.Goal)},
			{Name: "Tier", Value: fmt.Sprintf("%d", quest.Tier)},
			{Name: "Accept before", Value: quest.AcceptDeadline.UTC().Format(time.RFC1123)},
		},
	})

	slog.Info("Quest offered",
		slog.String("quest_id", quest.ID),
		slog.String("faction_id", factionID),
		slog.String("quest_type", string(quest.Type)),
		slog.Int("tier", quest.Tier))
	return quest, nil
}

// instantiate snapshots a template into a faction-owned offered instance,
// scaling the goal for the faction's difficulty tier.
func (s *Service) instantiate(tmpl *models.Quest, faction *models.Faction) (*models.Quest, error) {
	spec, ok := specFor(tmpl.Type)
	if !ok {
		return nil, ErrUnknownQuestType
	}

	now := time.Now()
	tier := s.tierFor(faction.MemberCount())
	quest := &models.Quest{
		ID:             snowflake.New(now).String(),
		TemplateID:     tmpl.ID,
		FactionID:      faction.ID,
		Type:           tmpl.Type,
		Name:           tmpl.Name,
		Description:    tmpl.Description,
		Tier:           tier,
		BaseGoal:       tmpl.BaseGoal,
		Goal:           spec.scaleGoal(tmpl.BaseGoal, tier),
		Duration:       tmpl.Duration,
		AcceptWindow:   tmpl.AcceptWindow,
		Rewards:        tmpl.Rewards,
		Status:         models.QuestStatusOffered,
		OfferedAt:      now,
		AcceptDeadline: now.Add(tmpl.AcceptWindow),
		Contributions:  map[string]int64{},
	}
	return quest, nil
}

// tierFor maps member count to a difficulty tier via the configured
// ceilings.
func (s *Service) tierFor(memberCount int) int {
	for i, ceiling := range s.cfg.TierCeilings {
		if memberCount <= ceiling {
			return i + 1
		}
	}
	return len(s.cfg.TierCeilings) + 1
}

// Accept moves the faction's offered quest to active. Only an officer or
// the owner may accept, and only before the acceptance deadline; the actual
// transition is a conditional write so a racing expiry sweep cannot be
// overridden.
func (s *Service) Accept(ctx context.Context, factionID string, userID snowflake.ID) (*models.Quest, error) {
	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return nil, err
	}
	if !faction.IsOfficer(userID) {
		return nil, ErrNotAnOfficer
	}

	quest, err := s.quests.GetCurrentForFaction(ctx, factionID)
	if err != nil {
		return nil, err
	}
	if quest == nil || quest.Status != models.QuestStatusOffered {
		return nil, ErrQuestNotOffered
	}

	now := time.Now()
	if !now.Before(quest.AcceptDeadline) {
		return nil, ErrAcceptWindowClosed
	}

	deadline := now.Add(quest.Duration)
	won, err := s.quests.MarkAccepted(ctx, quest.ID, now, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to accept quest: %w", err)
	}
	if !won {
		return nil, ErrQuestNotOffered
	}

	quest.Status = models.QuestStatusActive
	quest.AcceptedAt = now
	quest.Deadline = deadline

	s.notify.FactionEmbed(ctx, faction.ChannelID, notifier.Embed{
		Title:       "⚔️ Quest Accepted",
		Description: fmt.Sprintf("**%s** is underway! Complete it before %s.", quest.Name, deadline.UTC().Format(time.RFC1123)),
	})
	slog.Info("Quest accepted",
		slog.String("quest_id", quest.ID),
		slog.String("faction_id", factionID),
		slog.String("user_id", userID.String()))
	return quest, nil
}

// Reject declines the offered quest and puts the faction on cooldown.
func (s *Service) Reject(ctx context.Context, factionID string, userID snowflake.ID) error {
	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return err
	}
	if !faction.IsOfficer(userID) {
		return ErrNotAnOfficer
	}

	quest, err := s.quests.GetCurrentForFaction(ctx, factionID)
	if err != nil {
		return err
	}
	if quest == nil || quest.Status != models.QuestStatusOffered {
		return ErrQuestNotOffered
	}

	won, err := s.quests.MarkStatus(ctx, quest.ID, models.QuestStatusOffered, models.QuestStatusRejected)
	if err != nil {
		return fmt.Errorf("failed to reject quest: %w", err)
	}
	if !won {
		return ErrQuestNotOffered
	}

	s.putCooldown(ctx, factionID)
	s.notify.FactionMessage(ctx, faction.ChannelID,
		fmt.Sprintf("Quest **%s** was declined. A new quest will be offered after the cooldown.", quest.Name))
	slog.Info("Quest rejected",
		slog.String("quest_id", quest.ID),
		slog.String("faction_id", factionID),
		slog.String("user_id", userID.String()))
	return nil
}

// Cancel administratively forces a non-terminal quest to expired. No
// cooldown is applied; the cancellation is an operator action, not a
// faction decision.
func (s *Service) Cancel(ctx context.Context, questID string) error {
	won, err := s.quests.CancelNonTerminal(ctx, questID)
	if err != nil {
		return fmt.Errorf("failed to cancel quest: %w", err)
	}
	if !won {
		return ErrQuestTerminal
	}
	slog.Info("Quest cancelled", slog.String("quest_id", questID))
	return nil
}

func (s *Service) ClearCooldown(ctx context.Context, factionID string) error {
	return s.cooldowns.Clear(ctx, factionID)
}

// ExpireOverdueOffers is the scheduler sweep for offers whose acceptance
// deadline elapsed. Each expiry is an independent conditional transition;
// one quest's failure never aborts the sweep.
func (s *Service) ExpireOverdueOffers(ctx context.Context, now time.Time) error {
	overdue, err := s.quests.ListOfferDeadlineElapsed(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list overdue offers: %w", err)
	}

	for _, quest := range overdue {
		won, err := s.quests.MarkStatus(ctx, quest.ID, models.QuestStatusOffered, models.QuestStatusExpired)
		if err != nil {
			slog.Error("Failed to expire quest offer",
				slog.String("type", "sched"),
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
			continue
		}
		if !won {
			continue
		}

		s.putCooldown(ctx, quest.FactionID)
		if faction, ferr := s.factions.GetByID(ctx, quest.FactionID); ferr == nil {
			s.notify.FactionMessage(ctx, faction.ChannelID,
				fmt.Sprintf("Quest **%s** expired unaccepted.", quest.Name))
		}
		slog.Info("Quest offer expired",
			slog.String("type", "sched"),
			slog.String("quest_id", quest.ID),
			slog.String("faction_id", quest.FactionID))
	}
	return nil
}

// FailOverdueQuests is the scheduler sweep for active quests whose deadline
// elapsed before the goal was reached.
func (s *Service) FailOverdueQuests(ctx context.Context, now time.Time) error {
	overdue, err := s.quests.ListDeadlineElapsed(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list overdue quests: %w", err)
	}

	for _, quest := range overdue {
		won, err := s.quests.MarkStatus(ctx, quest.ID, models.QuestStatusActive, models.QuestStatusFailed)
		if err != nil {
			slog.Error("Failed to fail overdue quest",
				slog.String("type", "sched"),
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
			continue
		}
		if !won {
			// A contribution completed it between the listing and here.
			continue
		}

		if faction, ferr := s.factions.GetByID(ctx, quest.FactionID); ferr == nil {
			s.notify.FactionEmbed(ctx, faction.ChannelID, notifier.Embed{
				Title:       "💀 Quest Failed",
				Description: fmt.Sprintf("**%s** ended at %s.", quest.Name, FormatProgress(quest)),
			})
		}
		slog.Info("Quest failed on deadline",
			slog.String("type", "sched"),
			slog.String("quest_id", quest.ID),
			slog.String("faction_id", quest.FactionID))
	}
	return nil
}

func (s *Service) putCooldown(ctx context.Context, factionID string) {
	expiry := time.Now().Add(time.Duration(s.cfg.CooldownHours) * time.Hour)
	if err := s.cooldowns.Put(ctx, factionID, expiry); err != nil {
		slog.Error("Failed to set quest cooldown",
			slog.String("faction_id", factionID),
			slog.Any("error", err))
	}
}
