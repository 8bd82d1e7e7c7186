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
	"github.com/vanguardbot/vanguard/vanguard/notifier"
)

// DepositListener is notified after every successful treasury deposit; the
// quest tracker implements it. Kept as a tiny interface so the economy
// engine does not depend on the quest engine.
type DepositListener interface {
	OnDeposit(ctx context.Context, factionID string, userID snowflake.ID, amount int64)
}

// Service owns every money- and XP-affecting faction mutation. The treasury
// and ledger are written only through here.
type Service struct {
	factions repositories.FactionRepository
	users    repositories.UserRepository
	notify   notifier.Notifier
	cfg      Config
	curve    LevelCurve

	onDeposit DepositListener
}

func NewService(factions repositories.FactionRepository, users repositories.UserRepository, notify notifier.Notifier, cfg Config) *Service {
	cfg = cfg.WithDefaults()
	return &Service{
		factions: factions,
		users:    users,
		notify:   notify,
		cfg:      cfg,
		curve:    LevelCurve{Base: cfg.XPBase, Rate: cfg.XPRate, MaxLevel: cfg.MaxLevel},
	}
}

// SetDepositListener wires the quest tracker in after construction; the two
// services reference each other, so one side is attached late.
func (s *Service) SetDepositListener(l DepositListener) {
	s.onDeposit = l
}

func (s *Service) Curve() LevelCurve {
	return s.curve
}

func (s *Service) CreateFaction(ctx context.Context, guildID, ownerID snowflake.ID, name string) (*models.Faction, error) {
	if _, err := s.factions.GetByMember(ctx, ownerID); err == nil {
		return nil, ErrAlreadyInFaction
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	now := time.Now()
	faction := &models.Faction{
		ID:           snowflake.New(now).String(),
		GuildID:      guildID,
		Name:         name,
		OwnerID:      ownerID,
		OfficerIDs:   []snowflake.ID{},
		MemberIDs:    []snowflake.ID{},
		Treasury:     s.cfg.StartingTreasury,
		UpkeepAmount: s.cfg.UpkeepAmount,
		NextUpkeepAt: now.Add(s.cfg.UpkeepCycle()),
		Level:        1,
		MemberHistory: []models.MemberRecord{
			{UserID: ownerID, JoinedAt: now},
		},
	}

	// Channel and role are platform resources, created best-effort; the
	// faction works without them.
	if channelID, err := s.notify.CreateFactionChannel(ctx, guildID, name); err != nil {
		slog.Error("Failed to create faction channel",
			slog.String("faction", name),
			slog.Any("error", err))
	} else {
		faction.ChannelID = channelID
	}
	if roleID, err := s.notify.CreateFactionRole(ctx, guildID, name); err != nil {
		slog.Error("Failed to create faction role",
			slog.String("faction", name),
			slog.Any("error", err))
	} else {
		faction.RoleID = roleID
	}

	if err := s.factions.Create(ctx, faction); err != nil {
		return nil, err
	}
	if err := s.users.SetFaction(ctx, ownerID, faction.ID); err != nil {
		slog.Error("Failed to set owner faction affiliation",
			slog.String("faction_id", faction.ID),
			slog.Any("error", err))
	}
	s.notify.AssignRole(ctx, guildID, ownerID, faction.RoleID)

	slog.Info("Faction created",
		slog.String("faction_id", faction.ID),
		slog.String("name", name),
		slog.String("owner_id", ownerID.String()))
	return faction, nil
}

func (s *Service) Join(ctx context.Context, factionID string, userID snowflake.ID) error {
	if _, err := s.factions.GetByMember(ctx, userID); err == nil {
		return ErrAlreadyInFaction
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return err
	}
	if faction.Disbanded {
		return ErrFactionDisbanded
	}
	if faction.MemberCount() >= s.cfg.MaxMembers {
		return ErrFactionFull
	}

	if err := s.factions.AddMember(ctx, factionID, userID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if err := s.users.SetFaction(ctx, userID, factionID); err != nil {
		slog.Error("Failed to set faction affiliation",
			slog.String("faction_id", factionID),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}

	s.notify.AssignRole(ctx, faction.GuildID, userID, faction.RoleID)
	s.notify.FactionMessage(ctx, faction.ChannelID,
		fmt.Sprintf("<@%s> joined the faction. Welcome!", userID))
	return nil
}

func (s *Service) Leave(ctx context.Context, userID snowflake.ID) error {
	faction, err := s.factions.GetByMember(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotAMember
		}
		return err
	}
	if faction.OwnerID == userID {
		return ErrOwnerCannotLeave
	}

	if err := s.factions.RemoveMember(ctx, faction.ID, userID, "left"); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if err := s.users.SetFaction(ctx, userID, ""); err != nil {
		slog.Error("Failed to clear faction affiliation",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}

	s.notify.RemoveRole(ctx, faction.GuildID, userID, faction.RoleID)
	s.notify.FactionMessage(ctx, faction.ChannelID,
		fmt.Sprintf("<@%s> left the faction.", userID))
	return nil
}

// Promote moves a regular member into the officer set. Only the owner may
// promote; owner, officers and members stay disjoint by construction.
func (s *Service) Promote(ctx context.Context, factionID string, actorID, userID snowflake.ID) error {
	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return err
	}
	if faction.Disbanded {
		return ErrFactionDisbanded
	}
	if faction.OwnerID != actorID {
		return ErrNotTheOwner
	}
	if !faction.IsMember(userID) || faction.IsOfficer(userID) {
		return ErrNotAMember
	}
	return s.factions.PromoteOfficer(ctx, factionID, userID)
}

// Disband is idempotent: the conditional MarkDisbanded write elects a single
// winner, and only the winner runs the cleanup side effects. The faction
// document is never deleted.
func (s *Service) Disband(ctx context.Context, factionID string, reason models.DisbandReason) error {
	faction, err := s.factions.GetByID(ctx, factionID)
	if err != nil {
		return err
	}

	now := time.Now()
	won, err := s.factions.MarkDisbanded(ctx, factionID, reason, now)
	if err != nil {
		return fmt.Errorf("failed to mark faction disbanded: %w", err)
	}
	if !won {
		return nil
	}

	if err := s.factions.FinalizeMemberHistory(ctx, factionID, now, string(reason)); err != nil {
		slog.Error("Failed to finalize member history",
			slog.String("faction_id", factionID),
			slog.Any("error", err))
	}

	members := faction.AllMemberIDs()
	if err := s.users.ClearFaction(ctx, members); err != nil {
		slog.Error("Failed to clear member affiliations",
			slog.String("faction_id", factionID),
			slog.Any("error", err))
	}

	s.notify.DeleteFactionChannel(ctx, faction.ChannelID)
	s.notify.DeleteFactionRole(ctx, faction.GuildID, faction.RoleID)

	msg := fmt.Sprintf("Your faction **%s** has been disbanded.", faction.Name)
	if reason == models.DisbandReasonUpkeepFailure {
		msg = fmt.Sprintf("Your faction **%s** could not pay its upkeep and has been dissolved.", faction.Name)
	}
	for _, member := range members {
		s.notify.DirectMessage(ctx, member, msg)
	}

	slog.Info("Faction disbanded",
		slog.String("faction_id", factionID),
		slog.String("reason", string(reason)),
		slog.Int("members", len(members)))
	return nil
}
