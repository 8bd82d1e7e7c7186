package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/logger"
	"github.com/vanguardbot/vanguard/vanguard/utils"
)

func FactionHandler(b *vanguard.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		sub := ""
		if data.SubCommandName != nil {
			sub = *data.SubCommandName
		}

		start := time.Now()
		var err error
		switch sub {
		case "create":
			err = factionCreate(ctx, b, e, data.String("name"))
		case "join":
			err = factionJoin(ctx, b, e, data.String("name"))
		case "leave":
			err = factionLeave(ctx, b, e)
		case "promote":
			err = factionPromote(ctx, b, e)
		case "disband":
			err = factionDisband(ctx, b, e)
		case "info":
			err = factionInfo(ctx, b, e)
		default:
			return replyError(e, "Unknown subcommand.")
		}
		logger.LogCommand("faction "+sub, time.Since(start), err)
		return err
	}
}

func factionCreate(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 48 {
		return replyError(e, "Faction names must be 1 to 48 characters.")
	}
	if e.GuildID() == nil {
		return replyError(e, "Factions can only be created inside a server.")
	}

	faction, err := b.EconomyService.CreateFaction(ctx, *e.GuildID(), e.User().ID, name)
	if err != nil {
		slog.Error("Faction creation failed",
			slog.String("type", "cmd"),
			slog.String("name", "faction create"),
			slog.Any("error", err))
		return replyError(e, friendlyError(err))
	}

	return replySuccess(e, "⚔️ Faction Founded",
		fmt.Sprintf("**%s** has been founded with a treasury of %d 🪙. Upkeep of %d 🪙 is due <t:%d:R>.",
			faction.Name, faction.Treasury, faction.UpkeepAmount, faction.NextUpkeepAt.Unix()))
}

func factionJoin(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent, name string) error {
	if e.GuildID() == nil {
		return replyError(e, "Factions can only be joined inside a server.")
	}

	faction, err := findFactionByName(ctx, b, *e.GuildID(), name)
	if err != nil {
		return replyError(e, friendlyError(err))
	}
	if faction == nil {
		return replyError(e, fmt.Sprintf("No faction named **%s** in this server.", name))
	}

	if err := b.EconomyService.Join(ctx, faction.ID, e.User().ID); err != nil {
		return replyError(e, friendlyError(err))
	}
	return replySuccess(e, "Welcome!", fmt.Sprintf("You joined **%s**.", faction.Name))
}

func factionLeave(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent) error {
	if err := b.EconomyService.Leave(ctx, e.User().ID); err != nil {
		return replyError(e, friendlyError(err))
	}
	return replySuccess(e, "Goodbye", "You left your faction.")
}

func factionPromote(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent) error {
	target := e.SlashCommandInteractionData().User("member")

	faction, err := b.FactionRepository.GetByMember(ctx, e.User().ID)
	if err != nil {
		return replyError(e, friendlyError(err))
	}

	if err := b.EconomyService.Promote(ctx, faction.ID, e.User().ID, target.ID); err != nil {
		return replyError(e, friendlyError(err))
	}
	return replySuccess(e, "Promoted", fmt.Sprintf("<@%s> is now an officer of **%s**.", target.ID, faction.Name))
}

func factionDisband(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent) error {
	faction, err := b.FactionRepository.GetByMember(ctx, e.User().ID)
	if err != nil {
		return replyError(e, friendlyError(err))
	}
	if faction.OwnerID != e.User().ID {
		return replyError(e, "Only the faction owner can disband it.")
	}

	if err := b.EconomyService.Disband(ctx, faction.ID, models.DisbandReasonManual); err != nil {
		slog.Error("Faction disband failed",
			slog.String("type", "cmd"),
			slog.String("name", "faction disband"),
			slog.Any("error", err))
		return replyError(e, friendlyError(err))
	}
	return replySuccess(e, "Disbanded", fmt.Sprintf("**%s** has been disbanded.", faction.Name))
}

func factionInfo(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent) error {
	faction, err := b.FactionRepository.GetByMember(ctx, e.User().ID)
	if err != nil {
		return replyError(e, friendlyError(err))
	}

	curve := b.EconomyService.Curve()
	fields := []discord.EmbedField{
		{Name: "Treasury", Value: fmt.Sprintf("%d 🪙", faction.Treasury)},
		{Name: "Level", Value: fmt.Sprintf("%d (%d XP to next)", faction.Level, curve.XPToNext(faction.XP))},
		{Name: "Members", Value: fmt.Sprintf("%d", faction.MemberCount())},
		{Name: "Next upkeep", Value: fmt.Sprintf("%d 🪙 <t:%d:R> (%d cycles of runway)",
			faction.UpkeepAmount, faction.NextUpkeepAt.Unix(), faction.RunwayCycles())},
	}
	if faction.Effect.ActiveAt(time.Now()) {
		fields = append(fields, discord.EmbedField{
			Name:  "Active effect",
			Value: describeEffect(faction.Effect),
		})
	}

	return replyEmbed(e, discord.Embed{
		Title:  fmt.Sprintf("⚔️ %s", faction.Name),
		Color:  utils.InfoColor,
		Fields: fields,
	})
}

func describeEffect(effect *models.FactionEffect) string {
	switch effect.Kind {
	case models.EffectCoinRate:
		return fmt.Sprintf("%.2gx coin rate until <t:%d:R>", effect.Multiplier, effect.ExpiresAt.Unix())
	case models.EffectUpkeepWaiver:
		return "Next upkeep waived"
	default:
		return string(effect.Kind)
	}
}

func findFactionByName(ctx context.Context, b *vanguard.Bot, guildID snowflake.ID, name string) (*models.Faction, error) {
	factions, err := b.FactionRepository.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, f := range factions {
		if !f.Disbanded && strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, nil
}
