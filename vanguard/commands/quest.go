package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/vanguardbot/vanguard/vanguard"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/logger"
	"github.com/vanguardbot/vanguard/vanguard/quests"
	"github.com/vanguardbot/vanguard/vanguard/utils"
)

func QuestHandler(b *vanguard.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		faction, err := b.FactionRepository.GetByMember(ctx, e.User().ID)
		if err != nil {
			return replyError(e, friendlyError(err))
		}

		data := e.SlashCommandInteractionData()
		sub := ""
		if data.SubCommandName != nil {
			sub = *data.SubCommandName
		}

		start := time.Now()
		switch sub {
		case "accept":
			err = questAccept(ctx, b, e, faction.ID)
		case "reject":
			err = questReject(ctx, b, e, faction.ID)
		case "status":
			err = questStatus(ctx, b, e, faction.ID)
		default:
			return replyError(e, "Unknown subcommand.")
		}
		logger.LogCommand("quest "+sub, time.Since(start), err)
		return err
	}
}

func questAccept(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent, factionID string) error {
	quest, err := b.QuestService.Accept(ctx, factionID, e.User().ID)
	if err != nil {
		return replyError(e, friendlyError(err))
	}
	return replySuccess(e, "📜 Quest Accepted",
		fmt.Sprintf("**%s** is now active. Goal: %s. Deadline <t:%d:R>.",
			quest.Name, quests.FormatProgress(quest), quest.Deadline.Unix()))
}

func questReject(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent, factionID string) error {
	if err := b.QuestService.Reject(ctx, factionID, e.User().ID); err != nil {
		return replyError(e, friendlyError(err))
	}
	return replySuccess(e, "Quest Rejected",
		"The offer was declined. A cooldown applies before the next offer.")
}

func questStatus(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent, factionID string) error {
	quest, err := b.QuestRepository.GetCurrentForFaction(ctx, factionID)
	if err != nil {
		return replyError(e, friendlyError(err))
	}
	if quest == nil {
		return replyEmbed(e, discord.Embed{
			Title:       "📜 No Current Quest",
			Description: "Your faction has no quest right now. The next offer arrives with the scheduler.",
			Color:       utils.InfoColor,
		})
	}

	fields := []discord.EmbedField{
		{Name: "Progress", Value: quests.FormatProgress(quest)},
	}
	switch quest.Status {
	case models.QuestStatusOffered:
		fields = append(fields, discord.EmbedField{
			Name:  "Accept by",
			Value: fmt.Sprintf("<t:%d:R>", quest.AcceptDeadline.Unix()),
		})
	case models.QuestStatusActive:
		fields = append(fields, discord.EmbedField{
			Name:  "Deadline",
			Value: fmt.Sprintf("<t:%d:R>", quest.Deadline.Unix()),
		})
	}

	return replyEmbed(e, discord.Embed{
		Title:       fmt.Sprintf("📜 %s (%s)", quest.Name, quest.Status),
		Description: quest.Description,
		Color:       utils.InfoColor,
		Fields:      fields,
	})
}
