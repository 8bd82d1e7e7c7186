package commands

import (
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/quests"
	"github.com/vanguardbot/vanguard/vanguard/utils"
)

func replyEmbed(e *handler.CommandEvent, embed discord.Embed) error {
	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
}

func replySuccess(e *handler.CommandEvent, title, description string) error {
	return replyEmbed(e, discord.Embed{
		Title:       title,
		Description: description,
		Color:       utils.SuccessColor,
	})
}

func replyError(e *handler.CommandEvent, description string) error {
	return replyEmbed(e, discord.Embed{
		Title:       "Error",
		Description: description,
		Color:       utils.ErrorColor,
	})
}

// friendlyError maps service sentinels to user-facing text. Unknown errors
// get a generic message; the caller logs the real one.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return "Faction not found."
	case errors.Is(err, repositories.ErrInsufficientBalance):
		return "You don't have enough coins."
	case errors.Is(err, repositories.ErrInsufficientTreasury):
		return "The faction treasury can't cover that."
	case errors.Is(err, economy.ErrInvalidAmount):
		return "The amount must be positive."
	case errors.Is(err, economy.ErrNotAMember):
		return "You're not in a faction."
	case errors.Is(err, economy.ErrNotTheOwner):
		return "Only the faction owner can do that."
	case errors.Is(err, economy.ErrAlreadyInFaction):
		return "You're already in a faction."
	case errors.Is(err, economy.ErrFactionFull):
		return "That faction is full."
	case errors.Is(err, economy.ErrFactionDisbanded):
		return "That faction has been disbanded."
	case errors.Is(err, economy.ErrOwnerCannotLeave):
		return "The owner can't leave; disband or transfer ownership first."
	case errors.Is(err, quests.ErrQuestInProgress):
		return "Your faction already has a quest underway."
	case errors.Is(err, quests.ErrOnCooldown):
		return "Your faction is on quest cooldown."
	case errors.Is(err, quests.ErrQuestNotOffered):
		return "There's no offered quest to respond to."
	case errors.Is(err, quests.ErrAcceptWindowClosed):
		return "The acceptance window has closed."
	case errors.Is(err, quests.ErrNotAnOfficer):
		return "Only faction officers can do that."
	default:
		return "Something went wrong. Please try again later."
	}
}
