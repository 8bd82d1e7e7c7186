package notifier

import (
	"context"
	"log/slog"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

const embedColor = 0x2b2d31

// Discord posts through the disgo REST client.
type Discord struct {
	client bot.Client
}

func NewDiscord(client bot.Client) *Discord {
	return &Discord{client: client}
}

func (d *Discord) FactionMessage(ctx context.Context, channelID snowflake.ID, content string) {
	if channelID == 0 {
		return
	}
	_, err := d.client.Rest().CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		slog.Error("Failed to send faction message",
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

func (d *Discord) FactionEmbed(ctx context.Context, channelID snowflake.ID, embed Embed) {
	if channelID == 0 {
		return
	}
	builder := discord.NewEmbedBuilder().
		SetTitle(embed.Title).
		SetDescription(embed.Description)
	if embed.Color != 0 {
		builder.SetColor(embed.Color)
	} else {
		builder.SetColor(embedColor)
	}
	for _, f := range embed.Fields {
		builder.AddField(f.Name, f.Value, false)
	}

	_, err := d.client.Rest().CreateMessage(channelID, discord.MessageCreate{
		Embeds: []discord.Embed{builder.Build()},
	}, rest.WithCtx(ctx))
	if err != nil {
		slog.Error("Failed to send faction embed",
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

func (d *Discord) DirectMessage(ctx context.Context, userID snowflake.ID, content string) {
	dmChannel, err := d.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		slog.Error("Failed to create DM channel",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		return
	}

	_, err = d.client.Rest().CreateMessage(dmChannel.ID(), discord.NewMessageCreateBuilder().
		SetContent(content).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		slog.Error("Failed to send direct message",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}

func (d *Discord) CreateFactionChannel(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error) {
	channel, err := d.client.Rest().CreateGuildChannel(guildID, discord.GuildTextChannelCreate{
		Name: name,
	}, rest.WithCtx(ctx))
	if err != nil {
		return 0, err
	}
	return channel.ID(), nil
}

func (d *Discord) DeleteFactionChannel(ctx context.Context, channelID snowflake.ID) {
	if channelID == 0 {
		return
	}
	if err := d.client.Rest().DeleteChannel(channelID, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to delete faction channel",
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

func (d *Discord) CreateFactionRole(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error) {
	role, err := d.client.Rest().CreateRole(guildID, discord.RoleCreate{
		Name: name,
	}, rest.WithCtx(ctx))
	if err != nil {
		return 0, err
	}
	return role.ID, nil
}

func (d *Discord) DeleteFactionRole(ctx context.Context, guildID, roleID snowflake.ID) {
	if roleID == 0 {
		return
	}
	if err := d.client.Rest().DeleteRole(guildID, roleID, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to delete faction role",
			slog.String("role_id", roleID.String()),
			slog.Any("error", err))
	}
}

func (d *Discord) AssignRole(ctx context.Context, guildID, userID, roleID snowflake.ID) {
	if roleID == 0 {
		return
	}
	if err := d.client.Rest().AddMemberRole(guildID, userID, roleID, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to assign faction role",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}

func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID) {
	if roleID == 0 {
		return
	}
	if err := d.client.Rest().RemoveMemberRole(guildID, userID, roleID, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to remove faction role",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}
