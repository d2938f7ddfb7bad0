package mod

import (
	"fmt"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// modstatsCommand creates the /mod modstats subcommand
func (h *handlers) modstatsCommand() *discord.Command {
	return discord.NewCommand(
		"modstats",
		"Estadísticas de moderación de un moderador",
		"mod",
		h.modstatsHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "moderador",
			Description: "Moderador a consultar (opcional)",
			Required:    false,
		},
	).InGuild().RequiresDatabase()
}

func statsEmbed(name string, s *models.ModerationStats) *discordgo.MessageEmbed {
	count := func(n int64) string { return fmt.Sprintf("%d", n) }
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📊 - Estadísticas de moderación de %s", name),
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🔨 Baneos", Value: count(s.Bans), Inline: true},
			{Name: "👢 Expulsiones", Value: count(s.Kicks), Inline: true},
			{Name: "🔒 Cárceles", Value: count(s.Jails), Inline: true},
			{Name: "🔇 Aislamientos", Value: count(s.Timeouts), Inline: true},
			{Name: "⚠️ Advertencias", Value: count(s.Warnings), Inline: true},
			{Name: "Total del moderador", Value: count(s.UserTotal), Inline: true},
			{Name: "Total del servidor", Value: count(s.GuildTotal)},
		},
		Footer: footer(),
	}
}

func (h *handlers) modstatsHandler(ctx *discord.CommandContext) error {
	if issuerLevel(ctx) < punish.LevelJunior {
		return ctx.ReplyEphemeral("❌ " + punish.UserMessage(punish.ErrNotModerator))
	}
	moderator := ctx.GetUserOption("moderador")
	if moderator == nil {
		moderator = ctx.User()
	}

	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	c, cancel := opContext(ctx)
	defer cancel()

	stats, err := h.deps.Cases.Statistics(c, ctx.Interaction.GuildID, moderator.ID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error DB Modstats: %v", err), "CMD-Modstats")
		return ctx.EditReply(storeMessage(err))
	}
	return ctx.EditReplyEmbed(statsEmbed(moderator.Username, stats))
}
