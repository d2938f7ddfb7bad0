package mod

import (
	"fmt"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// modlogsCommand creates the /mod modlogs subcommand
func (h *handlers) modlogsCommand() *discord.Command {
	return discord.NewCommand(
		"modlogs",
		"Historial de sanciones de un usuario",
		"mod",
		h.modlogsHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "[STAFF] Usuario a buscar (opcional)",
			Required:    false,
		},
	).InGuild().RequiresDatabase()
}

func (h *handlers) modlogsHandler(ctx *discord.CommandContext) error {
	target := ctx.GetUserOption("usuario")
	if target == nil {
		target = ctx.User()
	}
	level := issuerLevel(ctx)
	if !canViewOthers(level, target.ID == ctx.User().ID) {
		return ctx.ReplyEphemeral("❌ No tienes permisos para ver el historial de otro usuario.")
	}

	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	c, cancel := opContext(ctx)
	defer cancel()

	cases, err := h.deps.Cases.ListCases(c, ctx.Interaction.GuildID, target.ID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error DB Modlogs: %v", err), "CMD-Modlogs")
		return ctx.EditReply(storeMessage(err))
	}

	title := fmt.Sprintf("📚 - Historial de %s", target.Username)
	return ctx.EditReplyEmbed(caseListEmbed(title, cases, level >= punish.LevelJunior, h.now()))
}
