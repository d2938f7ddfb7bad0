package mod

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// warningsCommand creates the /mod warnings subcommand
func (h *handlers) warningsCommand() *discord.Command {
	return discord.NewCommand(
		"warnings",
		"Lista de advertencias de un usuario",
		"mod",
		h.warningsHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "[STAFF] Usuario a buscar (opcional)",
			Required:    false,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "activas",
			Description: "Mostrar solo las advertencias vigentes",
			Required:    false,
		},
	).InGuild().RequiresDatabase()
}

// canViewOthers reports whether the issuer may look at someone else's record
func canViewOthers(level punish.ModLevel, self bool) bool {
	return self || level >= punish.LevelJunior
}

func caseListEmbed(title string, cases []models.Punishment, showModerator bool, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  title,
		Footer: footer(),
	}
	if len(cases) == 0 {
		embed.Color = colorSuccess
		embed.Description = fmt.Sprintf("No se han encontrado registros en este servidor\n\n> 🕒 - **Fecha de consulta:** <t:%d>", now.Unix())
		return embed
	}

	lines := make([]string, 0, len(cases))
	for i := range cases {
		lines = append(lines, caseLine(&cases[i], showModerator, now.Unix()))
	}
	embed.Color = colorWarn
	embed.Description = joinLimited(lines, maxDescription-120) +
		fmt.Sprintf("\n\n> 💫 - **Cantidad:** %d\n> 🕒 - **Fecha de consulta:** <t:%d>", len(cases), now.Unix())
	return embed
}

func (h *handlers) warningsHandler(ctx *discord.CommandContext) error {
	target := ctx.GetUserOption("usuario")
	if target == nil {
		target = ctx.User()
	}
	level := issuerLevel(ctx)
	if !canViewOthers(level, target.ID == ctx.User().ID) {
		return ctx.ReplyEphemeral("❌ No tienes permisos para ver la lista de advertencias de otro usuario.")
	}

	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	c, cancel := opContext(ctx)
	defer cancel()

	now := h.now()
	warnings, err := h.deps.Cases.ListWarnings(c, ctx.Interaction.GuildID, target.ID, ctx.GetBoolOption("activas"), now.Unix())
	if err != nil {
		logger.Error(fmt.Sprintf("Error DB Warnings: %v", err), "CMD-Warnings")
		return ctx.EditReply(storeMessage(err))
	}

	title := fmt.Sprintf("🔖 - Lista de advertencias de %s", target.Username)
	return ctx.EditReplyEmbed(caseListEmbed(title, warnings, level >= punish.LevelJunior, now))
}
