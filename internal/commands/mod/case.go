package mod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// caseCommand creates the /mod case subcommand
func (h *handlers) caseCommand() *discord.Command {
	return discord.NewCommand(
		"case",
		"Muestra un caso o actualiza su razón",
		"mod",
		h.caseHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "id",
			Description: "ID del caso",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Nueva razón del caso",
			Required:    false,
			MaxLength:   512,
		},
	).InGuild().RequiresDatabase()
}

// updateCase replaces the reason when one is given and returns the case
func updateCase(ctx context.Context, cases CaseStore, guildID, caseID, reason string) (*models.Punishment, error) {
	if reason = strings.TrimSpace(reason); reason != "" {
		if err := cases.UpdateReason(ctx, guildID, caseID, reason); err != nil {
			return nil, err
		}
	}
	return cases.FindCase(ctx, guildID, caseID)
}

func caseEmbed(p *models.Punishment, now time.Time) *discordgo.MessageEmbed {
	color := colorInfo
	if p.IsActive(now.Unix()) {
		color = colorWarn
	}
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📁 - Caso %s", p.ID),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tipo", Value: kindLabel(p.Kind), Inline: true},
			{Name: "Usuario", Value: fmt.Sprintf("%s (<@%s>)", p.UserName, p.UserID), Inline: true},
			{Name: "Moderador", Value: fmt.Sprintf("%s (<@%s>)", p.ModeratorName, p.ModeratorID), Inline: true},
			{Name: "Razón", Value: p.Reason},
			{Name: "Emitido", Value: fmt.Sprintf("<t:%d:F>", p.DateIssued), Inline: true},
			{Name: "Estado", Value: expiryText(p, now.Unix()), Inline: true},
		},
		Footer: footer(),
	}
}

func (h *handlers) caseHandler(ctx *discord.CommandContext) error {
	if issuerLevel(ctx) < punish.LevelJunior {
		return ctx.ReplyEphemeral("❌ " + punish.UserMessage(punish.ErrNotModerator))
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	c, cancel := opContext(ctx)
	defer cancel()

	p, err := updateCase(c, h.deps.Cases, ctx.Interaction.GuildID, strings.TrimSpace(ctx.GetStringOption("id")), ctx.GetStringOption("razon"))
	if err != nil {
		logger.Debug(fmt.Sprintf("Caso no disponible: %v", err), "CMD-Case")
		return ctx.EditReply(storeMessage(err))
	}
	return ctx.EditReplyEmbed(caseEmbed(p, h.now()))
}
