package mod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

var errNotUserWarning = errors.New("case is not a warning of this user")

// invalidateWarningCommand creates the /mod invalidate-warning subcommand
func (h *handlers) invalidateWarningCommand() *discord.Command {
	return discord.NewCommand(
		"invalidate-warning",
		"Invalida una advertencia específica de un usuario",
		"mod",
		h.invalidateWarningHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario del cual invalidar la advertencia",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "id",
			Description:  "ID de la advertencia",
			Required:     true,
			Autocomplete: true,
		},
	).InGuild().
		WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(h.invalidateWarningAutoComplete).
		RequiresDatabase()
}

// invalidateWarning expires and hides a warning of userID
func invalidateWarning(ctx context.Context, cases CaseStore, guildID, userID, caseID string) (*models.Punishment, error) {
	p, err := cases.FindCase(ctx, guildID, caseID)
	if err != nil {
		return nil, err
	}
	if p.Kind != models.KindWarning || p.UserID != userID || !p.Visible {
		return nil, errNotUserWarning
	}
	if err := cases.Invalidate(ctx, guildID, caseID, true); err != nil {
		return nil, err
	}
	return p, nil
}

// warningChoices builds the autocomplete entries for a user's warnings
func warningChoices(warnings []models.Punishment) []*discordgo.ApplicationCommandOptionChoice {
	n := len(warnings)
	if n > maxChoices {
		n = maxChoices
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, n)
	for _, w := range warnings[:n] {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("ID: %s - Razón: %s", w.ID, w.Reason), maxChoiceName),
			Value: w.ID,
		})
	}
	return choices
}

func (h *handlers) invalidateWarningHandler(ctx *discord.CommandContext) error {
	targetID := optionID(ctx, "usuario")
	warnID := ctx.GetStringOption("id")
	if targetID == "" || warnID == "" {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario y el ID de la advertencia.")
	}

	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	c, cancel := opContext(ctx)
	defer cancel()

	p, err := invalidateWarning(c, h.deps.Cases, ctx.Interaction.GuildID, targetID, warnID)
	switch {
	case errors.Is(err, errNotUserWarning), errors.Is(err, database.ErrCaseNotFound):
		return ctx.EditReply("❌ No se encontró una advertencia con ese ID para ese usuario.")
	case err != nil:
		logger.Error(fmt.Sprintf("Error invalidando advertencia %s: %v", warnID, err), "CMD-InvalidateWarning")
		return ctx.EditReply(storeMessage(err))
	}

	user := ctx.User()
	return ctx.EditReplyEmbed(&discordgo.MessageEmbed{
		Title:       "✅ Advertencia invalidada con éxito",
		Description: fmt.Sprintf("La advertencia de <@%s> ha sido invalidada.\n\n**Razón original:** %s\n**ID:** `%s`", p.UserID, p.Reason, p.ID),
		Color:       colorSuccess,
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Solicitado por %s", user.String()),
			IconURL: user.AvatarURL(""),
		},
		Timestamp: h.now().Format(time.RFC3339),
	})
}

// invalidateWarningAutoComplete suggests the visible warnings of the user
func (h *handlers) invalidateWarningAutoComplete(ctx *discord.CommandContext) {
	targetID := optionID(ctx, "usuario")
	if targetID == "" {
		_ = ctx.SendAutoCompleteChoices(nil)
		return
	}

	c, cancel := opContext(ctx)
	defer cancel()

	warnings, err := h.deps.Cases.ListWarnings(c, ctx.Interaction.GuildID, targetID, false, h.now().Unix())
	if err != nil {
		logger.Debug(fmt.Sprintf("Autocompletado sin datos: %v", err), "CMD-InvalidateWarning")
	}
	if err := ctx.SendAutoCompleteChoices(warningChoices(warnings)); err != nil {
		logger.Debug(fmt.Sprintf("Error enviando autocompletado: %v", err), "CMD-InvalidateWarning")
	}
}
