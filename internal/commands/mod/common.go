package mod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const (
	footerText     = "💫 - Developed by PancyStudios"
	commandTimeout = 10 * time.Second

	colorInfo    = 0x3498db
	colorSuccess = 0x00FF00
	colorWarn    = 0xFFA500

	maxDescription = 4000
	maxChoices     = 25
	maxChoiceName  = 100
)

var kindLabels = map[models.PunishmentKind]string{
	models.KindBan:     "Baneo",
	models.KindKick:    "Expulsión",
	models.KindJail:    "Cárcel",
	models.KindTimeout: "Aislamiento",
	models.KindWarning: "Advertencia",
}

func kindLabel(k models.PunishmentKind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// expiryText describes when a case ends relative to now (epoch seconds)
func expiryText(p *models.Punishment, now int64) string {
	switch {
	case p.IsRevoked():
		return "Revocada"
	case p.IsPermanent():
		return "Permanente"
	case p.DateExpires <= now:
		return fmt.Sprintf("Expiró <t:%d:R>", p.DateExpires)
	default:
		return fmt.Sprintf("Expira <t:%d:R>", p.DateExpires)
	}
}

// caseLine is one entry of a case listing
func caseLine(p *models.Punishment, showModerator bool, now int64) string {
	mod := "Oculto"
	if showModerator {
		mod = fmt.Sprintf("<@%s>", p.ModeratorID)
	}
	return fmt.Sprintf("> **%s** `%s` <t:%d:d>\n> **Razón:** %s\n> **Moderador:** %s\n> **Estado:** %s\n",
		kindLabel(p.Kind), p.ID, p.DateIssued, p.Reason, mod, expiryText(p, now))
}

// joinLimited joins lines until the description limit and notes what was cut
func joinLimited(lines []string, limit int) string {
	var b strings.Builder
	for i, line := range lines {
		more := fmt.Sprintf("\n*... y %d más*", len(lines)-i)
		if b.Len()+len(line)+1+len(more) > limit {
			b.WriteString(more)
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func footer() *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: footerText}
}

// issuerLevel is the moderator tier of whoever ran the command
func issuerLevel(ctx *discord.CommandContext) punish.ModLevel {
	m := ctx.Member()
	if m == nil {
		return punish.LevelNone
	}
	return punish.LevelFromPermissions(m.Permissions)
}

// optionID returns the raw snowflake of a user, role or channel option
func optionID(ctx *discord.CommandContext, name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	id, _ := opt.Value.(string)
	return id
}

func opContext(ctx *discord.CommandContext) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Context(), commandTimeout)
}

// storeMessage is the answer for a failed store call
func storeMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrCaseNotFound):
		return "❌ No se encontró un caso con ese ID."
	case errors.Is(err, database.ErrStoreUnavailable):
		return "❌ La base de datos no está disponible en este momento."
	default:
		return "❌ Error al consultar la base de datos."
	}
}
