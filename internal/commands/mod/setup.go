package mod

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// setupCommand creates the /mod setup subcommand
func (h *handlers) setupCommand() *discord.Command {
	return discord.NewCommand(
		"setup",
		"Configura la moderación del servidor",
		"mod",
		h.setupHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "rol-carcel",
			Description: "Rol que se asigna a los usuarios encarcelados",
		},
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "canal-carcel",
			Description:  "Canal visible para los encarcelados",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "canal-registros",
			Description:  "Canal donde se publican las sanciones",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "secuestro",
			Description: "Ofrecer la variante de secuestro de la cárcel",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "reiniciar",
			Description: "Borra la configuración actual antes de aplicar el resto de opciones",
		},
	).InGuild().
		WithUserPermissions(discordgo.PermissionManageGuild).
		RequiresDatabase()
}

// setupInput holds the options given to /mod setup. Empty strings and a nil
// Kidnap mean "leave as is".
type setupInput struct {
	Reset       bool
	JailRole    string
	JailChannel string
	LogChannel  string
	Kidnap      *bool
}

func (in setupInput) empty() bool {
	return !in.Reset && in.JailRole == "" && in.JailChannel == "" && in.LogChannel == "" && in.Kidnap == nil
}

// applySetup stores every given option and returns a line per change. A
// reset runs before the other options.
func applySetup(store ConfigStore, guildID string, in setupInput) ([]string, error) {
	var changes []string
	if in.Reset {
		if err := store.Reset(guildID); err != nil {
			return changes, err
		}
		changes = append(changes, "♻️ Configuración restablecida")
	}
	if in.JailRole != "" {
		if err := store.SetJailRole(guildID, in.JailRole); err != nil {
			return changes, err
		}
		changes = append(changes, fmt.Sprintf("🔒 Rol de cárcel: <@&%s>", in.JailRole))
	}
	if in.JailChannel != "" {
		if err := store.SetJailChannel(guildID, in.JailChannel); err != nil {
			return changes, err
		}
		changes = append(changes, fmt.Sprintf("🏚️ Canal de cárcel: <#%s>", in.JailChannel))
	}
	if in.LogChannel != "" {
		if err := store.SetLogChannel(guildID, in.LogChannel); err != nil {
			return changes, err
		}
		changes = append(changes, fmt.Sprintf("📝 Canal de registros: <#%s>", in.LogChannel))
	}
	if in.Kidnap != nil {
		if err := store.SetKidnapEnabled(guildID, *in.Kidnap); err != nil {
			return changes, err
		}
		changes = append(changes, fmt.Sprintf("🥷 Secuestro: %s", onOff(*in.Kidnap)))
	}
	return changes, nil
}

func onOff(b bool) string {
	if b {
		return "activado"
	}
	return "desactivado"
}

func mention(prefix, id string) string {
	if id == "" {
		return "Sin configurar"
	}
	return prefix + id + ">"
}

func configEmbed(cfg *models.GuildConfig) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⚙️ - Configuración de moderación",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rol de cárcel", Value: mention("<@&", cfg.JailRole), Inline: true},
			{Name: "Canal de cárcel", Value: mention("<#", cfg.JailChannel), Inline: true},
			{Name: "Canal de registros", Value: mention("<#", cfg.LogChannel), Inline: true},
			{Name: "Secuestro", Value: onOff(cfg.KidnapEnabled), Inline: true},
		},
		Footer: footer(),
	}
}

func (h *handlers) setupHandler(ctx *discord.CommandContext) error {
	in := setupInput{
		JailRole:    optionID(ctx, "rol-carcel"),
		JailChannel: optionID(ctx, "canal-carcel"),
		LogChannel:  optionID(ctx, "canal-registros"),
	}
	if opt := ctx.GetOption("secuestro"); opt != nil {
		v := opt.BoolValue()
		in.Kidnap = &v
	}
	if opt := ctx.GetOption("reiniciar"); opt != nil {
		in.Reset = opt.BoolValue()
	}
	guildID := ctx.Interaction.GuildID

	if in.empty() {
		cfg, err := h.deps.Configs.Get(guildID)
		if err != nil {
			logger.Error(fmt.Sprintf("Error leyendo configuración de %s: %v", guildID, err), "CMD-Setup")
			return ctx.ReplyEphemeral(storeMessage(err))
		}
		return ctx.ReplyEphemeralEmbed(configEmbed(cfg))
	}

	changes, err := applySetup(h.deps.Configs, guildID, in)
	if err != nil {
		logger.Error(fmt.Sprintf("Error guardando configuración de %s: %v", guildID, err), "CMD-Setup")
		return ctx.ReplyEphemeral(storeMessage(err))
	}
	return ctx.ReplyEphemeralEmbed(&discordgo.MessageEmbed{
		Title:       "✅ Configuración actualizada",
		Description: strings.Join(changes, "\n"),
		Color:       colorSuccess,
		Footer:      footer(),
	})
}
