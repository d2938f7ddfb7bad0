package mod

import (
	"fmt"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// punishCommand creates the /mod punish subcommand
func (h *handlers) punishCommand() *discord.Command {
	return discord.NewCommand(
		"punish",
		"Abre el menú de sanciones para un usuario",
		"mod",
		h.punishHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario a sancionar",
			Required:    true,
		},
	).InGuild().RequiresDatabase()
}

func (h *handlers) punishHandler(ctx *discord.CommandContext) error {
	c, cancel := opContext(ctx)
	defer cancel()

	r := punish.NewInteractionResponder(ctx.Session, ctx.Interaction.Interaction)
	err := h.deps.Punish.Start(c, punish.StartRequest{
		GuildID:   ctx.Interaction.GuildID,
		ChannelID: ctx.Interaction.ChannelID,
		Issuer:    ctx.Member(),
		Target:    ctx.GetUserOption("usuario"),
	}, r)
	if err == nil {
		return nil
	}

	msg := punish.UserMessage(err)
	if nerr := r.Notify(c, msg); nerr != nil {
		logger.Warn(fmt.Sprintf("No se pudo avisar del rechazo: %v", nerr), "CMD-Punish")
	}
	if msg == punish.GenericFailure {
		return err
	}
	return nil
}
