package mod

import (
	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// suspendCommand creates the /mod suspend subcommand
func (h *handlers) suspendCommand() *discord.Command {
	return discord.NewCommand(
		"suspend",
		"Suspende las comunicaciones de un usuario durante una semana",
		"mod",
		h.suspendHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario a suspender",
			Required:    true,
		},
	).InGuild().
		WithUserPermissions(discordgo.PermissionModerateMembers).
		WithBotPermissions(discordgo.PermissionModerateMembers).
		RequiresDatabase()
}

func (h *handlers) suspendHandler(ctx *discord.CommandContext) error {
	target := ctx.GetMemberOption("usuario")
	if target == nil {
		return ctx.ReplyEphemeral("❌ " + punish.UserMessage(punish.ErrNotMember))
	}

	if err := ctx.Defer(); err != nil {
		return err
	}

	c, cancel := opContext(ctx)
	defer cancel()

	notice, err := h.deps.Punish.Suspend(c, punish.SuspendRequest{
		GuildID:   ctx.Interaction.GuildID,
		ChannelID: ctx.Interaction.ChannelID,
		Issuer:    ctx.Member(),
		Target:    target,
	})
	if err != nil {
		msg := punish.UserMessage(err)
		if eerr := ctx.EditReply("❌ " + msg); eerr != nil {
			return eerr
		}
		if msg == punish.GenericFailure {
			return err
		}
		return nil
	}
	return ctx.EditReplyEmbed(notice.Public)
}
