package discord

import (
	"errors"

	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/bwmarrin/discordgo"
)

var (
	ErrGuildOnly          = errors.New("command used outside a guild")
	ErrMissingPermissions = errors.New("member lacks the command permissions")
	ErrDatabaseOffline    = errors.New("database offline")
)

// GuardMessage is the ephemeral answer for a rejected command
func GuardMessage(err error) string {
	switch {
	case errors.Is(err, ErrGuildOnly):
		return "❌ Este comando solo puede usarse dentro de un servidor."
	case errors.Is(err, ErrMissingPermissions):
		return "❌ No tienes permisos para usar este comando."
	case errors.Is(err, ErrDatabaseOffline):
		return "❌ La base de datos no está disponible en este momento, intenta más tarde."
	default:
		return "❌ No se pudo ejecutar el comando."
	}
}

// guardCommand checks the static requirements of cmd. Administrators pass
// every permission check.
func guardCommand(cmd *Command, guildID string, member *discordgo.Member, dbOnline bool) error {
	if cmd.GuildOnly && (guildID == "" || member == nil) {
		return ErrGuildOnly
	}
	if cmd.UserPermissions != 0 {
		if member == nil {
			return ErrGuildOnly
		}
		if member.Permissions&discordgo.PermissionAdministrator == 0 &&
			member.Permissions&cmd.UserPermissions != cmd.UserPermissions {
			return ErrMissingPermissions
		}
	}
	if cmd.RequiresDB && !dbOnline {
		return ErrDatabaseOffline
	}
	return nil
}

func (c *ExtendedClient) checkGuards(cmd *Command, ctx *CommandContext) error {
	db := database.Get()
	return guardCommand(cmd, ctx.Interaction.GuildID, ctx.Member(), db != nil && db.Connected())
}
