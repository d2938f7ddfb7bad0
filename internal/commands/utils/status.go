package utils

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/discord"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(flows FlowLister, db DatabaseStatus, configs ConfigCache) *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			cached := 0
			if configs != nil {
				cached = configs.CachedGuilds()
			}
			return ctx.Reply(statusText(db, len(flows.OpenFlows()), ctx.Client.GuildCount(), cached, time.Since(ctx.Client.StartTime)))
		},
	)
}

func statusText(db DatabaseStatus, openFlows, guilds, cachedConfigs int, uptime time.Duration) string {
	dbStatus, online := "Desconectado", false
	if db != nil {
		dbStatus, online = db.GetStatus()
	}
	dot := "🔴"
	if online {
		dot = "🟢"
	}
	return fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: 🟢 Online (%s)\n"+
			"• Base de datos: %s %s (%d configuraciones en caché)\n"+
			"• Servidores: %d\n"+
			"• Menús de sanción abiertos: %d",
		uptime.Round(time.Second), dot, dbStatus, cachedConfigs, guilds, openFlows,
	)
}
