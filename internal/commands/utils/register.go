// Package utils provides the /utils command group
package utils

import (
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/models"
)

// FlowLister reports the open punish menus. *punish.Manager implements it.
type FlowLister interface {
	OpenFlows() []models.FlowSummary
}

// DatabaseStatus is implemented by *database.Database
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// ConfigCache is implemented by *database.GuildConfigService
type ConfigCache interface {
	CachedGuilds() int
}

// RegisterUtilsCommands registers the /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, flows FlowLister, db DatabaseStatus, configs ConfigCache) {
	group := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		createPingCommand(),
		createStatusCommand(flows, db, configs),
	)
	client.CommandHandler.AddGlobalCommand(group)
}
