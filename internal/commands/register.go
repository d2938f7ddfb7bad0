// Package commands registers every command group of the bot
package commands

import (
	"github.com/PancyStudios/PancyMod/internal/commands/mod"
	"github.com/PancyStudios/PancyMod/internal/commands/utils"
	"github.com/PancyStudios/PancyMod/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, modDeps mod.Deps, flows utils.FlowLister, db utils.DatabaseStatus, configs utils.ConfigCache) {
	utils.RegisterUtilsCommands(client, flows, db, configs)
	mod.RegisterModCommands(client, modDeps)
}
