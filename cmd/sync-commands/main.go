// Command sync-commands lists, cleans or re-syncs the slash commands of the bot.
//
// Usage:
//
//	go run ./cmd/sync-commands [-list | -clean] [-guild <id>]
//
// Without -list or -clean the current definitions overwrite the registered ones.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/PancyStudios/PancyMod/internal/commands"
	"github.com/PancyStudios/PancyMod/internal/commands/mod"
	"github.com/PancyStudios/PancyMod/pkg/config"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

type noFlows struct{}

func (noFlows) OpenFlows() []models.FlowSummary { return nil }

type noDB struct{}

func (noDB) GetStatus() (string, bool) { return "Desconectado", false }

func main() {
	list := flag.Bool("list", false, "List all registered commands")
	clean := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	flag.Parse()

	cfg, err := config.Load()
	if cfg == nil {
		fmt.Printf("Error cargando la configuración: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", "SyncCommands")

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el cliente de Discord: %v", err), "SyncCommands")
		os.Exit(1)
	}
	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error conectando a Discord: %v", err), "SyncCommands")
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Conectado a Discord", "SyncCommands")

	commands.RegisterAll(client, mod.Deps{}, noFlows{}, noDB{}, nil)

	switch {
	case *list:
		listCommands(client, *guildID)
	case *clean:
		overwrite(client, *guildID, nil, "🧹 Eliminando todos los comandos...")
	default:
		global, dev := client.CommandHandler.Definitions()
		defs := global
		if *guildID != "" {
			defs = dev
		}
		overwrite(client, *guildID, defs, "🔄 Sincronizando comandos...")
	}
}

func scope(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "del servidor " + guildID
}

func listCommands(client *discord.ExtendedClient, guildID string) {
	cmds, err := client.CommandHandler.List(guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos %s: %v", scope(guildID), err), "SyncCommands")
		return
	}
	if len(cmds) == 0 {
		logger.Info("No hay comandos "+scope(guildID)+" registrados", "SyncCommands")
		return
	}

	logger.Info(fmt.Sprintf("Comandos %s encontrados: %d", scope(guildID), len(cmds)), "SyncCommands")
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), "SyncCommands")
	}
}

func overwrite(client *discord.ExtendedClient, guildID string, defs []*discordgo.ApplicationCommand, banner string) {
	logger.Info(banner, "SyncCommands")

	created, err := client.CommandHandler.Overwrite(guildID, defs)
	if err != nil {
		logger.Error(fmt.Sprintf("Error sobrescribiendo comandos %s: %v", scope(guildID), err), "SyncCommands")
		return
	}
	logger.Success(fmt.Sprintf("✅ %d comandos %s registrados", len(created), scope(guildID)), "SyncCommands")
}
