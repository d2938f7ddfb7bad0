// Package main is the entry point of PancyMod. It wires every subsystem and
// runs until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PancyStudios/PancyMod/internal/bridge"
	"github.com/PancyStudios/PancyMod/internal/commands"
	"github.com/PancyStudios/PancyMod/internal/commands/mod"
	"github.com/PancyStudios/PancyMod/internal/events"
	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/config"
	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	apperrors "github.com/PancyStudios/PancyMod/pkg/errors"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/metrics"
	"github.com/PancyStudios/PancyMod/pkg/mqtt"
	"github.com/PancyStudios/PancyMod/pkg/web"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if cfg == nil {
		fmt.Printf("Error cargando la configuración: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	if err != nil {
		logger.Warn(err.Error(), "Config")
	}
	logger.System(fmt.Sprintf("Iniciando PancyMod %s (%s)...", config.Version, config.BuildTime), "Main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apperrors.Init(cfg.ErrorWebhook, stop)

	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error conectando a la base de datos: %v", err), "Main")
	}
	defer func() {
		if err := db.Disconnect(); err != nil {
			logger.Warn(fmt.Sprintf("Error desconectando la base de datos: %v", err), "Main")
		}
	}()
	database.InitGlobalDataManagers(db)

	store := database.NewPunishmentStore(db)
	configs := database.NewGuildConfigService(nil)
	registry, m := metrics.NewRegistry()

	mqttClientID := "pancymod"
	if !cfg.IsProd() {
		mqttClientID = "pancymod_canary"
	}
	broker := mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
	defer broker.Destroy()
	if err := bridge.New(store).Register(broker); err != nil {
		logger.Warn(err.Error(), "Main")
	}

	client, err := discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el cliente de Discord: %v", err), "Main")
		os.Exit(1)
	}

	deps := &punish.Deps{
		Store:           store,
		Platform:        punish.NewSessionPlatform(client.Session),
		Notifier:        broker,
		Metrics:         m,
		WarningLifetime: cfg.WarningLifetime,
	}
	locks := punish.NewLockRegistry(m)
	manager := punish.NewManager(deps, configs, locks, punish.Options{
		FlowTimeout:   cfg.FlowTimeout,
		DialogTimeout: cfg.DialogTimeout,
		AllowPeers:    cfg.AllowPeers,
	})
	watcher := punish.NewWatcher(deps, configs, locks, cfg.ExpiryInterval)

	server, err := web.Init(web.Options{
		WebhookURL:   cfg.LogsWebServerHook,
		AllowedHosts: cfg.AllowedHosts,
	})
	if err != nil {
		logger.Critical(err.Error(), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(server, &web.API{
		Cases:    store,
		Flows:    manager,
		DB:       db,
		Configs:  configs,
		Bot:      client,
		Gatherer: registry,
	})

	commands.RegisterAll(client, mod.Deps{
		Punish:  manager,
		Cases:   store,
		Configs: configs,
	}, manager, db, configs)
	events.RegisterAll(client, events.Deps{Flows: manager, Watcher: watcher})

	if err := client.Start(ctx); err != nil {
		logger.Critical(fmt.Sprintf("Error iniciando el cliente de Discord: %v", err), "Main")
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, cfg.Port) })
	g.Go(func() error { return watcher.Run(gctx) })

	logger.Success("PancyMod iniciado correctamente!", "Main")

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("Tarea en segundo plano detenida: %v", err), "Main")
	}

	logger.System("Apagando PancyMod...", "Main")
	manager.Shutdown()
	if err := client.Stop(); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
	}
}
