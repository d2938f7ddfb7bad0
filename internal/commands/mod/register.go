// Package mod provides the /mod command group. Each subcommand lives in its
// own file.
package mod

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/models"
)

// PunishManager opens punish menus and applies suspensions.
// *punish.Manager implements it.
type PunishManager interface {
	Start(ctx context.Context, req punish.StartRequest, r punish.Responder) error
	Suspend(ctx context.Context, req punish.SuspendRequest) (*punish.Notice, error)
}

// CaseStore is the part of *database.PunishmentStore the commands use
type CaseStore interface {
	FindCase(ctx context.Context, guildID, caseID string) (*models.Punishment, error)
	ListCases(ctx context.Context, guildID, userID string) ([]models.Punishment, error)
	ListWarnings(ctx context.Context, guildID, userID string, activeOnly bool, now int64) ([]models.Punishment, error)
	UpdateReason(ctx context.Context, guildID, caseID, reason string) error
	Invalidate(ctx context.Context, guildID, caseID string, hide bool) error
	Statistics(ctx context.Context, guildID, moderatorID string) (*models.ModerationStats, error)
}

// ConfigStore is implemented by *database.GuildConfigService
type ConfigStore interface {
	Get(guildID string) (*models.GuildConfig, error)
	SetJailRole(guildID, roleID string) error
	SetJailChannel(guildID, channelID string) error
	SetLogChannel(guildID, channelID string) error
	SetKidnapEnabled(guildID string, enabled bool) error
	Reset(guildID string) error
}

// Deps are the services behind /mod
type Deps struct {
	Punish  PunishManager
	Cases   CaseStore
	Configs ConfigStore
	Now     func() time.Time
}

type handlers struct {
	deps Deps
}

func (h *handlers) now() time.Time {
	if h.deps.Now != nil {
		return h.deps.Now()
	}
	return time.Now()
}

// RegisterModCommands registers all moderation commands as /mod subcommands
func RegisterModCommands(client *discord.ExtendedClient, deps Deps) {
	h := &handlers{deps: deps}

	modGroup := client.CommandHandler.BuildCommandGroup(
		"mod",
		"Comandos de moderación",
		h.punishCommand(),
		h.suspendCommand(),
		h.caseCommand(),
		h.invalidateWarningCommand(),
		h.warningsCommand(),
		h.modlogsCommand(),
		h.modstatsCommand(),
		h.setupCommand(),
	)

	client.CommandHandler.AddGlobalCommand(modGroup)
}
