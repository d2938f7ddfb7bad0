package punish

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Store is the persistence used by strategies and the expiry watcher.
// *database.PunishmentStore implements it.
type Store interface {
	Create(ctx context.Context, p *models.Punishment) (string, error)
	FindActive(ctx context.Context, guildID, userID string, kind models.PunishmentKind, now int64) (*models.Punishment, error)
	RevokeActive(ctx context.Context, guildID, userID string, kind models.PunishmentKind, now int64) (bool, error)
	ListExpired(ctx context.Context, kind models.PunishmentKind, now int64) ([]models.Punishment, error)
	Invalidate(ctx context.Context, guildID, caseID string, hide bool) error
}

// GuildConfigs looks up per-guild settings
type GuildConfigs interface {
	Get(guildID string) (*models.GuildConfig, error)
}

// Notifier publishes punishment events to other services. Failures are logged
// by the caller and never abort an action.
type Notifier interface {
	PublishPunishment(event string, p *models.Punishment) error
}

// Platform performs enforcement on the chat platform
type Platform interface {
	BotID() string
	GuildName(guildID string) string

	// Member returns nil, nil when the user is not in the guild
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Authority(ctx context.Context, guildID string, m *discordgo.Member) (Authority, error)

	IsBanned(ctx context.Context, guildID, userID string) (bool, error)
	Ban(ctx context.Context, guildID, userID, reason string) error
	Unban(ctx context.Context, guildID, userID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	// Timeout clears the timeout when until is nil
	Timeout(ctx context.Context, guildID, userID string, until *time.Time, reason string) error

	DirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// Responder answers the interaction that produced an input
type Responder interface {
	// Show creates or replaces the menu message
	Show(ctx context.Context, v View) error
	// Prompt opens a dialog. It must be the first answer to the interaction.
	Prompt(ctx context.Context, d Dialog) error
	// Notify sends an ephemeral text only the actor sees
	Notify(ctx context.Context, text string) error
	// Defer acknowledges the interaction while slow work runs
	Defer(ctx context.Context) error
}
