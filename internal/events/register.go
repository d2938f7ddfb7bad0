// Package events wires gateway events to the moderation core.
package events

import (
	"context"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// FlowRouter receives the button presses and dialogs of punish menus.
// *punish.Manager implements it.
type FlowRouter interface {
	HandleComponent(ctx context.Context, userID, customID string, r punish.Responder) error
	HandleDialog(ctx context.Context, userID, customID, value string, r punish.Responder) error
}

// MemberWatcher keeps punishment records in sync with changes made outside
// the bot. *punish.Watcher implements it.
type MemberWatcher interface {
	HandleMemberJoin(ctx context.Context, guildID string, member *discordgo.Member) error
	HandleUnban(ctx context.Context, guildID, userID string) error
	HandleRolesChanged(ctx context.Context, guildID string, before, member *discordgo.Member) error
}

// Deps are the handlers events are routed to
type Deps struct {
	Flows   FlowRouter
	Watcher MemberWatcher
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	RegisterReadyEvent(client)
	RegisterGuildEvents(client)
	RegisterInteractionEvents(client, deps.Flows)
	RegisterMemberEvents(client, deps.Watcher)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
