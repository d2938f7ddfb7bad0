package events

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/discord"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// joinWindow separates real joins from the GuildCreate burst sent on connect
const joinWindow = 10 * time.Second

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(onGuildCreate)
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🛡️",
		Description: "Hola, soy **PancyMod**. Configura el servidor con `/mod setup` y sanciona con `/mod punish`.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "⚙️ Configuración",
				Value:  "Define el rol de cárcel y el canal de registros con `/mod setup`",
				Inline: true,
			},
			{
				Name:   "🔨 Sanciones",
				Value:  "Banea, expulsa, encarcela, aísla o advierte con `/mod punish`",
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 Developed by PancyStudio | PancyMod",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// onGuildCreate is called when the bot joins a server
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.JoinedAt.Before(time.Now().Add(-joinWindow)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")

	if g.SystemChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}
