package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/discord"
	apperrors "github.com/PancyStudios/PancyMod/pkg/errors"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const routeTimeout = 10 * time.Second

// RegisterInteractionEvents routes punish components and dialogs to flows
func RegisterInteractionEvents(client *discord.ExtendedClient, flows FlowRouter) {
	client.OnComponent(punish.CustomIDPrefix, flowHandler(flows, func(s *discordgo.Session, i *discordgo.Interaction) punish.Responder {
		return punish.NewInteractionResponder(s, i)
	}))
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// dialogValue returns the text typed into a punish dialog
func dialogValue(data discordgo.ModalSubmitInteractionData) string {
	for _, c := range data.Components {
		var row []discordgo.MessageComponent
		switch r := c.(type) {
		case *discordgo.ActionsRow:
			row = r.Components
		case discordgo.ActionsRow:
			row = r.Components
		}
		for _, inner := range row {
			switch input := inner.(type) {
			case *discordgo.TextInput:
				if input.CustomID == punish.DialogInputID {
					return input.Value
				}
			case discordgo.TextInput:
				if input.CustomID == punish.DialogInputID {
					return input.Value
				}
			}
		}
	}
	return ""
}

func flowHandler(flows FlowRouter, responder func(*discordgo.Session, *discordgo.Interaction) punish.Responder) discord.ComponentFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		defer apperrors.RecoverMiddleware()()

		user := interactionUser(i.Interaction)
		if user == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
		defer cancel()

		r := responder(s, i.Interaction)
		var err error
		switch i.Type {
		case discordgo.InteractionMessageComponent:
			err = flows.HandleComponent(ctx, user.ID, i.MessageComponentData().CustomID, r)
		case discordgo.InteractionModalSubmit:
			data := i.ModalSubmitData()
			err = flows.HandleDialog(ctx, user.ID, data.CustomID, dialogValue(data), r)
		}
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo responder a la interacción de %s: %v", user.ID, err), "Interaction")
		}
	}
}
