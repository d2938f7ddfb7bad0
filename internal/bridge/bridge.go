// Package bridge answers moderation queries that other PancyStudios services
// send over MQTT.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/PancyStudios/PancyMod/pkg/mqtt"
	"github.com/goccy/go-json"
)

const (
	TopicCase  = "punishments/case"
	TopicStats = "punishments/stats"

	queryTimeout = 5 * time.Second
)

var ErrMissingGuild = errors.New("guild_id es obligatorio")

// CaseReader is the read side of the punishment store
type CaseReader interface {
	FindCase(ctx context.Context, guildID, caseID string) (*models.Punishment, error)
	Statistics(ctx context.Context, guildID, moderatorID string) (*models.ModerationStats, error)
}

// Registrar subscribes request handlers; *mqtt.MqttCommunicator implements it
type Registrar interface {
	On(requestTopic string, callback mqtt.RequestHandler) error
}

type caseQuery struct {
	GuildID string `json:"guild_id"`
	CaseID  string `json:"case_id"`
}

type statsQuery struct {
	GuildID     string `json:"guild_id"`
	ModeratorID string `json:"moderator_id"`
}

// Handlers serves the punishment request topics
type Handlers struct {
	cases CaseReader
}

func New(cases CaseReader) *Handlers {
	return &Handlers{cases: cases}
}

// Register subscribes every topic on r
func (h *Handlers) Register(r Registrar) error {
	for topic, fn := range map[string]mqtt.RequestHandler{
		TopicCase:  h.Case,
		TopicStats: h.Stats,
	} {
		if err := r.On(topic, fn); err != nil {
			return fmt.Errorf("registrar %s: %w", topic, err)
		}
	}
	logger.System("Consultas de sanciones disponibles por MQTT", "MQTT")
	return nil
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return ErrMissingGuild
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}
	return nil
}

// Case returns one case of a guild
func (h *Handlers) Case(payload json.RawMessage) (interface{}, error) {
	var q caseQuery
	if err := decode(payload, &q); err != nil {
		return nil, err
	}
	if q.GuildID == "" {
		return nil, ErrMissingGuild
	}
	if q.CaseID == "" {
		return nil, errors.New("case_id es obligatorio")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	p, err := h.cases.FindCase(ctx, q.GuildID, q.CaseID)
	if errors.Is(err, database.ErrCaseNotFound) {
		return nil, fmt.Errorf("el caso %s no existe", q.CaseID)
	}
	return p, err
}

// Stats returns the moderation counters of a guild, optionally of one moderator
func (h *Handlers) Stats(payload json.RawMessage) (interface{}, error) {
	var q statsQuery
	if err := decode(payload, &q); err != nil {
		return nil, err
	}
	if q.GuildID == "" {
		return nil, ErrMissingGuild
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return h.cases.Statistics(ctx, q.GuildID, q.ModeratorID)
}
