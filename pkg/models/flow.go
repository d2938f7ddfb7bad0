package models

import "time"

// FlowSummary describe un menú de sanción abierto
type FlowSummary struct {
	ID       string    `json:"id"`
	GuildID  string    `json:"guild_id"`
	TargetID string    `json:"target_id"`
	IssuerID string    `json:"issuer_id"`
	Created  time.Time `json:"created"`
	Deadline time.Time `json:"deadline"`
}
