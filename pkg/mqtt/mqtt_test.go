package mqtt

import (
	"errors"
	"testing"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestPunishmentTopic(t *testing.T) {
	if got := punishmentTopic("123", "issued"); got != "pancy/punishments/123/issued" {
		t.Errorf("punishmentTopic = %q", got)
	}
}

func TestHandleRequest(t *testing.T) {
	type query struct {
		GuildID string `json:"guild_id"`
	}
	echo := func(payload json.RawMessage) (interface{}, error) {
		var q query
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, err
		}
		if q.GuildID == "" {
			return nil, errors.New("guild_id requerido")
		}
		return q.GuildID, nil
	}

	tests := []struct {
		name      string
		body      string
		wantTopic string
		want      MqttResponse
		wantErr   bool
	}{
		{
			name:      "answer",
			body:      `{"correlationId":"abc","payload":{"guild_id":"g1"}}`,
			wantTopic: "pancy/response/punishments/case/abc",
			want:      MqttResponse{CorrelationID: "abc", Data: "g1"},
		},
		{
			name:      "handler error",
			body:      `{"correlationId":"abc","payload":{}}`,
			wantTopic: "pancy/response/punishments/case/abc",
			want:      MqttResponse{CorrelationID: "abc", Error: "guild_id requerido"},
		},
		{name: "not json", body: `hola`, wantErr: true},
		{name: "no correlation id", body: `{"payload":{}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, resp, err := handleRequest("pancy/request/punishments/case", []byte(tt.body), echo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if topic != tt.wantTopic {
				t.Errorf("topic = %q, want %q", topic, tt.wantTopic)
			}
			if diff := cmp.Diff(tt.want, resp); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublishWithoutBroker(t *testing.T) {
	var mc *MqttCommunicator
	err := mc.PublishPunishment("issued", &models.Punishment{GuildID: "g"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestPunishmentEventPayload(t *testing.T) {
	body, err := json.Marshal(PunishmentEvent{
		Event: "issued",
		Case:  &models.Punishment{ID: "Ab12Cd", Kind: models.KindBan, GuildID: "g", DateExpires: -1},
		At:    1700000000,
	})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	c := got["case"].(map[string]interface{})
	if got["event"] != "issued" || c["id"] != "Ab12Cd" || c["type"] != "ban" || c["date_expires"] != float64(-1) {
		t.Errorf("payload = %s", body)
	}
}
