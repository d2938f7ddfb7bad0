// Package mqtt connects the bot to the PancyStudios broker. It publishes
// punishment events and answers request/response calls from other services.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	requestPrefix    = "pancy/request/"
	responsePrefix   = "pancy/response/"
	punishmentPrefix = "pancy/punishments/"
	publishTimeout   = 5 * time.Second
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("mqtt: not connected")

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// PunishmentEvent is published on pancy/punishments/<guild>/<event>
type PunishmentEvent struct {
	Event string             `json:"event"`
	Case  *models.Punishment `json:"case"`
	At    int64              `json:"at"`
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client           mqtt.Client
	responseHandlers map[string]chan MqttResponse
	mu               sync.RWMutex
	clientID         string
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator creates a communicator and connects in the background
// retrying every 5 seconds
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := &MqttCommunicator{
		responseHandlers: make(map[string]chan MqttResponse),
		clientID:         clientID,
	}

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.NewString())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc != nil && mc.client != nil && mc.client.IsConnected()
}

// Publish sends a JSON message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializar payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publicar en %s: timeout", topic)
	}
	return token.Error()
}

func punishmentTopic(guildID, event string) string {
	return punishmentPrefix + guildID + "/" + event
}

// PublishPunishment announces an issued, revoked or expired case
func (mc *MqttCommunicator) PublishPunishment(event string, p *models.Punishment) error {
	return mc.Publish(punishmentTopic(p.GuildID, event), PunishmentEvent{
		Event: event,
		Case:  p,
		At:    time.Now().Unix(),
	})
}

// Request sends a request and waits for the response of another service
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	if !mc.IsConnected() {
		return nil, ErrNotConnected
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializar payload: %w", err)
	}

	correlationID := uuid.NewString()
	respTopic := responsePrefix + topic + "/" + correlationID

	responses := make(chan MqttResponse, 1)
	mc.mu.Lock()
	mc.responseHandlers[correlationID] = responses
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(respTopic)
	}()

	token := mc.client.Subscribe(respTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			logger.Warn(fmt.Sprintf("Respuesta MQTT inválida en %s: %v", msg.Topic(), err), "MQTT")
			return
		}

		mc.mu.RLock()
		ch, ok := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()
		if ok {
			select {
			case ch <- response:
			default:
			}
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if err := mc.Publish(requestPrefix+topic, MqttRequest{CorrelationID: correlationID, Payload: raw}); err != nil {
		return nil, err
	}

	select {
	case response := <-responses:
		if response.Error != "" {
			return nil, errors.New(response.Error)
		}
		return response.Data, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler answers one request. payload is the raw "payload" field.
type RequestHandler func(payload json.RawMessage) (interface{}, error)

// handleRequest decodes a request received on topic, runs callback and
// returns where and what to answer
func handleRequest(topic string, body []byte, callback RequestHandler) (string, MqttResponse, error) {
	var request MqttRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return "", MqttResponse{}, fmt.Errorf("petición inválida: %w", err)
	}
	if request.CorrelationID == "" {
		return "", MqttResponse{}, errors.New("petición sin correlationId")
	}

	name := strings.TrimPrefix(topic, requestPrefix)
	respTopic := responsePrefix + name + "/" + request.CorrelationID

	response := MqttResponse{CorrelationID: request.CorrelationID}
	data, err := callback(request.Payload)
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Data = data
	}
	return respTopic, response, nil
}

// On registers a handler for pancy/request/<requestTopic>
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) error {
	topic := requestPrefix + requestTopic

	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		respTopic, response, err := handleRequest(msg.Topic(), msg.Payload(), callback)
		if err != nil {
			logger.Error(fmt.Sprintf("Error procesando %s: %v", msg.Topic(), err), "MQTT")
			return
		}
		if err := mc.Publish(respTopic, response); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo responder en %s: %v", respTopic, err), "MQTT")
		}
	})
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error suscribiendo a %s: %v", topic, token.Error()), "MQTT")
		return token.Error()
	}
	return nil
}

// Subscribe subscribes to a topic with a message handler
func (mc *MqttCommunicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe unsubscribes from a topic
func (mc *MqttCommunicator) Unsubscribe(topic string) error {
	token := mc.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}
