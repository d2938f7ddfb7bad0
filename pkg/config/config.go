// Package config loads the bot configuration from .env and the environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string

	// MongoDB
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port         string
	AllowedHosts string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string

	// Punishments
	FlowTimeout     time.Duration
	DialogTimeout   time.Duration
	ExpiryInterval  time.Duration
	WarningLifetime time.Duration
	AllowPeers      bool
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once
)

// resetForTesting resets the configuration. Only for tests.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

// reader collects the keys whose values could not be parsed
type reader struct {
	invalid []string
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return d
}

func (r *reader) days(key string, def int) time.Duration {
	n := def
	if raw := os.Getenv(key); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			r.invalid = append(r.invalid, key)
		} else {
			n = v
		}
	}
	return time.Duration(n) * 24 * time.Hour
}

func (r *reader) boolean(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return def
	}
	return b
}

func (r *reader) err() error {
	if len(r.invalid) == 0 {
		return nil
	}
	sort.Strings(r.invalid)
	return fmt.Errorf("config: valores inválidos en %s, se usan los valores por defecto", strings.Join(r.invalid, ", "))
}

func loadConfig() {
	// .env is optional
	_ = godotenv.Load()

	r := &reader{}
	cfg = &Config{
		BotToken:   getEnv("botToken", ""),
		DevGuildID: getEnv("devGuildId", ""),

		MongoDBURL: getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:     getEnv("dbName", "PancyMod"),

		MQTTHost:     getEnv("MQTT_Host", "localhost"),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		Port:         getEnv("PORT", "3000"),
		AllowedHosts: getEnv("webAllowedHosts", ""),

		Environment: getEnv("enviroment", "dev"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),

		FlowTimeout:     r.duration("punishFlowTimeout", 5*time.Minute),
		DialogTimeout:   r.duration("punishDialogTimeout", 2*time.Minute),
		ExpiryInterval:  r.duration("punishExpiryInterval", 5*time.Second),
		WarningLifetime: r.days("punishWarningDays", 90),
		AllowPeers:      r.boolean("punishAllowPeers", false),
	}
	cfgErr = r.err()
}

// Load reads the configuration once. The returned error lists malformed
// keys; the configuration is still usable with their defaults.
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, cfgErr
}

// Get returns the current configuration, loading it if needed
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
