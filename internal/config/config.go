package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all settings consumed by the bot. Values come from the
// environment (optionally seeded from a .env file by the caller).
type Config struct {
	GhostAPIURL        string `validate:"required,url"`
	GhostContentAPIKey string `validate:"required"`

	DiscordBotToken string `validate:"required"`

	AutoPostEnabled   bool
	AutoPostChannelID string
	CheckInterval     time.Duration `validate:"gt=0"`

	DatabasePath string `validate:"required"`
	Port         string
}

const defaultCheckIntervalMinutes = 15

func Load() (*Config, error) {
	ghostURL := os.Getenv("GHOST_API_URL")
	ghostKey := os.Getenv("GHOST_CONTENT_API_KEY")
	botToken := os.Getenv("DISCORD_BOT_TOKEN")

	autoPostEnabled := os.Getenv("AUTO_POST_ENABLED") == "true"

	channelID := os.Getenv("AUTO_POST_CHANNEL_ID")
	if autoPostEnabled && channelID == "" {
		slog.Warn("AUTO_POST_CHANNEL_ID not set, auto-posting will be skipped")
	}

	intervalMinutes := defaultCheckIntervalMinutes
	if v := os.Getenv("CHECK_INTERVAL_MINUTES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL_MINUTES %q: must be a positive integer", v)
		}
		intervalMinutes = parsed
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	cfg := &Config{
		GhostAPIURL:        ghostURL,
		GhostContentAPIKey: ghostKey,
		DiscordBotToken:    botToken,
		AutoPostEnabled:    autoPostEnabled,
		AutoPostChannelID:  channelID,
		CheckInterval:      time.Duration(intervalMinutes) * time.Minute,
		DatabasePath:       dbPath,
		Port:               port,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
