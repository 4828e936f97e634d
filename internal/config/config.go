package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`
	DBPath        string `envconfig:"DB_PATH" default:"./data/buddy.db"`
	HistoryPath   string `envconfig:"HISTORY_PATH" default:"./data/notification-history.json"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	DefaultUserID string `envconfig:"DEFAULT_USER_ID" default:"owner"`

	// Telegram notification surface. Empty token disables the surface.
	BotToken  string `envconfig:"BOT_TOKEN"`
	OwnerChat int64  `envconfig:"OWNER_CHAT_ID"`

	// Web Push relay. PushEnabled is the host-supplied capability flag;
	// sandboxed deployments run with it off.
	PushEnabled  bool   `envconfig:"PUSH_ENABLED" default:"false"`
	VAPIDPublic  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivate string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubject string `envconfig:"VAPID_SUBJECT" default:"mailto:plantpal@example.com"`

	// How often the scheduler wakes up to look for a day rollover.
	CheckIntervalSec int `envconfig:"CHECK_INTERVAL_SEC" default:"60"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
