package server

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config carries the handful of environment knobs the server reads at boot.
type Config struct {
	Port           int
	BotToken       string // secret for signed launch payloads; empty disables verification
	AllowAnonymous bool
	AllowedOrigin  string
	PingInterval   time.Duration
	RateLimit      int // messages per second a single connection may send
}

func LoadConfig() Config {
	return Config{
		Port:           getenvInt("PORT", 8787),
		BotToken:       os.Getenv("BOT_TOKEN"),
		AllowAnonymous: getenvBool("ALLOW_ANONYMOUS", true),
		AllowedOrigin:  getenv("ALLOWED_ORIGIN", "*"),
		PingInterval:   time.Duration(getenvInt("PING_INTERVAL_SECONDS", 30)) * time.Second,
		RateLimit:      getenvInt("RATE_LIMIT_PER_SECOND", 20),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
