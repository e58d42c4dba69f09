package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the service.
type Config struct {
	DatabaseURL   string
	HTTPAddr      string
	Location      *time.Location
	WhatsAppURL   string
	SendTimeout   time.Duration
	TelegramToken string
	OwnerName     string
	OwnerEmail    string
	CORSOrigins   []string
	// OwnerTelegramID is the Telegram account that acts as the seeded owner.
	// Zero means no account is linked to the owner.
	OwnerTelegramID int64
}

// Load reads configuration from the environment (and an optional .env file) with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[warn] read .env: %v", err)
	}

	cfg := Config{
		DatabaseURL:   env("DATABASE_URL", "taskboss.db"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		WhatsAppURL:   env("WHATSAPP_API_URL", "https://api.fonnte.com/send"),
		TelegramToken: env("TELEGRAM_TOKEN", ""),
		OwnerName:     env("OWNER_NAME", "BOSQU"),
		OwnerEmail:    env("OWNER_EMAIL", "owner@taskboss.local"),
		CORSOrigins:   splitList(env("CORS_ORIGINS", "*")),
	}

	loc, err := time.LoadLocation(env("TIMEZONE", "Local"))
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	timeout, err := parseSeconds(env("SEND_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return cfg, fmt.Errorf("SEND_TIMEOUT_SECONDS: %w", err)
	}
	cfg.SendTimeout = timeout

	if raw := env("OWNER_TELEGRAM_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return cfg, fmt.Errorf("OWNER_TELEGRAM_ID: invalid telegram id %q", raw)
		}
		cfg.OwnerTelegramID = id
	}

	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseSeconds(raw string) (time.Duration, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
