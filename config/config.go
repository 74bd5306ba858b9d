package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Strava   StravaConfig
	Telegram TelegramConfig
	DB       DBConfig
}

// StravaConfig is the default canteen account, used by the demo flow
// when the bot is not configured.
type StravaConfig struct {
	Username string
	Password string
	Canteen  string
}

type TelegramConfig struct {
	Token string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	return &Config{
		Strava: StravaConfig{
			Username: getEnv("STRAVA_USERNAME", ""),
			Password: getEnv("STRAVA_PASSWORD", ""),
			Canteen:  getEnv("STRAVA_CANTEEN", ""),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "canteen"),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
