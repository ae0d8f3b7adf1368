package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	APIBaseURL  string
	SocketURL   string
}

func Load() *Config {
	// Missing .env is fine, the environment may carry everything.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "fanspace.db"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080/api"),
		SocketURL:   getEnv("SOCKET_URL", "ws://localhost:8080/ws"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
