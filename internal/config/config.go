package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath      string
	RedisURL          string // empty means run with the in-memory remote (offline/dev mode)
	ServerPort        string
	CurrentUser       string
	SyncDebounceMs    int
	BatchChunkSize    int
	BatchChunkDelayMs int
}

func Load() *Config {
	// Load .env file if exists
	godotenv.Load()

	return &Config{
		DatabasePath:      getEnv("DATABASE_PATH", "sales_sync.db"),
		RedisURL:          getEnv("REDIS_URL", ""),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		CurrentUser:       getEnv("CURRENT_USER", ""),
		SyncDebounceMs:    getEnvAsInt("SYNC_DEBOUNCE_MS", 1500),
		BatchChunkSize:    getEnvAsInt("BATCH_CHUNK_SIZE", 300),
		BatchChunkDelayMs: getEnvAsInt("BATCH_CHUNK_DELAY_MS", 250),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
