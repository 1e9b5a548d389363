package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"history-service/search"
)

type Config struct {
	MongoURI      string
	MongoDB       string
	NATSUrl       string
	Port          string
	Languages     []string
	SearchWeights search.Weights
	WorkerCount   int
	AckWait       time.Duration
}

func Load() *Config {
	defaults := search.DefaultWeights()

	cfg := &Config{
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "morocco_history"),
		NATSUrl:   getEnv("NATS_URL", "nats://localhost:4222"),
		Port:      getEnv("PORT", "8080"),
		Languages: strings.Split(getEnv("LANGUAGES", "ar,en,fr,es"), ","),
		SearchWeights: search.Weights{
			GroupFullMatch: getIntEnv("SEARCH_WEIGHT_GROUP_FULL", defaults.GroupFullMatch),
			GroupFirstWord: getIntEnv("SEARCH_WEIGHT_GROUP_FIRST_WORD", defaults.GroupFirstWord),
			EventMatch:     getIntEnv("SEARCH_WEIGHT_EVENT", defaults.EventMatch),
		},
		WorkerCount: getIntEnv("WORKER_COUNT", 3),
		AckWait:     getDurationEnv("ACK_WAIT", "2m"),
	}

	log.Printf("Config loaded - DB: %s, Languages: %v, Weights: %+v, Workers: %d",
		cfg.MongoDB, cfg.Languages, cfg.SearchWeights, cfg.WorkerCount)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
