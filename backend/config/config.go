// Package config handles application configuration via environment variables.
package config

import (
	"log"
	"net/url"
	"os"
	"time"
)

// Config holds all configurable values for the app.
type Config struct {
	Env             string
	Port            string
	DBUsername      string
	DBPassword      string
	DBHost          string
	DBName          string
	MongoURI        string
	DBTimeout       time.Duration
	RabbitMQURL     string
	ActivityQueue   string
	ShutdownTimeout time.Duration
}

// Load reads environment variables and populates a Config struct.
// MONGODB_URI wins over the URI assembled from the DB_* credentials.
func Load() *Config {
	dbTimeout, err := time.ParseDuration(getEnv("DB_CONNECT_TIMEOUT", "5s"))
	if err != nil {
		log.Panicf("Invalid DB_CONNECT_TIMEOUT: %v", err)
	}

	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		log.Panicf("Invalid SHUTDOWN_TIMEOUT: %v", err)
	}

	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		Port:            getEnv("PORT", "5000"),
		DBUsername:      os.Getenv("DB_USERNAME"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBHost:          getEnv("DB_HOST", "cluster0.oeyfvq1.mongodb.net"),
		DBName:          getEnv("DB_NAME", "ecotrack"),
		MongoURI:        os.Getenv("MONGODB_URI"),
		DBTimeout:       dbTimeout,
		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		ActivityQueue:   getEnv("ACTIVITY_QUEUE", "ecotrack.activity"),
		ShutdownTimeout: shutdownTimeout,
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = cfg.atlasURI()
	}
	return cfg
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) atlasURI() string {
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     c.DBHost,
		Path:     "/" + c.DBName,
		RawQuery: "retryWrites=true&w=majority&appName=Cluster0",
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
