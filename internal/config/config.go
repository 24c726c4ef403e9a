package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Enumerated configuration values
const (
	FailureIsolate   = "isolate"
	FailureFailFast  = "fail-fast"
	StoreSQLite      = "sqlite"
	StoreTimescale   = "timescale"
	PublisherKafka   = "kafka"
	PublisherRedis   = "redis"
	PublisherMQTT    = "mqtt"
	defaultEnvFile   = ".env"
	defaultOutputDir = "output"
)

// Config holds all configuration for the generator and the demo server
type Config struct {
	// Generation settings
	FleetSize     int
	Days          int
	Seed          int64
	OutputDir     string
	Workers       int
	SkipExisting  bool
	FailurePolicy string
	LogLevel      string

	// Storage settings
	Store      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	// Publisher settings
	Publishers      []string
	KafkaBrokers    []string
	KafkaTopic      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	MQTTBroker      string
	MQTTTopicPrefix string

	// Server settings
	HTTPPort       int
	OPCUAPort      int
	ReplayInterval time.Duration
	ReplaySpeed    float64
	ReplayTruck    int
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(defaultEnvFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", defaultEnvFile, err)
	}

	sim := DefaultSimulation()

	cfg := &Config{
		// Generation settings
		FleetSize:     getEnvAsIntOrDefault("FLEET_SIZE", sim.Fleet.Size),
		Days:          getEnvAsIntOrDefault("SIMULATION_DAYS", sim.Fleet.Days),
		Seed:          int64(getEnvAsIntOrDefault("SEED", 42)),
		OutputDir:     getEnvOrDefault("OUTPUT_DIR", defaultOutputDir),
		Workers:       getEnvAsIntOrDefault("WORKERS", 1),
		SkipExisting:  getEnvAsBoolOrDefault("SKIP_EXISTING", true),
		FailurePolicy: getEnvOrDefault("FAILURE_POLICY", FailureIsolate),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),

		// Storage settings
		Store:      getEnvOrDefault("STORE", StoreSQLite),
		DBHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:     getEnvOrDefault("DB_PORT", "5432"),
		DBUser:     getEnvOrDefault("DB_USER", "postgres"),
		DBPassword: getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:     getEnvOrDefault("DB_NAME", "telemetry"),
		DBMaxConns: getEnvAsIntOrDefault("DB_MAX_CONNS", 10),

		// Publisher settings
		Publishers:      getEnvAsListOrDefault("PUBLISHERS", nil),
		KafkaBrokers:    getEnvAsListOrDefault("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:      getEnvOrDefault("KAFKA_TOPIC", "truck.telemetry"),
		RedisAddr:       getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsIntOrDefault("REDIS_DB", 0),
		MQTTBroker:      getEnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTTopicPrefix: getEnvOrDefault("MQTT_TOPIC_PREFIX", "trucks"),

		// Server settings
		HTTPPort:       getEnvAsIntOrDefault("HTTP_PORT", 8787),
		OPCUAPort:      getEnvAsIntOrDefault("OPCUA_PORT", 4840),
		ReplayInterval: getDurationOrDefault("REPLAY_INTERVAL", time.Second),
		ReplaySpeed:    getEnvAsFloatOrDefault("REPLAY_SPEED", 1.0),
		ReplayTruck:    getEnvAsIntOrDefault("REPLAY_TRUCK", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if c.FleetSize < 1 {
		return fmt.Errorf("fleet size must be positive, got %d", c.FleetSize)
	}
	if c.Days < 1 {
		return fmt.Errorf("simulation days must be positive, got %d", c.Days)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	switch c.FailurePolicy {
	case FailureIsolate, FailureFailFast:
	default:
		return fmt.Errorf("unknown failure policy %q (want %s or %s)", c.FailurePolicy, FailureIsolate, FailureFailFast)
	}
	switch c.Store {
	case StoreSQLite, StoreTimescale:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreSQLite, StoreTimescale)
	}
	for _, p := range c.Publishers {
		switch p {
		case PublisherKafka, PublisherRedis, PublisherMQTT:
		default:
			return fmt.Errorf("unknown publisher %q", p)
		}
	}
	if c.ReplayInterval <= 0 {
		return fmt.Errorf("replay interval must be positive, got %s", c.ReplayInterval)
	}
	return nil
}

// TimescaleURL builds the pgx pool connection string
func (c *Config) TimescaleURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBMaxConns,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
