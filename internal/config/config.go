package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Venue    VenueConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

// AMQPConfig is optional; an empty URL disables the payment consumer.
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// VenueConfig is the scheduling configuration: everything the slot
// calendar derives the grid from, plus the payment timeout.
type VenueConfig struct {
	Timezone    string
	OpenTime    string // HH:MM
	CloseTime   string // HH:MM
	SlotMinutes int
	PendingTTL  time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := getenv("SERVER_HOST", "localhost")

	serverPort, err := strconv.Atoi(getenv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	postgresPort, err := strconv.Atoi(getenv("POSTGRES_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid POSTGRES_PORT: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     getenv("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
	}

	redisCfg := RedisConfig{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: "",
		DB:       0,
	}

	amqpCfg := AMQPConfig{
		URL:      os.Getenv("AMQP_URL"),
		Exchange: getenv("AMQP_EXCHANGE", "arena.events"),
		Queue:    getenv("AMQP_QUEUE", "arena.payments"),
	}

	slotMinutes, err := strconv.Atoi(getenv("VENUE_SLOT_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid VENUE_SLOT_MINUTES: %w", op, err)
	}

	pendingTTLMin, err := strconv.Atoi(getenv("VENUE_PENDING_TTL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid VENUE_PENDING_TTL_MINUTES: %w", op, err)
	}

	venueCfg := VenueConfig{
		Timezone:    getenv("VENUE_TZ", "America/Sao_Paulo"),
		OpenTime:    getenv("VENUE_OPEN_TIME", "08:00"),
		CloseTime:   getenv("VENUE_CLOSE_TIME", "17:00"),
		SlotMinutes: slotMinutes,
		PendingTTL:  time.Duration(pendingTTLMin) * time.Minute,
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		AMQP:     amqpCfg,
		Venue:    venueCfg,
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
