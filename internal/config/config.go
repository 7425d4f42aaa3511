package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"evdealer/backend/internal/domain"
)

type Config struct {
	Port                  string  `env:"PORT" envDefault:"8080"`
	AllowedOrigin         string  `env:"ALLOWED_ORIGIN" envDefault:"http://127.0.0.1:3000"`
	DatabaseURL           string  `env:"DATABASE_URL"`
	RedisAddr             string  `env:"REDIS_ADDR"`
	RedisPassword         string  `env:"REDIS_PASSWORD"`
	RedisDB               int     `env:"REDIS_DB" envDefault:"0"`
	AuthSecret            string  `env:"AUTH_SECRET"`
	AccessTokenTTLMinutes int     `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"480"`
	LogLevel              string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat             string  `env:"LOG_FORMAT" envDefault:"json"`
	SNSTopicARN           string  `env:"SNS_TOPIC_ARN"`
	AWSRegion             string  `env:"AWS_REGION" envDefault:"us-east-1"`
	SeedUsers             string  `env:"SEED_USERS"`
	InstallmentRate       float64 `env:"INSTALLMENT_RATE" envDefault:"6.0"`
}

type SeedUser struct {
	Username string
	Password string
	Role     domain.Role
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.InstallmentRate < 0 {
		return Config{}, fmt.Errorf("INSTALLMENT_RATE must not be negative")
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Seeds parses SEED_USERS, a comma separated list of name:password:ROLE.
func (c Config) Seeds() ([]SeedUser, error) {
	raw := strings.TrimSpace(c.SeedUsers)
	if raw == "" {
		return nil, nil
	}

	seeds := make([]SeedUser, 0, 4)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		// name is up to the first ':' and role after the last, so passwords may contain ':'
		first, last := strings.Index(entry, ":"), strings.LastIndex(entry, ":")
		if first <= 0 || last == first || last-first == 1 {
			return nil, fmt.Errorf("SEED_USERS entry %q must be name:password:ROLE", entry)
		}
		name, password, rawRole := entry[:first], entry[first+1:last], entry[last+1:]
		role := domain.Role(strings.ToUpper(strings.TrimSpace(rawRole)))
		if !role.Valid() {
			return nil, fmt.Errorf("SEED_USERS entry %q has unknown role", entry)
		}
		seeds = append(seeds, SeedUser{
			Username: strings.TrimSpace(name),
			Password: password,
			Role:     role,
		})
	}
	return seeds, nil
}
