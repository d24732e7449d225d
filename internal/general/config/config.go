package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Redis struct {
		Addr string
	}
	Directions struct {
		APIKey string `yaml:"api_key"`
	}
	Services struct {
		HotspotServicePort int
	}
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	}
	Hotspot HotspotConfig
}

// HotspotConfig carries the scoring and tracking tunables. The weight
// constants are heuristic defaults lifted from the production model; they are
// configurable on purpose and the success/failure asymmetry is intentional.
type HotspotConfig struct {
	RadiusKm            float64
	OverloadKm          float64 // widening added to the radius on an empty first pass
	CoolDownExclusionKm float64 // inner exclusion ring when the driver has a recent assignment
	CoolDownMinutes     int

	AreaWeightCommercial  float64
	AreaWeightResidential float64
	AreaWeightUnknown     float64
	DropMatchWeight       float64
	HourWeight            float64
	DayWeight             float64
	DistanceWeight        float64
	SuccessWeight         float64
	FailureWeight         float64
}

// LoadFromFile loads config from a YAML file to a Config struct, applies
// environment overrides and defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets secrets and endpoints come from the environment
// (typically a .env file loaded at startup) without living in config.yaml.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Directions.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.JWT.SecretKey = v
	}
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	// Services
	if cfg.Services.HotspotServicePort == 0 {
		cfg.Services.HotspotServicePort = 3002
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}

	// Hotspot scoring and tracking
	h := &cfg.Hotspot
	if h.RadiusKm == 0 {
		h.RadiusKm = 5
	}
	if h.OverloadKm == 0 {
		h.OverloadKm = 5
	}
	if h.CoolDownExclusionKm == 0 {
		h.CoolDownExclusionKm = 2
	}
	if h.CoolDownMinutes == 0 {
		h.CoolDownMinutes = 20
	}
	if h.AreaWeightCommercial == 0 {
		h.AreaWeightCommercial = 1.0
	}
	if h.AreaWeightResidential == 0 {
		h.AreaWeightResidential = 0.2
	}
	if h.AreaWeightUnknown == 0 {
		h.AreaWeightUnknown = 0.5
	}
	if h.DropMatchWeight == 0 {
		h.DropMatchWeight = 0.7
	}
	if h.HourWeight == 0 {
		h.HourWeight = 1.0
	}
	if h.DayWeight == 0 {
		h.DayWeight = 1.0
	}
	if h.DistanceWeight == 0 {
		h.DistanceWeight = 0.5
	}
	if h.SuccessWeight == 0 {
		h.SuccessWeight = 1.2
	}
	if h.FailureWeight == 0 {
		h.FailureWeight = 0.6
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Directions provider
	if c.Directions.APIKey == "" {
		problems = append(problems, "directions.api_key is required")
	}

	// Services
	if c.Services.HotspotServicePort <= 0 || c.Services.HotspotServicePort > 65535 {
		problems = append(problems, "services.hotspot_service must be in 1..65535")
	}

	// Hotspot
	if c.Hotspot.CoolDownExclusionKm >= c.Hotspot.RadiusKm {
		// an exclusion ring at or beyond the cap radius filters everything
		// out and every request degenerates to the widened retry
		problems = append(problems, "hotspot.cooldown_exclusion_km must be less than hotspot.radius_km")
	}
	if c.Hotspot.CoolDownMinutes < 0 {
		problems = append(problems, "hotspot.cooldown_minutes cannot be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
