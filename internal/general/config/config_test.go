package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `database:
  host: db.internal
  port: 5433
  user: fleet
  password: s3cret
  database: fleet_track

rabbitmq:
  host: mq.internal
  port: 5672
  user: guest
  password: guest

redis:
  addr: cache.internal:6379

directions:
  api_key: "maps-key-123"

services:
  hotspot_service: 3002

jwt:
  secret_key: "jwt-secret"

hotspot:
  radius_km: 4
  cooldown_exclusion_km: 1.5
  cooldown_minutes: 25
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("database section not parsed: %+v", cfg.Database)
	}
	if cfg.Database.Name != "fleet_track" {
		t.Errorf("expected database name fleet_track, got %q", cfg.Database.Name)
	}
	if cfg.Redis.Addr != "cache.internal:6379" {
		t.Errorf("redis addr not parsed: %q", cfg.Redis.Addr)
	}
	if cfg.Directions.APIKey != "maps-key-123" {
		t.Errorf("quoted api key not unquoted: %q", cfg.Directions.APIKey)
	}
	if cfg.Hotspot.RadiusKm != 4 || cfg.Hotspot.CoolDownMinutes != 25 {
		t.Errorf("hotspot tunables not parsed: %+v", cfg.Hotspot)
	}

	// fields absent from the file pick up defaults
	if cfg.Hotspot.OverloadKm != 5 {
		t.Errorf("expected default overload of 5, got %f", cfg.Hotspot.OverloadKm)
	}
	if cfg.Hotspot.SuccessWeight != 1.2 || cfg.Hotspot.FailureWeight != 0.6 {
		t.Errorf("expected default outcome weights, got %+v", cfg.Hotspot)
	}
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "env-db-pass")
	t.Setenv("GOOGLE_MAPS_API_KEY", "env-maps-key")

	cfg, err := LoadFromFile(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Password != "env-db-pass" {
		t.Errorf("expected env override for db password, got %q", cfg.Database.Password)
	}
	if cfg.Directions.APIKey != "env-maps-key" {
		t.Errorf("expected env override for api key, got %q", cfg.Directions.APIKey)
	}
}

func TestLoadFromFile_MissingAPIKey(t *testing.T) {
	contents := strings.Replace(validYAML, "  api_key: \"maps-key-123\"\n", "", 1)

	_, err := LoadFromFile(writeConfig(t, contents))
	if err == nil || !strings.Contains(err.Error(), "directions.api_key") {
		t.Fatalf("expected a missing api key error, got %v", err)
	}
}

func TestLoadFromFile_ExclusionBeyondRadius(t *testing.T) {
	contents := strings.Replace(validYAML, "cooldown_exclusion_km: 1.5", "cooldown_exclusion_km: 6", 1)

	_, err := LoadFromFile(writeConfig(t, contents))
	if err == nil || !strings.Contains(err.Error(), "cooldown_exclusion_km") {
		t.Fatalf("expected an exclusion ring error, got %v", err)
	}
}

func TestParseYAML_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown section", "nonsense:\n  key: value\n", "unknown top-level key"},
		{"duplicate section", "redis:\n  addr: a\nredis:\n  addr: b\n", "duplicate"},
		{"key without section", "  host: localhost\n", "key without a section"},
		{"non-numeric port", "database:\n  port: abc\n", "must be int"},
		{"unknown key", "redis:\n  bogus: value\n", "unknown key in redis"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			err := parseYAML(strings.NewReader(tc.yaml), &cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestResolveScalar(t *testing.T) {
	cases := map[string]string{
		`"localhost"`:   "localhost",
		`'password123'`: "password123",
		`  plain  `:     "plain",
		`""`:            "",
	}
	for in, want := range cases {
		if got := resolveScalar(in); got != want {
			t.Errorf("resolveScalar(%q) = %q, want %q", in, got, want)
		}
	}
}
