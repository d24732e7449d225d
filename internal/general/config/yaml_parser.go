package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseYAML parses the specific two-level mapping used by config.yaml
func parseYAML(r io.Reader, cfg *Config) error {
	type section int
	const (
		none section = iota
		db
		rm
		rd
		dr
		sv
		jw
		hs
	)

	scanner := bufio.NewScanner(r)
	var cur section

	lineNo := 0
	seenTop := map[section]bool{}

	markSeen := func(s section, name string) error {
		if seenTop[s] {
			return fmt.Errorf("line %d: duplicate '%s' section", lineNo, name)
		}
		seenTop[s] = true
		cur = s
		return nil
	}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if len(line) > 0 && (line[0] != ' ' && line[0] != '\t') {
			var err error
			switch strings.TrimSpace(line) {
			case "database:":
				err = markSeen(db, "database")
			case "rabbitmq:":
				err = markSeen(rm, "rabbitmq")
			case "redis:":
				err = markSeen(rd, "redis")
			case "directions:":
				err = markSeen(dr, "directions")
			case "services:":
				err = markSeen(sv, "services")
			case "jwt:":
				err = markSeen(jw, "jwt")
			case "hotspot:":
				err = markSeen(hs, "hotspot")
			default:
				err = fmt.Errorf("line %d: unknown top-level key %q", lineNo, strings.TrimSuffix(strings.TrimSpace(line), ":"))
			}
			if err != nil {
				return err
			}
			continue
		}

		// expect indented "key: value"
		if cur == none {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := strings.TrimLeft(strings.TrimSpace(trim[colon+1:]), " \t")

		intVal := func(dst *int, field string) error {
			p, err := strconv.Atoi(resolveScalar(val))
			if err != nil {
				return fmt.Errorf("line %d: %s must be int: %v", lineNo, field, err)
			}
			*dst = p
			return nil
		}
		floatVal := func(dst *float64, field string) error {
			f, err := strconv.ParseFloat(resolveScalar(val), 64)
			if err != nil {
				return fmt.Errorf("line %d: %s must be number: %v", lineNo, field, err)
			}
			*dst = f
			return nil
		}

		var err error
		switch cur {
		case db:
			switch key {
			case "host":
				cfg.Database.Host = resolveScalar(val)
			case "port":
				err = intVal(&cfg.Database.Port, "database.port")
			case "user":
				cfg.Database.User = resolveScalar(val)
			case "password":
				cfg.Database.Password = resolveScalar(val)
			case "database":
				cfg.Database.Name = resolveScalar(val)
			default:
				err = fmt.Errorf("line %d: unknown key in database: %q", lineNo, key)
			}
		case rm:
			switch key {
			case "host":
				cfg.RabbitMQ.Host = resolveScalar(val)
			case "port":
				err = intVal(&cfg.RabbitMQ.Port, "rabbitmq.port")
			case "user":
				cfg.RabbitMQ.User = resolveScalar(val)
			case "password":
				cfg.RabbitMQ.Password = resolveScalar(val)
			default:
				err = fmt.Errorf("line %d: unknown key in rabbitmq: %q", lineNo, key)
			}
		case rd:
			switch key {
			case "addr":
				cfg.Redis.Addr = resolveScalar(val)
			default:
				err = fmt.Errorf("line %d: unknown key in redis: %q", lineNo, key)
			}
		case dr:
			switch key {
			case "api_key":
				cfg.Directions.APIKey = resolveScalar(val)
			default:
				err = fmt.Errorf("line %d: unknown key in directions: %q", lineNo, key)
			}
		case sv:
			switch key {
			case "hotspot_service":
				err = intVal(&cfg.Services.HotspotServicePort, "services.hotspot_service")
			default:
				err = fmt.Errorf("line %d: unknown key in services: %q", lineNo, key)
			}
		case jw:
			switch key {
			case "secret_key":
				cfg.JWT.SecretKey = resolveScalar(val)
			default:
				err = fmt.Errorf("line %d: unknown key in jwt: %q", lineNo, key)
			}
		case hs:
			switch key {
			case "radius_km":
				err = floatVal(&cfg.Hotspot.RadiusKm, "hotspot.radius_km")
			case "overload_km":
				err = floatVal(&cfg.Hotspot.OverloadKm, "hotspot.overload_km")
			case "cooldown_exclusion_km":
				err = floatVal(&cfg.Hotspot.CoolDownExclusionKm, "hotspot.cooldown_exclusion_km")
			case "cooldown_minutes":
				err = intVal(&cfg.Hotspot.CoolDownMinutes, "hotspot.cooldown_minutes")
			case "area_weight_commercial":
				err = floatVal(&cfg.Hotspot.AreaWeightCommercial, "hotspot.area_weight_commercial")
			case "area_weight_residential":
				err = floatVal(&cfg.Hotspot.AreaWeightResidential, "hotspot.area_weight_residential")
			case "area_weight_unknown":
				err = floatVal(&cfg.Hotspot.AreaWeightUnknown, "hotspot.area_weight_unknown")
			case "drop_match_weight":
				err = floatVal(&cfg.Hotspot.DropMatchWeight, "hotspot.drop_match_weight")
			case "hour_weight":
				err = floatVal(&cfg.Hotspot.HourWeight, "hotspot.hour_weight")
			case "day_weight":
				err = floatVal(&cfg.Hotspot.DayWeight, "hotspot.day_weight")
			case "distance_weight":
				err = floatVal(&cfg.Hotspot.DistanceWeight, "hotspot.distance_weight")
			case "success_weight":
				err = floatVal(&cfg.Hotspot.SuccessWeight, "hotspot.success_weight")
			case "failure_weight":
				err = floatVal(&cfg.Hotspot.FailureWeight, "hotspot.failure_weight")
			default:
				err = fmt.Errorf("line %d: unknown key in hotspot: %q", lineNo, key)
			}
		}
		if err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return nil
}

// resolveScalar trims whitespace and removes surrounding quotes from YAML-like scalars.
// For example:
//
//	"localhost"  -> localhost
//	'password123' -> password123
//	localhost     -> localhost
//
// This ensures values like jwt.secret_key are not stored with extra quotes.
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	// if value is quoted with "..." or '...', remove quotes safely
	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				return unq
			}
			// fallback if strconv.Unquote fails (e.g., mismatched quotes)
			return s[1 : n-1]
		}
	}

	return s
}
