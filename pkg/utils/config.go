package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("FILMDEX_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("FILMDEX_JWT_ISSUER")
	if issuer == "" {
		issuer = "filmdex"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: parseHours(os.Getenv("FILMDEX_JWT_TTL_HOURS"), 24*time.Hour),
	}
}

// CatalogConfig holds the matching knobs threaded into the group resolver.
type CatalogConfig struct {
	FuzzyMatchThreshold float64 // [0,1], minimum similarity for a fuzzy group match
	YearTolerance       int     // +/- years allowed between candidate and group
}

func LoadCatalogConfig() CatalogConfig {
	cfg := CatalogConfig{
		FuzzyMatchThreshold: 0.7,
		YearTolerance:       1,
	}

	if raw := os.Getenv("FILMDEX_FUZZY_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			cfg.FuzzyMatchThreshold = v
		}
	}
	if raw := os.Getenv("FILMDEX_YEAR_TOLERANCE"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			cfg.YearTolerance = v
		}
	}
	return cfg
}

func parseHours(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Hour
}
