package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the tunable policy values for the turno engine and its
// surroundings. Both observed deployments disagreed on the lateness limit
// (1h vs 2h) and the geofence radius (30m vs 45m), so these are options,
// not constants.
type Config struct {
	Port                 string
	DatabaseURL          string
	JWTSecret            string
	LateThreshold        time.Duration // max lateness before a PENDIENTE turno deserts
	GeofenceRadiusMeters float64       // max distance from a punto for a valid mark
	UploadDir            string
	Environment          string // "development" exposes raw error detail
}

// Load reads configuration from the environment. godotenv is loaded by the
// caller (main) before this runs, matching how the server boots elsewhere.
func Load() Config {
	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("APP_JWT_SECRET"),
		LateThreshold:        time.Duration(getEnvInt("LATE_THRESHOLD_HOURS", 2)) * time.Hour,
		GeofenceRadiusMeters: getEnvFloat("GEOFENCE_RADIUS_METERS", 45),
		UploadDir:            getEnv("UPLOAD_DIR", "."),
		Environment:          getEnv("APP_ENV", "production"),
	}
	return cfg
}

// IsDevelopment reports whether raw error detail may be exposed in responses.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
