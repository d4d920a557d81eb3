package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Clinic backend (upstream REST API the gateway proxies).
	ClinicAPIBaseURL string
	ClinicAPITimeout time.Duration

	// Session token validation. Tokens are minted by the clinic backend's
	// auth service; the gateway only validates and forwards them.
	SessionJWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string

	// Booking rules.
	Timezone          string
	WorkDayStart      string
	WorkDayEnd        string
	SlotStepMinutes   int
	DurationsMinutes  []int
	HoldTTL           time.Duration
	OTPSessionTTL     time.Duration
	DirectoryCacheTTL time.Duration

	// Per-IP throttle on the OTP send endpoint; zero disables it.
	OTPSendRatePerSec int
	OTPSendBurst      int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicAPIBaseURL: getEnv("CLINIC_API_BASE_URL", "http://localhost:5000"),
		ClinicAPITimeout: getEnvAsDuration("CLINIC_API_TIMEOUT", 15*time.Second),

		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		Timezone:          getEnv("CLINIC_TIMEZONE", "UTC"),
		WorkDayStart:      getEnv("WORK_DAY_START", "09:00"),
		WorkDayEnd:        getEnv("WORK_DAY_END", "18:00"),
		SlotStepMinutes:   getEnvAsInt("SLOT_STEP_MINUTES", 30),
		DurationsMinutes:  getEnvAsIntList("SLOT_DURATIONS_MINUTES", []int{15, 30, 45, 60}),
		HoldTTL:           getEnvAsDuration("HOLD_TTL", 15*time.Minute),
		OTPSessionTTL:     getEnvAsDuration("OTP_SESSION_TTL", 5*time.Minute),
		DirectoryCacheTTL: getEnvAsDuration("DIRECTORY_CACHE_TTL", 10*time.Minute),

		OTPSendRatePerSec: getEnvAsInt("OTP_SEND_RATE_PER_SEC", 1),
		OTPSendBurst:      getEnvAsInt("OTP_SEND_BURST", 3),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsIntList(key string, defaultValue []int) []int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
