package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret      string
	EnableLocalAuth bool
	TokenTTL        time.Duration

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Quiz engine tuning.
	AdvanceKeyword string        // learner input that moves to the next card
	HistoryLimit   int           // max persisted (learner, tutor) turn pairs
	OracleTimeout  time.Duration // upper bound for one grading call

	// Seed a learner account at startup (offline/dev convenience).
	SeedUserEmail    string
	SeedUserPassword string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		TokenTTL:        envDuration("TOKEN_TTL", 8*time.Hour),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://studydeck.example.com"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000"),

		AdvanceKeyword: envOr("QUIZ_ADVANCE_KEYWORD", "next"),
		HistoryLimit:   envInt("QUIZ_HISTORY_LIMIT", 50),
		OracleTimeout:  envDuration("QUIZ_ORACLE_TIMEOUT", 30*time.Second),

		SeedUserEmail:    envOr("SEED_USER_EMAIL", "tester@test.com"),
		SeedUserPassword: os.Getenv("SEED_USER_PASSWORD"),
	}
}

// CORSOrigins returns the allowed origins for the active mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
