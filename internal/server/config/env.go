package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFile is the dotenv file consulted at startup, ".env" unless ENV_FILE says otherwise.
func envFile() string {
	if f := os.Getenv("ENV_FILE"); f != "" {
		return f
	}
	return ".env"
}

// envLookup returns a lookup that prefers the process environment and falls
// back to values read from the dotenv file. A missing file is not an error.
func envLookup(file string) func(string) (string, bool) {
	fileVars, err := godotenv.Read(file)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}
}

// parseEnv overlays environment settings onto config.
//
// Recognised variables:
//
//	PORT / HTTP_ADDR, DATABASE_DSN, JWT_SECRET, JWT_TTL, BCRYPT_COST,
//	REQUIRE_VERIFIED_LOGIN, LOGOUT_ALL_WATERMARK, KAFKA_BROKERS, KAFKA_TOPIC,
//	REDIS_ADDR, REDIS_PASSWORD, CORS_ORIGINS, LOG_LEVEL
//
// Malformed numeric, boolean or duration values panic, as invalid flags do.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok && v != "" {
		config.EndpointAddrHTTP = ":" + v
	}
	if v, ok := lookup("HTTP_ADDR"); ok && v != "" {
		config.EndpointAddrHTTP = v
	}
	if v, ok := lookup("DATABASE_DSN"); ok && v != "" {
		config.DatabaseDSN = v
	}
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		config.SecretKey = v
	}
	if v, ok := lookup("JWT_TTL"); ok && v != "" {
		config.AccessTokenValidityDuration = mustDuration("JWT_TTL", v)
	}
	if v, ok := lookup("BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic("BCRYPT_COST: " + err.Error())
		}
		config.BcryptCost = n
	}
	if v, ok := lookup("REQUIRE_VERIFIED_LOGIN"); ok && v != "" {
		config.RequireVerifiedLogin = mustBool("REQUIRE_VERIFIED_LOGIN", v)
	}
	if v, ok := lookup("LOGOUT_ALL_WATERMARK"); ok && v != "" {
		config.EnforceLogoutAllWatermark = mustBool("LOGOUT_ALL_WATERMARK", v)
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		config.KafkaBrokers = splitList(v)
	}
	if v, ok := lookup("KAFKA_TOPIC"); ok && v != "" {
		config.KafkaTopic = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		config.RedisAddr = v
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		config.RedisPassword = v
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		config.CORSAllowedOrigins = splitList(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		config.LogLevel = v
	}
}

func mustDuration(key, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(key + ": " + err.Error())
	}
	return d
}

func mustBool(key, v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(key + ": " + err.Error())
	}
	return b
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
