package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/flagx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Zero
// values and nil pointers leave the matching Config field untouched, so a
// file may set only what it needs.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	RequireVerifiedLogin        *bool          `json:"require_verified_login"`
	EnforceLogoutAllWatermark   *bool          `json:"enforce_logout_all_watermark"`
	OTPValidityDuration         timex.Duration `json:"otp_validity_duration"`
	OTPSendWindow               timex.Duration `json:"otp_send_window"`
	OTPResendWindow             timex.Duration `json:"otp_resend_window"`
	OTPMaxAttempts              int            `json:"otp_max_attempts"`
	SweepInterval               timex.Duration `json:"sweep_interval"`
	DBConnectRetries            int            `json:"db_connect_retries"`
	DBConnectBaseDelay          timex.Duration `json:"db_connect_base_delay"`
	KafkaBrokers                []string       `json:"kafka_brokers"`
	KafkaTopic                  string         `json:"kafka_topic"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	RateLimitRequests           int            `json:"rate_limit_requests"`
	RateLimitWindow             timex.Duration `json:"rate_limit_window"`
	CORSAllowedOrigins          []string       `json:"cors_allowed_origins"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson loads the file named by -c / -config (if any) and overlays its
// non-zero values onto config. Unreadable files or invalid JSON panic.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	if c.RequireVerifiedLogin != nil {
		config.RequireVerifiedLogin = *c.RequireVerifiedLogin
	}
	if c.EnforceLogoutAllWatermark != nil {
		config.EnforceLogoutAllWatermark = *c.EnforceLogoutAllWatermark
	}
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration)
	setDuration(&config.OTPSendWindow, c.OTPSendWindow)
	setDuration(&config.OTPResendWindow, c.OTPResendWindow)
	setInt(&config.OTPMaxAttempts, c.OTPMaxAttempts)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setInt(&config.DBConnectRetries, c.DBConnectRetries)
	setDuration(&config.DBConnectBaseDelay, c.DBConnectBaseDelay)
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RateLimitRequests, c.RateLimitRequests)
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
