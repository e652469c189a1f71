package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr               string        `yaml:"addr"`
	Env                string        `yaml:"env"`
	JWTSecret          string        `yaml:"jwt_secret"`
	APITimeout         time.Duration `yaml:"timeout"`
	DatabasePath       string        `yaml:"database_path"`
	TokenDuration      time.Duration `yaml:"token_duration"`
	AdminTokenDuration time.Duration `yaml:"admin_token_duration"`
	BcryptCost         int           `yaml:"bcrypt_cost"`
	OTP                OTPConfig     `yaml:"otp"`
	Mail               MailConfig    `yaml:"mail"`
	CORS               CORSConfig    `yaml:"cors"`
	RateLimit          RateLimit     `yaml:"rate_limit"`
}

type OTPConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	Length        int           `yaml:"length"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

type MailConfig struct {
	// Provider is "log" or "sendgrid".
	Provider       string        `yaml:"provider"`
	SendGridAPIKey string        `yaml:"sendgrid_api_key"`
	FromEmail      string        `yaml:"from_email"`
	FromName       string        `yaml:"from_name"`
	Timeout        time.Duration `yaml:"timeout"`
	Sandbox        bool          `yaml:"sandbox"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimit bounds OTP-issuing requests per client IP.
type RateLimit struct {
	OTPPerMinute int `yaml:"otp_per_minute"`
	OTPBurst     int `yaml:"otp_burst"`
}

func defaults() *Config {
	return &Config{
		Addr:               ":8080",
		Env:                "development",
		JWTSecret:          insecureJWTSecret,
		APITimeout:         15 * time.Second,
		DatabasePath:       "hirehub.db",
		TokenDuration:      7 * 24 * time.Hour,
		AdminTokenDuration: 24 * time.Hour,
		BcryptCost:         10,
		OTP: OTPConfig{
			TTL:           5 * time.Minute,
			Length:        6,
			SweepSchedule: "@every 1m",
		},
		Mail: MailConfig{
			Provider:  "log",
			FromEmail: "no-reply@hirehub.local",
			FromName:  "HireHub",
			Timeout:   5 * time.Second,
		},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: RateLimit{OTPPerMinute: 5, OTPBurst: 3},
	}
}

// LoadConfig builds the configuration from defaults, then the optional YAML
// file at path, then HIREHUB_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = getEnv("HIREHUB_ADDR", c.Addr)
	c.Env = getEnv("HIREHUB_ENV", c.Env)
	c.JWTSecret = getEnv("HIREHUB_JWT_SECRET", c.JWTSecret)
	c.DatabasePath = getEnv("HIREHUB_DATABASE_PATH", c.DatabasePath)
	c.Mail.Provider = getEnv("HIREHUB_MAIL_PROVIDER", c.Mail.Provider)
	c.Mail.SendGridAPIKey = getEnv("HIREHUB_SENDGRID_API_KEY", c.Mail.SendGridAPIKey)
	c.Mail.FromEmail = getEnv("HIREHUB_MAIL_FROM", c.Mail.FromEmail)
	if v := os.Getenv("HIREHUB_CORS_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}

	var err error
	if c.TokenDuration, err = getDuration("HIREHUB_TOKEN_DURATION", c.TokenDuration); err != nil {
		return err
	}
	if c.OTP.TTL, err = getDuration("HIREHUB_OTP_TTL", c.OTP.TTL); err != nil {
		return err
	}
	if c.BcryptCost, err = getInt("HIREHUB_BCRYPT_COST", c.BcryptCost); err != nil {
		return err
	}
	return nil
}

// Validate rejects unusable settings and fills zero values with defaults.
func (c *Config) Validate() error {
	d := defaults()
	if c.Env == "" {
		c.Env = getEnv("HIREHUB_ENV", d.Env)
	}
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && !c.IsDevelopment() {
		return fmt.Errorf("jwt_secret must be changed outside development (env=%s)", c.Env)
	}

	if c.APITimeout == 0 {
		c.APITimeout = d.APITimeout
	}
	if c.TokenDuration == 0 {
		c.TokenDuration = d.TokenDuration
	}
	if c.AdminTokenDuration == 0 {
		c.AdminTokenDuration = d.AdminTokenDuration
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = d.BcryptCost
	}
	if c.APITimeout < 0 || c.TokenDuration < 0 || c.AdminTokenDuration < 0 {
		return errors.New("timeouts and token durations must be positive")
	}

	if c.OTP.TTL == 0 {
		c.OTP.TTL = d.OTP.TTL
	}
	if c.OTP.TTL < 0 {
		return errors.New("otp.ttl must be positive")
	}
	if c.OTP.Length == 0 {
		c.OTP.Length = d.OTP.Length
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("otp.length must be between 4 and 10, got %d", c.OTP.Length)
	}
	if c.OTP.SweepSchedule == "" {
		c.OTP.SweepSchedule = d.OTP.SweepSchedule
	}

	if c.Mail.Provider == "" {
		c.Mail.Provider = d.Mail.Provider
	}
	switch c.Mail.Provider {
	case "log":
	case "sendgrid":
		if c.Mail.SendGridAPIKey == "" {
			return errors.New("mail.sendgrid_api_key is required when mail.provider is sendgrid")
		}
	default:
		return fmt.Errorf("unknown mail.provider %q", c.Mail.Provider)
	}
	if c.Mail.FromEmail == "" {
		c.Mail.FromEmail = d.Mail.FromEmail
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = d.Mail.FromName
	}
	if c.Mail.Timeout <= 0 {
		c.Mail.Timeout = d.Mail.Timeout
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = d.CORS.AllowedOrigins
	}
	if c.RateLimit.OTPPerMinute <= 0 {
		c.RateLimit.OTPPerMinute = d.RateLimit.OTPPerMinute
	}
	if c.RateLimit.OTPBurst <= 0 {
		c.RateLimit.OTPBurst = d.RateLimit.OTPBurst
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "test"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
