/*
Package config loads server configuration from the environment.

PURPOSE:
  One place for every tunable the server reads at startup. Values come
  from the process environment, optionally seeded from a .env file in
  the working directory (a missing file is fine).

ENVIRONMENT:
  APP_PORT              HTTP port (default 8080)
  APP_ENV               development | production (default development)
  LOG_LEVEL             debug | info | warn | error (default info)
  DB_PATH               SQLite path, ":memory:" allowed (default payroll.db)
  CORS_ALLOWED_ORIGINS  Comma-separated origins
  CURRENCY_CODE         ISO code shown on payslips (default USD)
  CURRENCY_SCALE        Digits after the decimal point (default 2)
  STATUTORY_CODES       Sub-totals, "name=CODE,CODE;name=CODE"
                        (default tax=PAYE;pension=PENSION)
  PAYROLL_APPROVERS     Comma-separated actor ids allowed to approve.
                        Empty means any identified actor may approve.
  SCHEDULER_ENABLED     Auto-open the current month's period (default true)
  SCHEDULER_INTERVAL    How often the scheduler checks (default 1h)

SEE ALSO:
  - cmd/server/main.go: Flags override APP_PORT and DB_PATH
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/payroll-engine/payroll"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Currency  CurrencyConfig
	Payroll   PayrollConfig
	Scheduler SchedulerConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CompanyName        string
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Path string
}

// CurrencyConfig controls how minor units are rendered.
type CurrencyConfig struct {
	Code  string
	Scale int32
}

type PayrollConfig struct {
	Statutory []payroll.StatutoryRule
	Approvers []string
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	statutory, err := ParseStatutory(getEnv("STATUTORY_CODES", "tax=PAYE;pension=PENSION"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATUTORY_CODES: %w", err)
	}

	config := &Config{
		App: AppConfig{
			Port:        appPort,
			Env:         getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			CompanyName: getEnv("COMPANY_NAME", "Warp"),
			CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS",
				[]string{"http://localhost:5173", "http://localhost:8080"}),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "payroll.db"),
		},
		Currency: CurrencyConfig{
			Code:  strings.ToUpper(getEnv("CURRENCY_CODE", "USD")),
			Scale: int32(getEnvInt("CURRENCY_SCALE", 2)),
		},
		Payroll: PayrollConfig{
			Statutory: statutory,
			Approvers: getEnvSlice("PAYROLL_APPROVERS", nil),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("SCHEDULER_ENABLED", true),
			Interval: getEnvDuration("SCHEDULER_INTERVAL", time.Hour),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Currency.Scale < 0 || c.Currency.Scale > 4 {
		return fmt.Errorf("CURRENCY_SCALE must be between 0 and 4")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Second {
		return fmt.Errorf("SCHEDULER_INTERVAL must be at least 1s")
	}
	if c.App.Env == "production" && len(c.Payroll.Approvers) == 0 {
		return fmt.Errorf("PAYROLL_APPROVERS must be set in production")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto slog.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", c.App.LogLevel)
	}
	return level, nil
}

// Authority returns the approval predicate for the configured
// approvers. With no approvers configured, any non-empty actor approves.
func (c *Config) Authority() payroll.ApprovalAuthority {
	allowed := make(map[string]bool, len(c.Payroll.Approvers))
	for _, a := range c.Payroll.Approvers {
		allowed[a] = true
	}
	return payroll.AuthorityFunc(func(actor string, _ *payroll.Period) bool {
		if actor == "" {
			return false
		}
		return len(allowed) == 0 || allowed[actor]
	})
}

// ParseStatutory parses "tax=PAYE;pension=PENSION,PENSION_TOPUP".
func ParseStatutory(s string) ([]payroll.StatutoryRule, error) {
	var rules []payroll.StatutoryRule
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, codes, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("rule %q must be name=CODE[,CODE]", part)
		}
		if seen[name] {
			return nil, fmt.Errorf("rule %q defined twice", name)
		}
		seen[name] = true

		rule := payroll.StatutoryRule{Name: name}
		for _, code := range strings.Split(codes, ",") {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code != "" {
				rule.Codes = append(rule.Codes, payroll.ComponentCode(code))
			}
		}
		if len(rule.Codes) == 0 {
			return nil, fmt.Errorf("rule %q has no codes", name)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
