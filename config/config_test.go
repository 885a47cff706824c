package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "APP_ENV", "LOG_LEVEL", "DB_PATH", "CORS_ALLOWED_ORIGINS",
		"CURRENCY_CODE", "CURRENCY_SCALE", "STATUTORY_CODES", "PAYROLL_APPROVERS",
		"SCHEDULER_ENABLED", "SCHEDULER_INTERVAL", "COMPANY_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "payroll.db", cfg.Database.Path)
	assert.Equal(t, int32(2), cfg.Currency.Scale)
	assert.Equal(t, "USD", cfg.Currency.Code)
	assert.Equal(t, "Warp", cfg.App.CompanyName)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Empty(t, cfg.Payroll.Approvers)
	require.Len(t, cfg.Payroll.Statutory, 2)
	assert.Equal(t, "tax", cfg.Payroll.Statutory[0].Name)
	assert.Equal(t, []payroll.ComponentCode{"PAYE"}, cfg.Payroll.Statutory[0].Codes)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "3000")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("CURRENCY_CODE", "kes")
	t.Setenv("CURRENCY_SCALE", "0")
	t.Setenv("PAYROLL_APPROVERS", "cfo, controller")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.FromEnv()

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "KES", cfg.Currency.Code)
	assert.Equal(t, int32(0), cfg.Currency.Scale)
	assert.Equal(t, []string{"cfo", "controller"}, cfg.Payroll.Approvers)
	assert.False(t, cfg.Scheduler.Enabled)
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric port", "APP_PORT", "http"},
		{"port out of range", "APP_PORT", "70000"},
		{"bad statutory", "STATUTORY_CODES", "tax"},
		{"bad log level", "LOG_LEVEL", "chatty"},
		{"scale too large", "CURRENCY_SCALE", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := config.FromEnv()

			assert.Error(t, err)
		})
	}
}

func TestValidate_ProductionNeedsApprovers(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := config.FromEnv()
	assert.ErrorContains(t, err, "PAYROLL_APPROVERS")

	t.Setenv("PAYROLL_APPROVERS", "cfo")
	_, err = config.FromEnv()
	assert.NoError(t, err)
}

// =============================================================================
// STATUTORY + AUTHORITY
// =============================================================================

func TestParseStatutory(t *testing.T) {
	rules, err := config.ParseStatutory(" tax = paye ; pension=PENSION, pension_topup ;")

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, []payroll.ComponentCode{"PAYE"}, rules[0].Codes)
	assert.Equal(t, "pension", rules[1].Name)
	assert.Equal(t, []payroll.ComponentCode{"PENSION", "PENSION_TOPUP"}, rules[1].Codes)

	_, err = config.ParseStatutory("tax=PAYE;tax=OTHER")
	assert.Error(t, err)
	_, err = config.ParseStatutory("tax=")
	assert.Error(t, err)

	empty, err := config.ParseStatutory("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAuthority(t *testing.T) {
	open := &config.Config{}
	assert.True(t, open.Authority().CanApprove("anyone", nil))
	assert.False(t, open.Authority().CanApprove("", nil))

	strict := &config.Config{Payroll: config.PayrollConfig{Approvers: []string{"cfo"}}}
	assert.True(t, strict.Authority().CanApprove("cfo", nil))
	assert.False(t, strict.Authority().CanApprove("intern", nil))
}
