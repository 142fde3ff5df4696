package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/internal/services/risk"
)

func TestGetters(t *testing.T) {
	t.Setenv("AML_STR", "value")
	t.Setenv("AML_INT", "42")
	t.Setenv("AML_BAD_INT", "forty")
	t.Setenv("AML_DUR", "90s")
	t.Setenv("AML_LIST", " a, ,b ,c")

	assert.Equal(t, "value", GetEnv("AML_STR", "x"))
	assert.Equal(t, "x", GetEnv("AML_MISSING", "x"))
	assert.Equal(t, 42, GetIntEnv("AML_INT", 1))
	assert.Equal(t, 1, GetIntEnv("AML_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, GetDurationEnv("AML_DUR", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, GetListEnv("AML_LIST"))
	assert.Nil(t, GetListEnv("AML_MISSING"))
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "aml.assessments", cfg.KafkaTopic)
	assert.False(t, cfg.IsProduction())
}

func TestRiskConfig_Overrides(t *testing.T) {
	t.Setenv("RISK_LARGE_AMOUNT", "75000.50")
	t.Setenv("RISK_KEYWORDS", "crypto,Casino")
	t.Setenv("RISK_WATCHED_RECIPIENTS", "ACC-1,ACC-2")
	t.Setenv("RISK_REPEAT_RECIPIENT_MIN", "4")

	cfg := RiskConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, decimal.RequireFromString("75000.50").Equal(cfg.LargeAmount))
	assert.Equal(t, []string{"crypto", "Casino"}, cfg.Keywords)
	assert.Equal(t, []string{"ACC-1", "ACC-2"}, cfg.WatchedRecipients)
	assert.Equal(t, 4, cfg.RepeatRecipientMin)
	assert.Equal(t, risk.DefaultConfig().FlaggedAt, cfg.FlaggedAt)
}

func TestConfig_Stores(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/aml.db")
	t.Setenv("REDIS_HOST", "")

	cfg := Load()
	db := cfg.Database()
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, "/tmp/aml.db", db.SQLitePath)
	assert.Equal(t, 100, db.MaxOpenConns)
	assert.Nil(t, cfg.Redis())

	t.Setenv("REDIS_HOST", "cache.local")
	t.Setenv("REDIS_DB", "2")
	redisCfg := Load().Redis()
	require.NotNil(t, redisCfg)
	assert.Equal(t, "cache.local", redisCfg.Host)
	assert.Equal(t, "6379", redisCfg.Port)
	assert.Equal(t, 2, redisCfg.DB)
}
