package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 40, cfg.MaxHP)
	assert.Equal(t, 30*time.Second, cfg.TurnDuration)
	assert.Equal(t, time.Second, cfg.WatchInterval)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "duel", cfg.NATSPrefix)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.StrictJoin)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"DUEL_STORE_DRIVER":   "SQLite",
		"DUEL_DB_DSN":         "duel.db",
		"DUEL_TURN_DURATION":  "5s",
		"DUEL_STRICT_JOIN":    "true",
		"DUEL_MAX_HP":         "10",
		"DUEL_SUBMIT_RATE":    "0.5",
		"DUEL_REDIS_ADDR":     "localhost:6379",
		"DUEL_WATCH_INTERVAL": "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.TurnDuration)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchInterval)
	assert.True(t, cfg.StrictJoin)
	assert.Equal(t, 10, cfg.MaxHP)
	assert.InDelta(t, 0.5, cfg.SubmitRate, 1e-9)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFrom_RejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":    {"DUEL_STORE_DRIVER": "mongo"},
		"postgres sans dsn": {"DUEL_STORE_DRIVER": "postgres"},
		"zero hp":           {"DUEL_MAX_HP": "0"},
		"negative turn":     {"DUEL_TURN_DURATION": "-1s"},
		"zero burst":        {"DUEL_SUBMIT_BURST": "0"},
		"bad duration":      {"DUEL_IDLE_TIMEOUT": "soon"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Config{StoreDriver: DriverMemory}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"DUEL_MAX_HP", "DUEL_TURN_DURATION", "DUEL_WATCH_INTERVAL", "DUEL_SUBMIT_RATE"} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %q", want, msg)
	}
}
