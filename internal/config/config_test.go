package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	t.Setenv("GALILEO_HTTP_PORT", "")
	t.Setenv("GALILEO_QUERY_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.False(t, cfg.AllowTimeWildcards)
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("GALILEO_HTTP_PORT", "9100")
	t.Setenv("GALILEO_QUERY_TIMEOUT", "5s")
	t.Setenv("GALILEO_ALLOW_TIME_WILDCARDS", "true")
	t.Setenv("HOSTNAME", "node-test")

	cfg := Load()
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.True(t, cfg.AllowTimeWildcards)
	assert.Equal(t, "node-test", cfg.Hostname)
}
