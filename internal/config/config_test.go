package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("GRIMOIRE_TEST_HOST", "graph.local")
	os.Unsetenv("GRIMOIRE_TEST_MISSING")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"braces", "bolt://${GRIMOIRE_TEST_HOST}:7687", "bolt://graph.local:7687"},
		{"simple", "$GRIMOIRE_TEST_HOST", "graph.local"},
		{"default used", "${GRIMOIRE_TEST_MISSING:-fallback}", "fallback"},
		{"default ignored", "${GRIMOIRE_TEST_HOST:-fallback}", "graph.local"},
		{"missing braces", "x${GRIMOIRE_TEST_MISSING}y", "xy"},
		{"missing simple kept", "$GRIMOIRE_TEST_MISSING", "$GRIMOIRE_TEST_MISSING"},
		{"no vars", "plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.input))
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv(EnvNeo4jUser, "")
	t.Setenv(EnvNeo4jPass, "")

	cfg, err := Parse([]byte("app:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, 5*time.Second, cfg.Neo4j.ConnectTimeout())
	assert.Equal(t, time.Duration(0), cfg.Neo4j.QueryTimeout())
	assert.Equal(t, 2, cfg.Query.DefaultDepth)
	assert.Equal(t, 5, cfg.Query.DefaultLimit)
	assert.Equal(t, 8, cfg.Query.SidebarConcurrency)
	assert.False(t, cfg.Neo4j.HasCredentials())
	assert.Equal(t, "grimoire", cfg.MCP.Name)
}

func TestParse_CredentialsFromEnvironment(t *testing.T) {
	t.Setenv(EnvNeo4jUser, "reader")
	t.Setenv(EnvNeo4jPass, "s3cret")

	cfg, err := Parse([]byte("neo4j:\n  uri: bolt://db:7687\n"))
	require.NoError(t, err)

	assert.Equal(t, "reader", cfg.Neo4j.Username)
	assert.Equal(t, "s3cret", cfg.Neo4j.Password)
	assert.True(t, cfg.Neo4j.HasCredentials())
}

func TestParse_ExpandsCredentials(t *testing.T) {
	t.Setenv("GRIMOIRE_TEST_USER", "alice")
	t.Setenv(EnvNeo4jPass, "pw")

	cfg, err := Parse([]byte("neo4j:\n  username: ${GRIMOIRE_TEST_USER}\n  password: ${NEO4J_PASS}\n"))
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Neo4j.Username)
	assert.Equal(t, "pw", cfg.Neo4j.Password)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "app: [unterminated"},
		{"port range", "app:\n  port: 70000\n"},
		{"negative rate", "app:\n  rate_limit: -1\n"},
		{"negative timeout", "neo4j:\n  query_timeout_seconds: -3\n"},
		{"bad fp rate", "uid_filter:\n  false_positive_rate: 1.5\n"},
		{"negative depth", "query:\n  default_depth: -1\n"},
		{"depth above max", "query:\n  default_depth: 7\n"},
		{"limit above max", "query:\n  default_limit: 101\n"},
		{"sidebar concurrency reaches pool size", "neo4j:\n  max_connection_pool_size: 4\nquery:\n  sidebar_concurrency: 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  rate_limit: 10\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.App.RateLimit)
	assert.Equal(t, 20, cfg.App.RateBurst)
}

func TestParse_QueryBoundsAccepted(t *testing.T) {
	cfg, err := Parse([]byte("query:\n  default_depth: 6\n  default_limit: 100\n  sidebar_concurrency: 49\n"))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Query.DefaultDepth)
	assert.Equal(t, 100, cfg.Query.DefaultLimit)
	assert.Equal(t, 49, cfg.Query.SidebarConcurrency)
}
