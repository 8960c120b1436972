package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/Kenkkila/grimoire-site/internal/service/cypher"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Environment variables holding the graph store credentials
const (
	EnvNeo4jUser = "NEO4J_USER"
	EnvNeo4jPass = "NEO4J_PASS"
)

type App struct {
	Port      int     `yaml:"port"`
	DebugHTTP bool    `yaml:"debug_http,omitempty"` // Log full request/response bodies
	LogLevel  string  `yaml:"log_level,omitempty"`  // debug, info, warn, error (default: info)
	RateLimit float64 `yaml:"rate_limit,omitempty"` // Requests per second across the API, 0 disables
	RateBurst int     `yaml:"rate_burst,omitempty"`
}

type Neo4jConfig struct {
	URI                   string `yaml:"uri"`
	Username              string `yaml:"username"`
	Password              string `yaml:"password"`
	Database              string `yaml:"database,omitempty"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds,omitempty"`
	QueryTimeoutSeconds   int    `yaml:"query_timeout_seconds,omitempty"` // 0 means no per-query timeout
	MaxConnectionPoolSize int    `yaml:"max_connection_pool_size,omitempty"`
}

// HasCredentials reports whether both username and password are set
func (c Neo4jConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// ConnectTimeout returns the connectivity check timeout
func (c Neo4jConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-query timeout, zero when disabled
func (c Neo4jConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// QueryConfig holds defaults for the N-hop related query
type QueryConfig struct {
	DefaultDepth       int `yaml:"default_depth"`
	DefaultLimit       int `yaml:"default_limit"`
	SidebarConcurrency int `yaml:"sidebar_concurrency,omitempty"` // Max others-of-type queries in flight per item
}

// UIDFilterConfig configures the bloom filter used to skip lookups of unknown uids
type UIDFilterConfig struct {
	Enabled           bool    `yaml:"enabled"`
	ExpectedItems     uint    `yaml:"expected_items"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
}

type MCPConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type Config struct {
	App       App             `yaml:"app"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	Query     QueryConfig     `yaml:"query"`
	UIDFilter UIDFilterConfig `yaml:"uid_filter"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.RateLimit > 0 && c.App.RateBurst <= 0 {
		c.App.RateBurst = int(c.App.RateLimit) * 2
	}
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = "bolt://localhost:7687"
	}
	if c.Neo4j.ConnectTimeoutSeconds == 0 {
		c.Neo4j.ConnectTimeoutSeconds = 5
	}
	if c.Neo4j.MaxConnectionPoolSize == 0 {
		c.Neo4j.MaxConnectionPoolSize = 50
	}
	// Credentials fall back to the plain environment variables
	if c.Neo4j.Username == "" {
		c.Neo4j.Username = os.Getenv(EnvNeo4jUser)
	}
	if c.Neo4j.Password == "" {
		c.Neo4j.Password = os.Getenv(EnvNeo4jPass)
	}
	if c.Query.DefaultDepth == 0 {
		c.Query.DefaultDepth = 2
	}
	if c.Query.DefaultLimit == 0 {
		c.Query.DefaultLimit = 5
	}
	if c.Query.SidebarConcurrency == 0 {
		c.Query.SidebarConcurrency = 8
	}
	if c.UIDFilter.ExpectedItems == 0 {
		c.UIDFilter.ExpectedItems = 100000
	}
	if c.UIDFilter.FalsePositiveRate == 0 {
		c.UIDFilter.FalsePositiveRate = 0.01
	}
	if c.MCP.Name == "" {
		c.MCP.Name = "grimoire"
	}
	if c.MCP.Version == "" {
		c.MCP.Version = "0.1.0"
	}
}

func (c *Config) validate() error {
	if c.App.Port < 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	if c.App.RateLimit < 0 {
		return fmt.Errorf("app.rate_limit must not be negative")
	}
	if c.Neo4j.QueryTimeoutSeconds < 0 || c.Neo4j.ConnectTimeoutSeconds < 0 {
		return fmt.Errorf("neo4j timeouts must not be negative")
	}
	if c.Query.DefaultDepth < 1 || c.Query.DefaultDepth > cypher.MaxDepth {
		return fmt.Errorf("query.default_depth must be in [1, %d]: %d", cypher.MaxDepth, c.Query.DefaultDepth)
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > cypher.MaxLimit {
		return fmt.Errorf("query.default_limit must be in [1, %d]: %d", cypher.MaxLimit, c.Query.DefaultLimit)
	}
	// each sidebar query holds a pooled connection
	if c.Query.SidebarConcurrency < 1 || c.Query.SidebarConcurrency >= c.Neo4j.MaxConnectionPoolSize {
		return fmt.Errorf("query.sidebar_concurrency must be in [1, %d): %d",
			c.Neo4j.MaxConnectionPoolSize, c.Query.SidebarConcurrency)
	}
	if c.UIDFilter.FalsePositiveRate <= 0 || c.UIDFilter.FalsePositiveRate >= 1 {
		return fmt.Errorf("uid_filter.false_positive_rate must be in (0, 1)")
	}
	return nil
}

// expandEnvVars expands environment variables in the given string
// Supports formats: ${VAR}, $VAR, ${VAR:-default}
func expandEnvVars(s string) string {
	// Pattern for ${VAR:-default} or ${VAR}
	reBraces := regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)
	s = reBraces.ReplaceAllStringFunc(s, func(match string) string {
		parts := reBraces.FindStringSubmatch(match)
		if len(parts) >= 2 {
			varName := parts[1]
			defaultValue := ""
			if len(parts) >= 4 {
				defaultValue = parts[3]
			}
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultValue
		}
		return match
	})

	// Pattern for $VAR (without braces)
	reSimple := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = reSimple.ReplaceAllStringFunc(s, func(match string) string {
		parts := reSimple.FindStringSubmatch(match)
		if len(parts) >= 2 {
			if val, ok := os.LookupEnv(parts[1]); ok {
				return val
			}
		}
		return match
	})

	return s
}

// LoadConfig reads the app config file. A .env file next to the working directory is
// loaded first when present so credentials can live outside the YAML.
func LoadConfig(appConfigPath string) (*Config, error) {
	_ = godotenv.Load()

	if _, err := os.Stat(appConfigPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("app config file does not exist: %s", appConfigPath)
	}

	data, err := os.ReadFile(appConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read app config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes after environment expansion and applies defaults
func Parse(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal app config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
