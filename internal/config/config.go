package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Relay    RelayConfig    `yaml:"relay"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LedgerConfig holds anchoring service configuration. The token and offline
// flag can be overridden through the CAPTURE_TOKEN and MOCK_NUMBERS_API
// environment variables so credentials stay out of config files.
type LedgerConfig struct {
	APIBase          string        `yaml:"api_base"`
	CommitAPI        string        `yaml:"commit_api"`
	Token            string        `yaml:"token"`
	AssetFileBaseURL string        `yaml:"asset_file_base_url"`
	ExplorerBase     string        `yaml:"explorer_base"`
	Offline          bool          `yaml:"offline"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GPUHourRate      float64       `yaml:"gpu_hour_rate"`
}

// RabbitMQConfig holds RabbitMQ connection and topology configuration
type RabbitMQConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	VHost             string        `yaml:"vhost"`
	Exchange          string        `yaml:"exchange"`
	Queue             string        `yaml:"queue"`
	RoutingKey        string        `yaml:"routing_key"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	PublishRetries    int           `yaml:"publish_retries"`
	PublishRetryDelay time.Duration `yaml:"publish_retry_delay"`
	PrefetchCount     int           `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// RelayConfig holds relay service configuration
type RelayConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file, then applies environment
// overrides.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("CAPTURE_TOKEN"); token != "" {
		c.Ledger.Token = token
	}
	if base := os.Getenv("ASSET_FILE_BASE_URL"); base != "" {
		c.Ledger.AssetFileBaseURL = base
	}
	if os.Getenv("MOCK_NUMBERS_API") == "true" {
		c.Ledger.Offline = true
	}
}

// ValidateAPIConfig checks the fields the API service depends on.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateLedger(); err != nil {
		return err
	}

	return c.validateRabbitMQ()
}

// ValidateRelayConfig checks the fields the relay service depends on.
func (c *Config) ValidateRelayConfig() error {
	if c.Relay.Concurrency <= 0 {
		return fmt.Errorf("relay concurrency must be greater than 0")
	}

	if c.Relay.ShutdownTimeout <= 0 {
		return fmt.Errorf("relay shutdown_timeout must be greater than 0")
	}

	if err := c.validateLedger(); err != nil {
		return err
	}

	return c.validateRabbitMQ()
}

func (c *Config) validateLedger() error {
	if c.Ledger.AssetFileBaseURL == "" {
		return fmt.Errorf("ledger asset_file_base_url is required")
	}

	// Offline mode needs no endpoints or credential.
	if c.Ledger.Offline {
		return nil
	}

	if c.Ledger.APIBase == "" {
		return fmt.Errorf("ledger api_base is required")
	}

	if c.Ledger.CommitAPI == "" {
		return fmt.Errorf("ledger commit_api is required")
	}

	if c.Ledger.Token == "" {
		return fmt.Errorf("ledger token is required (set CAPTURE_TOKEN or ledger.token)")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
