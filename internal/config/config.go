package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Oracle providers
const (
	OracleProviderOpenAI = "openai"
	OracleProviderGemini = "gemini"
	OracleProviderNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPAddr returns host:port for the HTTP listener
func (c ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddr returns host:port for the gRPC listener
func (c ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TLS       bool   `mapstructure:"tls"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	StreamName    string `mapstructure:"stream_name"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// OracleConfig selects and tunes the text-generation provider
type OracleConfig struct {
	Provider     string        `mapstructure:"provider"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the oracle
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Interval         time.Duration `mapstructure:"interval"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// RateLimitConfig is the per-client HTTP request limit, backed by Redis
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// KindLimits holds daily limits per scan kind for one tier
type KindLimits struct {
	Email         int `mapstructure:"email"`
	JobListing    int `mapstructure:"job_listing"`
	AddressDomain int `mapstructure:"address_domain"`
}

// LimitsConfig is the tier x kind limits table
type LimitsConfig struct {
	Anonymous KindLimits `mapstructure:"anonymous"`
	Free      KindLimits `mapstructure:"free"`
	Paid      KindLimits `mapstructure:"paid"`
}

type PolicyConfig struct {
	Limits                LimitsConfig `mapstructure:"limits"`
	ChargeOnOracleFailure bool         `mapstructure:"charge_on_oracle_failure"`
	AIScoringTiers        []string     `mapstructure:"ai_scoring_tiers"`
}

// Load reads configuration from file and environment variables. A missing
// config file is not an error; defaults and env vars still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/scamlens")
	}

	v.SetEnvPrefix("SCAMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets and toggles usually come from the environment
	v.BindEnv("database.enabled", "SCAMLENS_DATABASE_ENABLED")
	v.BindEnv("database.password", "SCAMLENS_DATABASE_PASSWORD")
	v.BindEnv("redis.enabled", "SCAMLENS_REDIS_ENABLED")
	v.BindEnv("redis.password", "SCAMLENS_REDIS_PASSWORD")
	v.BindEnv("nats.enabled", "SCAMLENS_NATS_ENABLED")
	v.BindEnv("oracle.provider", "SCAMLENS_ORACLE_PROVIDER")
	v.BindEnv("oracle.openai_api_key", "SCAMLENS_ORACLE_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("oracle.gemini_api_key", "SCAMLENS_ORACLE_GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("app.environment", "SCAMLENS_APP_ENVIRONMENT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "scamlens")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "0.1.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scamlens")
	v.SetDefault("database.dbname", "scamlens")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "scamlens:")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "SCANS")
	v.SetDefault("nats.subject_prefix", "scans.completed")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Content-Type", "X-Client-ID", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("oracle.provider", OracleProviderNone)
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.timeout", 20*time.Second)
	v.SetDefault("oracle.breaker.enabled", true)
	v.SetDefault("oracle.breaker.failure_threshold", 5)
	v.SetDefault("oracle.breaker.interval", time.Minute)
	v.SetDefault("oracle.breaker.open_timeout", 30*time.Second)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("policy.limits.anonymous.email", 3)
	v.SetDefault("policy.limits.anonymous.job_listing", 1)
	v.SetDefault("policy.limits.anonymous.address_domain", 1)
	v.SetDefault("policy.limits.free.email", 5)
	v.SetDefault("policy.limits.free.job_listing", 5)
	v.SetDefault("policy.limits.free.address_domain", 3)
	v.SetDefault("policy.limits.paid.email", 30)
	v.SetDefault("policy.limits.paid.job_listing", 30)
	v.SetDefault("policy.limits.paid.address_domain", 30)
	v.SetDefault("policy.charge_on_oracle_failure", true)
	v.SetDefault("policy.ai_scoring_tiers", []string{"paid"})
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	for tier, l := range map[string]KindLimits{
		"anonymous": c.Policy.Limits.Anonymous,
		"free":      c.Policy.Limits.Free,
		"paid":      c.Policy.Limits.Paid,
	} {
		if l.Email < 0 || l.JobListing < 0 || l.AddressDomain < 0 {
			return fmt.Errorf("policy.limits.%s: limits must not be negative", tier)
		}
	}

	switch c.Oracle.Provider {
	case OracleProviderOpenAI, OracleProviderGemini, OracleProviderNone, "":
	default:
		return fmt.Errorf("oracle.provider: unknown provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Timeout <= 0 {
		return errors.New("oracle.timeout must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("rate_limit: requests and window must be positive")
	}

	for _, t := range c.Policy.AIScoringTiers {
		switch t {
		case "anonymous", "free", "paid":
		default:
			return fmt.Errorf("policy.ai_scoring_tiers: unknown tier %q", t)
		}
	}
	return nil
}
