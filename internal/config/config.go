package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Intake         IntakeConfig         `mapstructure:"intake"`
	Spam           SpamConfig           `mapstructure:"spam"`
	Mail           MailConfig           `mapstructure:"mail"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ContactPath  string        `mapstructure:"contact_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	MaxRequests   int           `mapstructure:"max_requests"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	Shards        int           `mapstructure:"shards"`
}

// RedisConfig is the optional shared rate store. An empty host keeps the
// limiter purely in-process.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type IntakeConfig struct {
	MinSubmitTime time.Duration `mapstructure:"min_submit_time"`
	MaxFormAge    time.Duration `mapstructure:"max_form_age"`
}

type SpamConfig struct {
	ExtraKeywords []string   `mapstructure:"extra_keywords"`
	ExtraDomains  []string   `mapstructure:"extra_domains"`
	Rules         []SpamRule `mapstructure:"rules"`
}

type SpamRule struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
}

type MailConfig struct {
	Transport     string        `mapstructure:"transport"` // "smtp" (default) or "ses"
	From          string        `mapstructure:"from"`
	To            string        `mapstructure:"to"`
	SendTimeout   time.Duration `mapstructure:"send_timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	SMTP          SMTPConfig    `mapstructure:"smtp"`
	SES           SESConfig     `mapstructure:"ses"`
}

type SMTPConfig struct {
	Host     string     `mapstructure:"host"`
	Port     int        `mapstructure:"port"`
	Secure   bool       `mapstructure:"secure"`
	User     string     `mapstructure:"user"`
	Password string     `mapstructure:"password"`
	HeloName string     `mapstructure:"helo_name"`
	DKIM     DKIMConfig `mapstructure:"dkim"`
}

type DKIMConfig struct {
	Domain   string `mapstructure:"domain"`
	Selector string `mapstructure:"selector"`
	KeyFile  string `mapstructure:"key_file"`
}

type SESConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type BrokerConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	EventsTopic    string        `mapstructure:"events_topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
