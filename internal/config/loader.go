package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig reads the optional YAML file, applies defaults and environment
// overrides, and validates the result. An empty configFile loads from the
// environment only.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.max_body_bytes", 64*1024)
	viper.SetDefault("server.contact_path", "/api/contact")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("rate_limit.window", "60s")
	viper.SetDefault("rate_limit.max_requests", 3)
	viper.SetDefault("rate_limit.sweep_interval", "5m")
	viper.SetDefault("rate_limit.store_timeout", "250ms")
	viper.SetDefault("rate_limit.key_prefix", "ratelimit:contact:")
	viper.SetDefault("rate_limit.shards", 32)

	viper.SetDefault("redis.port", 6379)

	viper.SetDefault("intake.min_submit_time", "3s")
	viper.SetDefault("intake.max_form_age", "1h")

	viper.SetDefault("mail.transport", "smtp")
	viper.SetDefault("mail.send_timeout", "15s")
	viper.SetDefault("mail.rate_per_second", 5.0)
	viper.SetDefault("mail.burst", 10)
	viper.SetDefault("mail.smtp.secure", true)
	viper.SetDefault("mail.smtp.dkim.selector", "default")

	viper.SetDefault("broker.kafka.events_topic", "contact_intake_events")
	viper.SetDefault("broker.kafka.publish_timeout", "5s")

	viper.SetDefault("tracing.service_name", "contact-service")
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT", "PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.max_body_bytes", "SERVER_MAX_BODY_BYTES")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("rate_limit.max_requests", "RATE_LIMIT_MAX_REQUESTS")
	viper.BindEnv("rate_limit.store_timeout", "RATE_LIMIT_STORE_TIMEOUT")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	// The SMTP_* and CONTACT_* names are the ones existing deployments already export.
	viper.BindEnv("mail.transport", "MAIL_TRANSPORT")
	viper.BindEnv("mail.from", "MAIL_FROM", "CONTACT_FROM")
	viper.BindEnv("mail.to", "MAIL_TO", "CONTACT_TO")
	viper.BindEnv("mail.send_timeout", "MAIL_SEND_TIMEOUT")
	viper.BindEnv("mail.smtp.host", "MAIL_SMTP_HOST", "SMTP_HOST")
	viper.BindEnv("mail.smtp.port", "MAIL_SMTP_PORT", "SMTP_PORT")
	viper.BindEnv("mail.smtp.secure", "MAIL_SMTP_SECURE", "SMTP_SECURE")
	viper.BindEnv("mail.smtp.user", "MAIL_SMTP_USER", "SMTP_USER")
	viper.BindEnv("mail.smtp.password", "MAIL_SMTP_PASSWORD", "SMTP_PASS")
	viper.BindEnv("mail.smtp.dkim.domain", "MAIL_SMTP_DKIM_DOMAIN")
	viper.BindEnv("mail.smtp.dkim.selector", "MAIL_SMTP_DKIM_SELECTOR")
	viper.BindEnv("mail.smtp.dkim.key_file", "MAIL_SMTP_DKIM_KEY_FILE")
	viper.BindEnv("mail.ses.region", "MAIL_SES_REGION", "AWS_REGION")
	viper.BindEnv("mail.ses.access_key_id", "MAIL_SES_ACCESS_KEY_ID")
	viper.BindEnv("mail.ses.secret_access_key", "MAIL_SES_SECRET_ACCESS_KEY")

	viper.BindEnv("broker.enabled", "BROKER_ENABLED")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.events_topic", "BROKER_KAFKA_EVENTS_TOPIC")

	viper.BindEnv("circuit_breaker.enabled", "CIRCUIT_BREAKER_ENABLED")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	// Sender defaults to the relay account.
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTP.User
	}

	return nil
}
