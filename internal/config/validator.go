package config

import (
	"fmt"
	"net/mail"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateRateLimit(cfg.RateLimit); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Redis); err != nil {
		errors = append(errors, err)
	}

	if err := validateIntake(cfg.Intake); err != nil {
		errors = append(errors, err)
	}

	if err := validateSpam(cfg.Spam); err != nil {
		errors = append(errors, err)
	}

	if err := validateMail(cfg.Mail); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	if cfg.MaxBodyBytes <= 0 {
		return &ValidationError{
			Field:   "server.max_body_bytes",
			Message: "max body size must be positive",
		}
	}

	if !strings.HasPrefix(cfg.ContactPath, "/") {
		return &ValidationError{
			Field:   "server.contact_path",
			Message: "contact path must start with /",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if cfg.Window <= 0 {
		return &ValidationError{
			Field:   "rate_limit.window",
			Message: "window must be positive",
		}
	}

	if cfg.MaxRequests < 1 {
		return &ValidationError{
			Field:   "rate_limit.max_requests",
			Message: fmt.Sprintf("max requests must be at least 1, got %d", cfg.MaxRequests),
		}
	}

	if cfg.SweepInterval <= 0 {
		return &ValidationError{
			Field:   "rate_limit.sweep_interval",
			Message: "sweep interval must be positive",
		}
	}

	if cfg.StoreTimeout <= 0 {
		return &ValidationError{
			Field:   "rate_limit.store_timeout",
			Message: "store timeout must be positive",
		}
	}

	if cfg.Shards < 1 {
		return &ValidationError{
			Field:   "rate_limit.shards",
			Message: "shard count must be at least 1",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if !cfg.Enabled() {
		return nil
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.DB < 0 {
		return &ValidationError{
			Field:   "redis.db",
			Message: "database index must be non-negative",
		}
	}

	return nil
}

func validateIntake(cfg IntakeConfig) error {
	if cfg.MinSubmitTime < 0 {
		return &ValidationError{
			Field:   "intake.min_submit_time",
			Message: "minimum submit time must be non-negative",
		}
	}

	if cfg.MaxFormAge <= cfg.MinSubmitTime {
		return &ValidationError{
			Field:   "intake.max_form_age",
			Message: "max form age must be greater than min submit time",
		}
	}

	return nil
}

func validateSpam(cfg SpamConfig) error {
	seen := make(map[string]bool, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		if rule.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("spam.rules[%d].name", i),
				Message: "rule name is required",
			}
		}
		if seen[rule.Name] {
			return &ValidationError{
				Field:   fmt.Sprintf("spam.rules[%d].name", i),
				Message: fmt.Sprintf("duplicate rule name: %s", rule.Name),
			}
		}
		seen[rule.Name] = true

		if strings.TrimSpace(rule.Expression) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("spam.rules[%d].expression", i),
				Message: "rule expression is required",
			}
		}
	}

	return nil
}

func validateMail(cfg MailConfig) error {
	if cfg.To == "" {
		return &ValidationError{
			Field:   "mail.to",
			Message: "recipient address is required",
		}
	}

	if _, err := mail.ParseAddress(cfg.To); err != nil {
		return &ValidationError{
			Field:   "mail.to",
			Message: fmt.Sprintf("invalid recipient address: %v", err),
		}
	}

	if cfg.SendTimeout <= 0 {
		return &ValidationError{
			Field:   "mail.send_timeout",
			Message: "send timeout must be positive",
		}
	}

	if cfg.RatePerSecond < 0 || cfg.Burst < 0 {
		return &ValidationError{
			Field:   "mail.rate_per_second",
			Message: "outbound rate and burst must be non-negative",
		}
	}

	switch strings.ToLower(cfg.Transport) {
	case "", "smtp":
		if err := validateSMTP(cfg.SMTP); err != nil {
			return err
		}
	case "ses":
		if cfg.SES.Region == "" {
			return &ValidationError{
				Field:   "mail.ses.region",
				Message: "SES region is required",
			}
		}
	default:
		return &ValidationError{
			Field:   "mail.transport",
			Message: fmt.Sprintf("unknown mail transport: %s (supported: smtp, ses)", cfg.Transport),
		}
	}

	if cfg.From == "" {
		return &ValidationError{
			Field:   "mail.from",
			Message: "sender address is required (set mail.from or mail.smtp.user)",
		}
	}

	return nil
}

func validateSMTP(cfg SMTPConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "mail.smtp.host",
			Message: "SMTP host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "mail.smtp.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if (cfg.User == "") != (cfg.Password == "") {
		return &ValidationError{
			Field:   "mail.smtp.user",
			Message: "SMTP user and password must be set together",
		}
	}

	if cfg.DKIM.KeyFile != "" && cfg.DKIM.Domain == "" {
		return &ValidationError{
			Field:   "mail.smtp.dkim.domain",
			Message: "DKIM domain is required when a DKIM key file is configured",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Kafka.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Kafka.EventsTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.events_topic",
			Message: "events topic is required",
		}
	}

	return nil
}
