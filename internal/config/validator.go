package config

import (
	"fmt"

	"sessionmgr/pkg/version"
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

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateResolver(cfg.Resolver); err != nil {
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

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		// Broker is optional; without one, resolvers rely on the reload ticker.
		return nil
	}

	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type %q", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one broker address is required",
		}
	}

	if cfg.ConfigUpdateTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.config_update_topic",
			Message: "config update topic is required",
		}
	}

	return nil
}

func validateResolver(cfg ResolverConfig) error {
	if cfg.CoordinatorVersion != "" {
		if _, err := version.Parse(cfg.CoordinatorVersion); err != nil {
			return &ValidationError{
				Field:   "resolver.coordinator_version",
				Message: err.Error(),
			}
		}
	}

	switch cfg.RuleSource {
	case "", "postgres":
	case "file":
		if cfg.RuleFile == "" {
			return &ValidationError{
				Field:   "resolver.rule_file",
				Message: "rule file path is required when rule_source is \"file\"",
			}
		}
	default:
		return &ValidationError{
			Field:   "resolver.rule_source",
			Message: fmt.Sprintf("unknown rule source %q", cfg.RuleSource),
		}
	}

	if cfg.Reload.IntervalSeconds < 0 {
		return &ValidationError{
			Field:   "resolver.reload.interval_seconds",
			Message: "reload interval must not be negative",
		}
	}

	if cfg.Cache.Enabled && cfg.Cache.TTLSeconds <= 0 {
		return &ValidationError{
			Field:   "resolver.cache.ttl_seconds",
			Message: "cache ttl must be positive when the cache is enabled",
		}
	}

	return nil
}
