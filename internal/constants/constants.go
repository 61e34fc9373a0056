package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixResolve = "resolve:"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultReloadIntervalSeconds = 60
	DefaultCacheTTLSeconds       = 30
)

const (
	RuleSourcePostgres = "postgres"
	RuleSourceFile     = "file"
)
