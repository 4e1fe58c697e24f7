package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "homestay"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Per-channel bound for fanout side effects (mail, bus publish). A slow
	// dependency turns into an ordinary logged delivery failure instead of a
	// stalled pipeline.
	DefaultFanoutTimeout = 5 * time.Second

	DefaultCancellationMinLead      = 24 * time.Hour
	DefaultCancellationReasonMinLen = 10

	DefaultSMTPHost = "localhost"
	DefaultSMTPPort = 587
	DefaultMailFrom = "no-reply@homestay.local"

	DefaultPaginationLimit = 100
)
