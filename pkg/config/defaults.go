package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "pitchbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultSlotLockTTL bounds how long an unconfirmed slot reservation
	// keeps the slot away from other players.
	DefaultSlotLockTTL = 3 * time.Minute

	DefaultDefaultSlotPrice       = 500
	DefaultDefaultSlotDurationMin = 60
	DefaultDefaultVenueMaxPlayers = 22
	DefaultVenueOpeningTime       = "06:00"
	DefaultVenueClosingTime       = "22:00"

	DefaultBookingEventsEnabled = false

	DefaultPaginationLimit = 100
)
