package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotLockTTL             = "SLOT_LOCK_TTL"
	EnvDefaultSlotPrice        = "DEFAULT_SLOT_PRICE"
	EnvDefaultSlotDurationMin  = "DEFAULT_SLOT_DURATION_MIN"
	EnvDefaultVenueMaxPlayers  = "DEFAULT_VENUE_MAX_PLAYERS"
	EnvDefaultVenueOpeningTime = "DEFAULT_VENUE_OPENING_TIME"
	EnvDefaultVenueClosingTime = "DEFAULT_VENUE_CLOSING_TIME"

	EnvBookingEventsEnabled = "BOOKING_EVENTS_ENABLED"
)
