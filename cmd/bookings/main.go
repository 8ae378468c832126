package main

import (
	"pitchbook/internal/bookings/events"
	"pitchbook/internal/bookings/handler"
	"pitchbook/internal/bookings/repository"
	"pitchbook/internal/bookings/service"
	"pitchbook/internal/bookings/validator"
	slotrepo "pitchbook/internal/slots/repository"
	venuerepo "pitchbook/internal/venues/repository"
	"pitchbook/pkg/app"
	"pitchbook/pkg/config"
	"pitchbook/pkg/kafka"
	kafkaconfig "pitchbook/pkg/kafka/config"
	kafkamiddleware "pitchbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.BookingEventsEnabled {
		cfg.Log.Info("Booking events disabled, using noop publisher")
		return events.NewNoopPublisher()
	}

	kafkaCfg := kafkaconfig.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, events.TopicBookings, events.TopicBookingsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.ProducerLogging(cfg.Log))

	cfg.Log.Info("Booking event publisher initialized",
		"topic", events.TopicBookings,
		"dlq_topic", events.TopicBookingsDLQ,
	)
	return events.NewKafkaPublisher(producer, cfg.Log)
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	itemRepo := repository.NewMongoBookingItemRepository(cfg)
	slotRepo := slotrepo.NewMongoSlotRepository(cfg)
	venueRepo := venuerepo.NewMongoVenueRepository(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		itemRepo,
		slotRepo,
		venueRepo,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
