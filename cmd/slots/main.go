package main

import (
	"pitchbook/internal/slots/handler"
	"pitchbook/internal/slots/repository"
	"pitchbook/internal/slots/service"
	"pitchbook/internal/slots/validator"
	venuerepo "pitchbook/internal/venues/repository"
	"pitchbook/pkg/app"
	"pitchbook/pkg/config"
)

const ServiceName = "slots"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Slots service")
	slotService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewSlotHandler(slotService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.SlotService {
	slotValidator := validator.NewSlotValidator(cfg.Log)
	slotRepo := repository.NewMongoSlotRepository(cfg)
	venueRepo := venuerepo.NewMongoVenueRepository(cfg)
	slotService := service.NewSlotService(
		slotRepo,
		venueRepo,
		slotValidator,
		cfg,
	)

	cfg.Log.Info("Slot service initialized", "database", cfg.MongoDatabaseName)
	return slotService
}
