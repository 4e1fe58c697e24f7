package main

import (
	bookingshandler "homestay/internal/bookings/handler"
	bookingsrepo "homestay/internal/bookings/repository"
	bookingsservice "homestay/internal/bookings/service"
	bookingsvalidator "homestay/internal/bookings/validator"
	"homestay/internal/fanout"
	"homestay/internal/mail"
	notificationshandler "homestay/internal/notifications/handler"
	notificationsrepo "homestay/internal/notifications/repository"
	notificationsservice "homestay/internal/notifications/service"
	"homestay/internal/push"
	"homestay/internal/registry"
	usersrepo "homestay/internal/users/repository"
	"homestay/pkg/app"
	"homestay/pkg/config"
	"homestay/pkg/kafka"
	kafka_config "homestay/pkg/kafka/config"
	kafka_middleware "homestay/pkg/kafka/middleware"
)

func main() {
	cfg := config.Load("homestay-server")
	cfg.SetMongo()

	producer := initProducer(cfg)

	connRegistry := registry.New()

	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	notificationRepo := notificationsrepo.NewMongoNotificationRepository(cfg)
	userRepo := usersrepo.NewMongoUserRepository(cfg)

	// A typed nil must not reach the pipeline's interface field.
	var publisher fanout.Publisher
	if producer != nil {
		publisher = producer
	}

	pipeline := fanout.New(
		cfg,
		notificationRepo,
		userRepo,
		connRegistry,
		mail.NewSMTPMailer(cfg),
		publisher,
	)

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		userRepo,
		notificationRepo,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		pipeline,
		cfg,
	)
	notificationService := notificationsservice.NewNotificationService(
		notificationRepo,
		bookingService,
		cfg,
	)

	application := app.NewApplication(cfg)
	application.SetWebsocket(push.NewHandler(connRegistry, cfg.Log))
	application.SetApp(
		bookingshandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		notificationshandler.NewNotificationHandler(notificationService, cfg.Log),
	)

	application.OnShutdown(func() {
		pipeline.Wait()
		if producer != nil {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}
	})

	application.Run()
}

// initProducer builds the bus producer. A broker that is down at boot is
// tolerated: publishing is best-effort and the fanout logs each failure.
func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()

	producer, err := kafka.NewProducer(kafkaCfg, fanout.TopicNotifications)
	if err != nil {
		cfg.Log.Error("Failed to initialize Kafka producer, bus channel disabled", "error", err)
		return nil
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware())

	cfg.Log.Info("Kafka producer initialized", "topic", fanout.TopicNotifications)
	return producer
}
