package main

import (
	"context"
	"errors"

	"homestay/internal/delivery"
	"homestay/internal/fanout"
	"homestay/internal/push"
	"homestay/internal/registry"
	"homestay/pkg/app"
	"homestay/pkg/config"
	"homestay/pkg/kafka"
	kafka_config "homestay/pkg/kafka/config"
	kafka_middleware "homestay/pkg/kafka/middleware"
)

const dlqTopic = "notifications-dlq"

func main() {
	cfg := config.Load("homestay-delivery")

	connRegistry := registry.New()
	worker := delivery.NewWorker(connRegistry, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafka_config.Load(),
		fanout.TopicNotifications,
		delivery.GroupID,
		dlqTopic,
		worker.Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		cfg.Log.Info("Starting bus consumer",
			"topic", fanout.TopicNotifications,
			"group_id", delivery.GroupID,
		)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Bus consumer stopped", "error", err)
		}
	}()

	application := app.NewApplication(cfg)
	application.SetWebsocket(push.NewHandler(connRegistry, cfg.Log))
	application.SetApp(delivery.NewHealthHandler(connRegistry, cfg.Log))

	application.OnShutdown(func() {
		cancel()
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka consumer", "error", err)
		}
	})

	application.Run()
}
