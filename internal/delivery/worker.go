package delivery

import (
	"context"
	"fmt"

	"homestay/internal/fanout"
	"homestay/internal/registry"
	"homestay/pkg/kafka"
	"homestay/pkg/logger"
)

const (
	// GroupID is the consumer group for the out-of-process delivery path.
	GroupID = "notification-delivery"
)

// Worker re-delivers bus events to live connections this process manages.
// It runs beside the API server as an alternate delivery path: the API's own
// push channel covers connections on the API process, the worker covers
// connections on delivery processes. It writes no feed rows.
type Worker struct {
	registry *registry.Registry
	log      *logger.Logger
}

func NewWorker(reg *registry.Registry, log *logger.Logger) *Worker {
	return &Worker{
		registry: reg,
		log:      log,
	}
}

// Handle is the consumer callback for one bus event. Events for users
// without a local connection are acknowledged and dropped; returning an
// error here would send perfectly healthy messages to the DLQ.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	var event fanout.BusEvent
	if err := msg.DecodeValue(&event); err != nil {
		return fmt.Errorf("failed to decode bus event: %w", err)
	}
	if event.UserID == "" || event.Type == "" {
		return fmt.Errorf("bus event missing user_id or type: %q", string(msg.Value))
	}

	conn, ok := w.registry.Lookup(event.UserID)
	if !ok {
		w.log.Debug("no local connection for bus event",
			"user_id", event.UserID,
			"event_type", event.Type,
		)
		return nil
	}

	if err := conn.Send(event.Type, event); err != nil {
		w.log.Warn("failed to push bus event",
			"user_id", event.UserID,
			"event_type", event.Type,
			"error", err,
		)
		// The connection is likely gone; the registry will catch up when
		// the socket closes. Not a redelivery candidate.
		return nil
	}

	w.log.Debug("bus event delivered",
		"user_id", event.UserID,
		"event_type", event.Type,
		"event_id", msg.GetEventID(),
	)
	return nil
}
