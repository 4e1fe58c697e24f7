package fanout

import (
	"context"
	"fmt"
	"sync"

	notificationsrepo "homestay/internal/notifications/repository"
	"homestay/internal/registry"
	usersrepo "homestay/internal/users/repository"
	"homestay/pkg/config"
	apperrors "homestay/pkg/errors"
	"homestay/pkg/kafka"
	"homestay/pkg/locale"
	"homestay/pkg/logger"
	"homestay/pkg/model"
)

const (
	// TopicNotifications is the bus topic lifecycle events are published to.
	TopicNotifications = "notifications"

	busSource = "booking-service"

	// EventApprovedByMe is pushed to the deciding host's own connection so
	// their other tabs refresh after an approval.
	EventApprovedByMe = "booking_approved_by_me"
)

// BusEvent is the lightweight payload published per lifecycle event. The
// consumer pushes it as-is; it never re-derives the full notification.
type BusEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	BookingID string `json:"booking_id"`
}

// Publisher is the slice of the Kafka producer the pipeline needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Mailer is the slice of the mail transport the pipeline needs.
type Mailer interface {
	Send(ctx context.Context, to string, subject string, htmlBody string) error
}

// Pipeline fans one booking lifecycle event out to four channels: the
// persisted notification feed, the message bus, the recipient's live
// connection, and email. Only the feed write is synchronous with the caller;
// every channel has its own error boundary and no failure ever propagates.
type Pipeline struct {
	cfg      *config.Config
	log      *logger.Logger
	store    notificationsrepo.NotificationRepository
	users    usersrepo.UserRepository
	registry *registry.Registry
	mailer   Mailer
	producer Publisher

	wg sync.WaitGroup
}

func New(
	cfg *config.Config,
	store notificationsrepo.NotificationRepository,
	users usersrepo.UserRepository,
	reg *registry.Registry,
	mailer Mailer,
	producer Publisher,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		log:      cfg.Log,
		store:    store,
		users:    users,
		registry: reg,
		mailer:   mailer,
		producer: producer,
	}
}

// RecipientFor maps an event type to the user who should be notified.
// Cancellation events go to the party who did not cancel.
func RecipientFor(eventType string, booking *model.Booking) string {
	switch eventType {
	case model.TypeBookingRequest:
		return booking.Host
	case model.TypeBookingApproved, model.TypeBookingRejected:
		return booking.Guest
	case model.TypeBookingCancelled:
		if booking.Status == model.StatusCancelledByGuest {
			return booking.Host
		}
		return booking.Guest
	}
	return ""
}

// Dispatch runs the fanout for one event. The notification write happens on
// the caller's goroutine; bus, push and email are spawned with their own
// deadline and are not cancelled when the originating request finishes.
func (p *Pipeline) Dispatch(ctx context.Context, eventType string, booking *model.Booking) {
	recipientID := RecipientFor(eventType, booking)
	if recipientID == "" {
		p.log.Error("no recipient for event", "event_type", eventType, "booking_id", booking.ID)
		return
	}

	recipient, err := p.users.FindByID(ctx, recipientID)
	if err != nil {
		p.log.Warn("recipient lookup failed, rendering with defaults",
			"user_id", recipientID,
			"event_type", eventType,
			"error", err,
		)
	}

	dateLayout := locale.DefaultDateLayout
	if recipient != nil {
		dateLayout = locale.DateLayoutForPhone(recipient.Phone)
	}
	counterpartName := p.usernameOf(ctx, booking.OtherParty(recipientID))

	notification := &model.Notification{
		User:    recipientID,
		Type:    eventType,
		Message: renderMessage(eventType, counterpartName, booking, dateLayout),
		Booking: booking.ID,
	}
	if err := p.store.Create(ctx, notification); err != nil {
		p.log.Error("delivery channel failed",
			"channel", "store",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", apperrors.Delivery("store", err),
		)
	}

	p.spawn("kafka", eventType, booking.ID, func(ctx context.Context) error {
		if p.producer == nil {
			return nil
		}
		msg := kafka.NewMessage().
			WithKey(recipientID).
			WithValue(BusEvent{
				Type:      eventType,
				UserID:    recipientID,
				BookingID: booking.ID,
			}).
			WithEventType(eventType).
			WithSource(busSource).
			Build()
		return p.producer.Publish(ctx, msg)
	})

	p.spawn("push", eventType, booking.ID, func(ctx context.Context) error {
		conn, ok := p.registry.Lookup(recipientID)
		if !ok {
			return nil
		}
		return conn.Send(eventType, notification)
	})

	p.spawn("email", eventType, booking.ID, func(ctx context.Context) error {
		if recipient == nil || recipient.Email == "" {
			return fmt.Errorf("no email address for user %s", recipientID)
		}
		subject, body := renderEmail(eventType, counterpartName, booking, dateLayout)
		return p.mailer.Send(ctx, recipient.Email, subject, body)
	})
}

// PushDirect sends an event straight to one user's live connection,
// bypassing the feed and the bus. Absent connections and send failures are
// logged and dropped.
func (p *Pipeline) PushDirect(userID string, event string, payload any) {
	conn, ok := p.registry.Lookup(userID)
	if !ok {
		return
	}
	if err := conn.Send(event, payload); err != nil {
		p.log.Error("delivery channel failed",
			"channel", "push",
			"event_type", event,
			"user_id", userID,
			"error", apperrors.Delivery("push", err),
		)
	}
}

// Wait blocks until all in-flight channel goroutines finish. Called on
// shutdown so best-effort deliveries get their full timeout.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) spawn(channel string, eventType string, bookingID string, fn func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("delivery channel panicked",
					"channel", channel,
					"event_type", eventType,
					"booking_id", bookingID,
					"panic", r,
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FanoutTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			p.log.Error("delivery channel failed",
				"channel", channel,
				"event_type", eventType,
				"booking_id", bookingID,
				"error", apperrors.Delivery(channel, err),
			)
		}
	}()
}

func (p *Pipeline) usernameOf(ctx context.Context, userID string) string {
	user, err := p.users.FindByID(ctx, userID)
	if err != nil || user == nil || user.Username == "" {
		return "Another member"
	}
	return user.Username
}
