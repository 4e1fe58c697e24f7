package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "homestay/internal/bookings/errors"
	"homestay/internal/bookings/repository"
	"homestay/internal/bookings/validator"
	"homestay/internal/fanout"
	notificationsrepo "homestay/internal/notifications/repository"
	userserrors "homestay/internal/users/errors"
	usersrepo "homestay/internal/users/repository"
	"homestay/pkg/config"
	apperrors "homestay/pkg/errors"
	"homestay/pkg/model"
	"homestay/pkg/sanitizer"
)

// Fanout is the slice of the fanout pipeline the service needs.
type Fanout interface {
	Dispatch(ctx context.Context, eventType string, booking *model.Booking)
	PushDirect(userID string, event string, payload any)
}

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Decide(ctx context.Context, id string, actor string, newStatus string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, actor string, reason string) (*model.Booking, error)
	CheckAvailability(ctx context.Context, host string, start, end time.Time) (bool, error)
	ListActive(ctx context.Context, userID string) (*model.ActiveBookings, error)
}

type bookingService struct {
	repo          repository.BookingRepository
	users         usersrepo.UserRepository
	notifications notificationsrepo.NotificationRepository
	validator     *validator.BookingValidator
	fanout        Fanout
	cfg           *config.Config

	// now is swapped in tests to pin the cancellation window.
	now func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	users usersrepo.UserRepository,
	notifications notificationsrepo.NotificationRepository,
	validator *validator.BookingValidator,
	fanout Fanout,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:          repo,
		users:         users,
		notifications: notifications,
		validator:     validator,
		fanout:        fanout,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Create persists a new pending stay request and fans the request event out
// to the host. Availability is advisory only: two guests racing for the same
// dates both succeed, and the host resolves the conflict when deciding.
func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.applyDefaults(booking)
	s.sanitize(booking)
	if err := s.validate(booking); err != nil {
		return err
	}

	if _, err := s.users.FindByID(ctx, booking.Host); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return apperrors.NotFoundWithID("Host", booking.Host)
		}
		return apperrors.Internal("Failed to resolve host", err)
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"guest", booking.Guest,
		"host", booking.Host,
		"start_date", booking.StartDate,
	)

	s.fanout.Dispatch(ctx, model.TypeBookingRequest, booking)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

// Decide lets the host approve or reject a pending request. On approval the
// originating request notification is marked read and the host's own live
// connection gets a confirmation push.
func (s *bookingService) Decide(ctx context.Context, id string, actor string, newStatus string) (*model.Booking, error) {
	if newStatus != model.StatusApproved && newStatus != model.StatusRejected {
		return nil, apperrors.InvalidInput("Decision must be 'approved' or 'rejected'")
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor != booking.Host {
		return nil, apperrors.Forbidden("Only the host can decide on a stay request")
	}
	if booking.Status != model.StatusPending {
		return nil, apperrors.InvalidTransition(booking.Status, newStatus)
	}

	booking.Status = newStatus
	if _, err := s.repo.Update(ctx, id, booking); err != nil {
		s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update booking", err)
	}

	s.cfg.Log.Info("Booking decided",
		"id", id,
		"host", booking.Host,
		"status", newStatus,
	)

	event := model.TypeBookingRejected
	if newStatus == model.StatusApproved {
		event = model.TypeBookingApproved
	}
	s.fanout.Dispatch(ctx, event, booking)

	if newStatus == model.StatusApproved {
		if err := s.notifications.MarkReadByBooking(ctx, booking.ID, booking.Host, model.TypeBookingRequest); err != nil {
			s.cfg.Log.Warn("Failed to mark request notification read", "booking_id", booking.ID, "error", err)
		}
		s.fanout.PushDirect(booking.Host, fanout.EventApprovedByMe, booking)
	}

	return booking, nil
}

// Cancel aborts an approved stay. Only the guest or the host can cancel,
// only before the stay starts, and only with more lead time than the
// configured window.
func (s *bookingService) Cancel(ctx context.Context, id string, actor string, reason string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var target string
	switch actor {
	case booking.Guest:
		target = model.StatusCancelledByGuest
	case booking.Host:
		target = model.StatusCancelledByHost
	default:
		return nil, apperrors.Forbidden("Only the guest or the host can cancel a stay")
	}

	if booking.Status != model.StatusApproved {
		return nil, apperrors.InvalidTransition(booking.Status, target)
	}

	reason = sanitizer.NormalizeFreeText(reason)
	if len(reason) < s.cfg.CancellationReasonMinLen {
		return nil, apperrors.Validation("Cancellation reason is too short", map[string]any{
			"min_length": s.cfg.CancellationReasonMinLen,
		})
	}

	now := s.now()
	if now.After(booking.StartDate) {
		return nil, apperrors.TimeWindow("The stay has already started")
	}
	if booking.StartDate.Sub(now) <= s.cfg.CancellationMinLead {
		return nil, apperrors.TimeWindow("Too close to the start of the stay to cancel")
	}

	booking.Status = target
	booking.CancellationReason = reason
	booking.CancelledAt = &now

	if _, err := s.repo.Update(ctx, id, booking); err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled",
		"id", id,
		"actor", actor,
		"status", target,
	)

	s.fanout.Dispatch(ctx, model.TypeBookingCancelled, booking)
	return booking, nil
}

// CheckAvailability reports whether the host's calendar is free for the
// half-open range [start, end). It is advisory; Create does not re-check.
func (s *bookingService) CheckAvailability(ctx context.Context, host string, start, end time.Time) (bool, error) {
	if host == "" {
		return false, apperrors.InvalidInput("Host ID cannot be empty")
	}
	if !end.After(start) {
		return false, apperrors.Validation("End date must be after start date", nil)
	}

	overlap, err := s.repo.HasOverlap(ctx, host, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to check availability", "host", host, "error", err)
		return false, apperrors.Internal("Failed to check availability", err)
	}

	return !overlap, nil
}

func (s *bookingService) ListActive(ctx context.Context, userID string) (*model.ActiveBookings, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	bookings, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list active bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to list active bookings", err)
	}

	active := &model.ActiveBookings{
		AsHost:  []*model.Booking{},
		AsGuest: []*model.Booking{},
	}
	for _, b := range bookings {
		if b.Host == userID {
			active.AsHost = append(active.AsHost, b)
		} else {
			active.AsGuest = append(active.AsGuest, b)
		}
	}

	return active, nil
}

// --- Helpers ---

func (s *bookingService) applyDefaults(b *model.Booking) {
	b.Status = model.StatusPending
	b.CancellationReason = ""
	b.CancelledAt = nil
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.Message = sanitizer.NormalizeFreeText(b.Message)
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
