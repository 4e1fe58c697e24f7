package service

import (
	"context"
	"errors"

	bookingsservice "homestay/internal/bookings/service"
	notificationserrors "homestay/internal/notifications/errors"
	"homestay/internal/notifications/repository"
	"homestay/pkg/config"
	apperrors "homestay/pkg/errors"
	"homestay/pkg/model"
)

type NotificationService interface {
	List(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id string, actor string) error
	MarkReadByBooking(ctx context.Context, bookingID string, actor string) error
	BookingAction(ctx context.Context, notificationID string, actor string, status string) (*model.Booking, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	bookings bookingsservice.BookingService
	cfg      *config.Config
}

func NewNotificationService(
	repo repository.NotificationRepository,
	bookings bookingsservice.BookingService,
	cfg *config.Config,
) NotificationService {
	return &notificationService{
		repo:     repo,
		bookings: bookings,
		cfg:      cfg,
	}
}

func (s *notificationService) List(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	limit = config.NormalizePaginationLimit(limit)
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list notifications", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to list notifications", err)
	}

	if notifications == nil {
		notifications = []*model.Notification{}
	}
	return notifications, nil
}

// MarkRead flags one notification read. Only the recipient can do it.
func (s *notificationService) MarkRead(ctx context.Context, id string, actor string) error {
	notification, err := s.getOwned(ctx, id, actor)
	if err != nil {
		return err
	}

	if notification.IsRead {
		return nil
	}

	if err := s.repo.MarkRead(ctx, notification.ID); err != nil {
		if errors.Is(err, notificationserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Notification", id)
		}
		s.cfg.Log.Error("Failed to mark notification read", "id", id, "error", err)
		return apperrors.Internal("Failed to mark notification read", err)
	}

	return nil
}

// MarkReadByBooking flags the caller's request notifications for a booking
// read, e.g. when the host opens the request from the booking itself rather
// than from the feed.
func (s *notificationService) MarkReadByBooking(ctx context.Context, bookingID string, actor string) error {
	if bookingID == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	if err := s.repo.MarkReadByBooking(ctx, bookingID, actor, model.TypeBookingRequest); err != nil {
		s.cfg.Log.Error("Failed to mark notifications read by booking", "booking_id", bookingID, "error", err)
		return apperrors.Internal("Failed to mark notifications read", err)
	}

	return nil
}

// BookingAction decides the booking a notification refers to and marks the
// notification read. It is the accept/decline button on a feed entry.
func (s *notificationService) BookingAction(ctx context.Context, notificationID string, actor string, status string) (*model.Booking, error) {
	notification, err := s.getOwned(ctx, notificationID, actor)
	if err != nil {
		return nil, err
	}
	if notification.Booking == "" {
		return nil, apperrors.InvalidInput("Notification has no associated booking")
	}

	booking, err := s.bookings.Decide(ctx, notification.Booking, actor, status)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkRead(ctx, notification.ID); err != nil {
		s.cfg.Log.Warn("Failed to mark actioned notification read", "id", notification.ID, "error", err)
	}

	return booking, nil
}

func (s *notificationService) getOwned(ctx context.Context, id string, actor string) (*model.Notification, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Notification ID cannot be empty")
	}

	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, notificationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Notification", id)
		}
		if errors.Is(err, notificationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid notification ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve notification", err)
	}

	if notification.User != actor {
		return nil, apperrors.Forbidden("Notification belongs to another user")
	}

	return notification, nil
}
