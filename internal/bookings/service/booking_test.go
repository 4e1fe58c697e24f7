package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "homestay/internal/bookings/errors"
	"homestay/internal/bookings/validator"
	userserrors "homestay/internal/users/errors"
	"homestay/pkg/config"
	apperrors "homestay/pkg/errors"
	"homestay/pkg/logger"
	"homestay/pkg/model"
)

// --- Mocks ---

type mockBookingRepo struct {
	CreateFn           func(ctx context.Context, booking *model.Booking) error
	FindByIDFn         func(ctx context.Context, id string) (*model.Booking, error)
	UpdateFn           func(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error)
	HasOverlapFn       func(ctx context.Context, host string, start, end time.Time) (bool, error)
	FindActiveByUserFn func(ctx context.Context, userID string) ([]*model.Booking, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	return m.CreateFn(ctx, booking)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.FindByIDFn(ctx, id)
}

func (m *mockBookingRepo) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	return m.UpdateFn(ctx, id, booking)
}

func (m *mockBookingRepo) HasOverlap(ctx context.Context, host string, start, end time.Time) (bool, error) {
	return m.HasOverlapFn(ctx, host, start, end)
}

func (m *mockBookingRepo) FindActiveByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	return m.FindActiveByUserFn(ctx, userID)
}

type mockUserRepo struct {
	FindByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.FindByIDFn(ctx, id)
}

type mockNotificationRepo struct {
	mu          sync.Mutex
	markedRead  []string // "bookingID/userID/type"
	markReadErr error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *model.Notification) error { return nil }

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string) error { return nil }

func (m *mockNotificationRepo) MarkReadByBooking(ctx context.Context, bookingID, userID, notificationType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markReadErr != nil {
		return m.markReadErr
	}
	m.markedRead = append(m.markedRead, bookingID+"/"+userID+"/"+notificationType)
	return nil
}

type mockFanout struct {
	mu     sync.Mutex
	events []string
	direct []string // "userID/event"
}

func (m *mockFanout) Dispatch(ctx context.Context, eventType string, booking *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *mockFanout) PushDirect(userID string, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct = append(m.direct, userID+"/"+event)
}

// --- Fixtures ---

const (
	guestID    = "65f000000000000000000001"
	hostID     = "65f000000000000000000002"
	strangerID = "65f000000000000000000003"
	bookingID  = "65f0000000000000000000aa"
)

func testConfig() *config.Config {
	return &config.Config{
		CancellationMinLead:      24 * time.Hour,
		CancellationReasonMinLen: 10,
		Log: logger.New(logger.Config{
			Level:   logger.ERROR,
			Service: "bookings-test",
		}),
	}
}

func knownUsers() *mockUserRepo {
	return &mockUserRepo{FindByIDFn: func(ctx context.Context, id string) (*model.User, error) {
		switch id {
		case guestID, hostID:
			return &model.User{ID: id, Username: "user-" + id[len(id)-1:]}, nil
		}
		return nil, userserrors.ErrNotFound
	}}
}

func validBooking() *model.Booking {
	return &model.Booking{
		Guest:       guestID,
		Host:        hostID,
		StartDate:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		Message:     "We would love to visit",
		ArrivalType: model.ArrivalEmptyHanded,
		GuestCount:  2,
	}
}

func storedBooking(status string) *model.Booking {
	b := validBooking()
	b.ID = bookingID
	b.Status = status
	return b
}

type serviceFixture struct {
	repo          *mockBookingRepo
	notifications *mockNotificationRepo
	fanout        *mockFanout
	svc           *bookingService
}

func newFixture(repo *mockBookingRepo) *serviceFixture {
	notifications := &mockNotificationRepo{}
	fan := &mockFanout{}
	svc := NewBookingService(
		repo,
		knownUsers(),
		notifications,
		validator.NewBookingValidator(logger.New(logger.Config{Level: logger.ERROR})),
		fan,
		testConfig(),
	).(*bookingService)

	// Pin the clock well before the stay so window checks are stable.
	svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}

	return &serviceFixture{
		repo:          repo,
		notifications: notifications,
		fanout:        fan,
		svc:           svc,
	}
}

func appErrorCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

// --- Create ---

func TestCreate(t *testing.T) {
	var created *model.Booking
	fx := newFixture(&mockBookingRepo{
		CreateFn: func(ctx context.Context, b *model.Booking) error {
			b.ID = bookingID
			created = b
			return nil
		},
	})

	booking := validBooking()
	booking.Message = "  We  would love\tto visit  "
	if err := fx.svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected booking to be persisted")
	}
	if created.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", created.Status)
	}
	if created.Message != "We would love to visit" {
		t.Errorf("expected normalized message, got %q", created.Message)
	}
	if len(fx.fanout.events) != 1 || fx.fanout.events[0] != model.TypeBookingRequest {
		t.Errorf("expected booking_request fanout, got %v", fx.fanout.events)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *model.Booking)
		code   string
	}{
		{"end before start", func(b *model.Booking) {
			b.EndDate = b.StartDate.Add(-24 * time.Hour)
		}, "VALIDATION_ERROR"},
		{"end equals start", func(b *model.Booking) {
			b.EndDate = b.StartDate
		}, "VALIDATION_ERROR"},
		{"guest books own place", func(b *model.Booking) {
			b.Host = guestID
		}, "VALIDATION_ERROR"},
		{"zero guests", func(b *model.Booking) {
			b.GuestCount = 0
		}, "VALIDATION_ERROR"},
		{"too many guests", func(b *model.Booking) {
			b.GuestCount = 21
		}, "VALIDATION_ERROR"},
		{"empty message", func(b *model.Booking) {
			b.Message = "   "
		}, "VALIDATION_ERROR"},
		{"invalid arrival type", func(b *model.Booking) {
			b.ArrivalType = "by_parachute"
		}, "VALIDATION_ERROR"},
		{"unknown host", func(b *model.Booking) {
			b.Host = strangerID
		}, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(&mockBookingRepo{
				CreateFn: func(ctx context.Context, b *model.Booking) error {
					t.Error("repository must not be touched on invalid input")
					return nil
				},
			})

			booking := validBooking()
			tt.mutate(booking)

			err := fx.svc.Create(context.Background(), booking)
			if got := appErrorCode(t, err); got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
			if len(fx.fanout.events) != 0 {
				t.Errorf("no fanout expected on failure, got %v", fx.fanout.events)
			}
		})
	}
}

func TestCreateDoesNotCheckOverlap(t *testing.T) {
	// Availability is advisory: Create never consults the overlap query,
	// so two racing guests can both book the same dates.
	fx := newFixture(&mockBookingRepo{
		CreateFn: func(ctx context.Context, b *model.Booking) error {
			b.ID = bookingID
			return nil
		},
		HasOverlapFn: func(ctx context.Context, host string, start, end time.Time) (bool, error) {
			t.Error("Create must not run the overlap query")
			return true, nil
		},
	})

	if err := fx.svc.Create(context.Background(), validBooking()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

// --- Decide ---

func TestDecideApprove(t *testing.T) {
	var updated *model.Booking
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return storedBooking(model.StatusPending), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			updated = b
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	})

	booking, err := fx.svc.Decide(context.Background(), bookingID, hostID, model.StatusApproved)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if booking.Status != model.StatusApproved || updated.Status != model.StatusApproved {
		t.Errorf("expected approved status, got %s", booking.Status)
	}
	if len(fx.fanout.events) != 1 || fx.fanout.events[0] != model.TypeBookingApproved {
		t.Errorf("expected booking_approved fanout, got %v", fx.fanout.events)
	}
	want := bookingID + "/" + hostID + "/" + model.TypeBookingRequest
	if len(fx.notifications.markedRead) != 1 || fx.notifications.markedRead[0] != want {
		t.Errorf("expected request notification marked read (%s), got %v", want, fx.notifications.markedRead)
	}
	if len(fx.fanout.direct) != 1 || fx.fanout.direct[0] != hostID+"/booking_approved_by_me" {
		t.Errorf("expected self push to the host, got %v", fx.fanout.direct)
	}
}

func TestDecideReject(t *testing.T) {
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return storedBooking(model.StatusPending), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	})

	booking, err := fx.svc.Decide(context.Background(), bookingID, hostID, model.StatusRejected)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if booking.Status != model.StatusRejected {
		t.Errorf("expected rejected status, got %s", booking.Status)
	}
	if len(fx.fanout.events) != 1 || fx.fanout.events[0] != model.TypeBookingRejected {
		t.Errorf("expected booking_rejected fanout, got %v", fx.fanout.events)
	}
	if len(fx.notifications.markedRead) != 0 {
		t.Errorf("rejection must not mark the request read, got %v", fx.notifications.markedRead)
	}
	if len(fx.fanout.direct) != 0 {
		t.Errorf("rejection must not self push, got %v", fx.fanout.direct)
	}
}

func TestDecideErrors(t *testing.T) {
	tests := []struct {
		name      string
		stored    *model.Booking
		storedErr error
		actor     string
		status    string
		code      string
	}{
		{"booking not found", nil, bookingserrors.ErrNotFound, hostID, model.StatusApproved, "NOT_FOUND"},
		{"guest cannot decide", storedBooking(model.StatusPending), nil, guestID, model.StatusApproved, "FORBIDDEN"},
		{"stranger cannot decide", storedBooking(model.StatusPending), nil, strangerID, model.StatusApproved, "FORBIDDEN"},
		{"already approved", storedBooking(model.StatusApproved), nil, hostID, model.StatusApproved, "INVALID_TRANSITION"},
		{"already rejected", storedBooking(model.StatusRejected), nil, hostID, model.StatusApproved, "INVALID_TRANSITION"},
		{"cancelled booking", storedBooking(model.StatusCancelledByGuest), nil, hostID, model.StatusRejected, "INVALID_TRANSITION"},
		{"bogus decision", storedBooking(model.StatusPending), nil, hostID, "maybe", "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(&mockBookingRepo{
				FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
					return tt.stored, tt.storedErr
				},
				UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
					t.Error("no write expected on failure")
					return nil, nil
				},
			})

			_, err := fx.svc.Decide(context.Background(), bookingID, tt.actor, tt.status)
			if got := appErrorCode(t, err); got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
			if len(fx.fanout.events) != 0 {
				t.Errorf("no fanout expected on failure, got %v", fx.fanout.events)
			}
		})
	}
}

func TestDecideInvalidTransitionStatus(t *testing.T) {
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return storedBooking(model.StatusApproved), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			return nil, nil
		},
	})

	_, err := fx.svc.Decide(context.Background(), bookingID, hostID, model.StatusRejected)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.HTTPStatus != 409 {
		t.Errorf("expected 409 for invalid transition, got %+v", appErr)
	}
}

// --- Cancel ---

func TestCancelByGuest(t *testing.T) {
	var updated *model.Booking
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return storedBooking(model.StatusApproved), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			updated = b
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	})

	booking, err := fx.svc.Cancel(context.Background(), bookingID, guestID, "our plans changed, sorry")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if booking.Status != model.StatusCancelledByGuest {
		t.Errorf("expected cancelled_by_guest, got %s", booking.Status)
	}
	if updated.CancellationReason != "our plans changed, sorry" {
		t.Errorf("expected reason stored, got %q", updated.CancellationReason)
	}
	if updated.CancelledAt == nil || !updated.CancelledAt.Equal(fx.svc.now()) {
		t.Errorf("expected cancelled_at pinned to now, got %v", updated.CancelledAt)
	}
	if len(fx.fanout.events) != 1 || fx.fanout.events[0] != model.TypeBookingCancelled {
		t.Errorf("expected booking_cancelled fanout, got %v", fx.fanout.events)
	}
}

func TestCancelByHost(t *testing.T) {
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return storedBooking(model.StatusApproved), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	})

	booking, err := fx.svc.Cancel(context.Background(), bookingID, hostID, "pipes burst, home unusable")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if booking.Status != model.StatusCancelledByHost {
		t.Errorf("expected cancelled_by_host, got %s", booking.Status)
	}
}

func TestCancelErrors(t *testing.T) {
	stayStart := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status string
		actor  string
		reason string
		now    time.Time
		code   string
	}{
		{"stranger cannot cancel", model.StatusApproved, strangerID, "a perfectly fine reason", stayStart.Add(-72 * time.Hour), "FORBIDDEN"},
		{"pending cannot be cancelled", model.StatusPending, guestID, "a perfectly fine reason", stayStart.Add(-72 * time.Hour), "INVALID_TRANSITION"},
		{"rejected cannot be cancelled", model.StatusRejected, guestID, "a perfectly fine reason", stayStart.Add(-72 * time.Hour), "INVALID_TRANSITION"},
		{"short reason", model.StatusApproved, guestID, "too vague", stayStart.Add(-72 * time.Hour), "VALIDATION_ERROR"},
		{"whitespace padded short reason", model.StatusApproved, guestID, "   short    ", stayStart.Add(-72 * time.Hour), "VALIDATION_ERROR"},
		{"stay already started", model.StatusApproved, guestID, "a perfectly fine reason", stayStart.Add(time.Hour), "TIME_WINDOW"},
		{"inside the lead window", model.StatusApproved, guestID, "a perfectly fine reason", stayStart.Add(-23 * time.Hour), "TIME_WINDOW"},
		{"exactly at the lead window", model.StatusApproved, guestID, "a perfectly fine reason", stayStart.Add(-24 * time.Hour), "TIME_WINDOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(&mockBookingRepo{
				FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
					return storedBooking(tt.status), nil
				},
				UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
					t.Error("no write expected on failure")
					return nil, nil
				},
			})
			fx.svc.now = func() time.Time { return tt.now }

			_, err := fx.svc.Cancel(context.Background(), bookingID, tt.actor, tt.reason)
			if got := appErrorCode(t, err); got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
			if len(fx.fanout.events) != 0 {
				t.Errorf("no fanout expected on failure, got %v", fx.fanout.events)
			}
		})
	}
}

func TestCancelJustOutsideLeadWindow(t *testing.T) {
	stayStart := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return storedBooking(model.StatusApproved), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	})
	fx.svc.now = func() time.Time { return stayStart.Add(-24*time.Hour - time.Second) }

	if _, err := fx.svc.Cancel(context.Background(), bookingID, guestID, "a perfectly fine reason"); err != nil {
		t.Errorf("cancel one second outside the window should succeed, got %v", err)
	}
}

// --- CheckAvailability ---

func TestCheckAvailability(t *testing.T) {
	var gotStart, gotEnd time.Time
	fx := newFixture(&mockBookingRepo{
		HasOverlapFn: func(ctx context.Context, host string, start, end time.Time) (bool, error) {
			gotStart, gotEnd = start, end
			return false, nil
		},
	})

	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)
	available, err := fx.svc.CheckAvailability(context.Background(), hostID, start, end)
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}
	if !available {
		t.Error("expected available when no overlap")
	}
	if !gotStart.Equal(start) || !gotEnd.Equal(end) {
		t.Errorf("range passed to repo changed: [%v, %v)", gotStart, gotEnd)
	}
}

func TestCheckAvailabilityOverlapping(t *testing.T) {
	fx := newFixture(&mockBookingRepo{
		HasOverlapFn: func(ctx context.Context, host string, start, end time.Time) (bool, error) {
			return true, nil
		},
	})

	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	available, err := fx.svc.CheckAvailability(context.Background(), hostID, start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}
	if available {
		t.Error("expected unavailable when a booking overlaps")
	}
}

func TestCheckAvailabilityInvalidRange(t *testing.T) {
	fx := newFixture(&mockBookingRepo{
		HasOverlapFn: func(ctx context.Context, host string, start, end time.Time) (bool, error) {
			t.Error("repo must not be queried for an invalid range")
			return false, nil
		},
	})

	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	_, err := fx.svc.CheckAvailability(context.Background(), hostID, start, start)
	if got := appErrorCode(t, err); got != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", got)
	}
}

// --- ListActive ---

func TestListActivePartitionsByRole(t *testing.T) {
	hosting := storedBooking(model.StatusPending)
	hosting.Host = guestID
	hosting.Guest = hostID
	staying := storedBooking(model.StatusApproved)

	fx := newFixture(&mockBookingRepo{
		FindActiveByUserFn: func(ctx context.Context, userID string) ([]*model.Booking, error) {
			return []*model.Booking{hosting, staying}, nil
		},
	})

	active, err := fx.svc.ListActive(context.Background(), guestID)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active.AsHost) != 1 || active.AsHost[0] != hosting {
		t.Errorf("expected one hosted booking, got %d", len(active.AsHost))
	}
	if len(active.AsGuest) != 1 || active.AsGuest[0] != staying {
		t.Errorf("expected one guest booking, got %d", len(active.AsGuest))
	}
}

func TestListActiveEmpty(t *testing.T) {
	fx := newFixture(&mockBookingRepo{
		FindActiveByUserFn: func(ctx context.Context, userID string) ([]*model.Booking, error) {
			return nil, nil
		},
	})

	active, err := fx.svc.ListActive(context.Background(), guestID)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if active.AsHost == nil || active.AsGuest == nil {
		t.Error("expected empty slices, not nil")
	}
}

// --- Known races, reproduced on purpose ---

// Both hosts' decisions read the same pending snapshot; the write is a blind
// $set so the later decision silently wins.
func TestConcurrentDecisionsLastWriteWins(t *testing.T) {
	var writes []string
	fx := newFixture(&mockBookingRepo{
		FindByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			// Every reader sees the stale pending row.
			return storedBooking(model.StatusPending), nil
		},
		UpdateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			writes = append(writes, b.Status)
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	})

	if _, err := fx.svc.Decide(context.Background(), bookingID, hostID, model.StatusApproved); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	if _, err := fx.svc.Decide(context.Background(), bookingID, hostID, model.StatusRejected); err != nil {
		t.Fatalf("second decision failed: %v", err)
	}

	if len(writes) != 2 || writes[1] != model.StatusRejected {
		t.Errorf("expected the later write to win, got %v", writes)
	}
}
