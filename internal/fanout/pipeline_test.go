package fanout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"homestay/internal/registry"
	"homestay/pkg/config"
	"homestay/pkg/kafka"
	"homestay/pkg/logger"
	"homestay/pkg/model"
)

type mockNotificationStore struct {
	mu      sync.Mutex
	created []*model.Notification
	err     error
}

func (m *mockNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	n.ID = "n1"
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationStore) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	return nil, errors.New("not implemented")
}

func (m *mockNotificationStore) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error) {
	return nil, errors.New("not implemented")
}

func (m *mockNotificationStore) MarkRead(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (m *mockNotificationStore) MarkReadByBooking(ctx context.Context, bookingID, userID, notificationType string) error {
	return errors.New("not implemented")
}

type mockUserDirectory struct {
	users map[string]*model.User
}

func (m *mockUserDirectory) FindByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

type mockMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published []kafka.Message
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

type fakeConn struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (c *fakeConn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		FanoutTimeout: 2 * time.Second,
		Log: logger.New(logger.Config{
			Level:   logger.ERROR,
			Format:  logger.JSON,
			Service: "fanout-test",
		}),
	}
}

func testBooking(status string) *model.Booking {
	return &model.Booking{
		ID:          "b1",
		Guest:       "guest-1",
		Host:        "host-1",
		StartDate:   time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
		Status:      status,
		Message:     "looking forward to it",
		ArrivalType: model.ArrivalEmptyHanded,
		GuestCount:  2,
	}
}

func testUsers() *mockUserDirectory {
	return &mockUserDirectory{users: map[string]*model.User{
		"guest-1": {ID: "guest-1", Username: "ayse", Email: "ayse@example.com", Phone: "+905551112233"},
		"host-1":  {ID: "host-1", Username: "john", Email: "john@example.com", Phone: "+15551112233"},
	}}
}

func TestRecipientFor(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		status    string
		want      string
	}{
		{"request goes to host", model.TypeBookingRequest, model.StatusPending, "host-1"},
		{"approval goes to guest", model.TypeBookingApproved, model.StatusApproved, "guest-1"},
		{"rejection goes to guest", model.TypeBookingRejected, model.StatusRejected, "guest-1"},
		{"guest cancellation goes to host", model.TypeBookingCancelled, model.StatusCancelledByGuest, "host-1"},
		{"host cancellation goes to guest", model.TypeBookingCancelled, model.StatusCancelledByHost, "guest-1"},
		{"unknown event has no recipient", "booking_exploded", model.StatusPending, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecipientFor(tt.eventType, testBooking(tt.status))
			if got != tt.want {
				t.Errorf("RecipientFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatchPersistsNotificationSynchronously(t *testing.T) {
	store := &mockNotificationStore{}
	mailer := &mockMailer{}
	producer := &mockPublisher{}
	pipeline := New(testConfig(), store, testUsers(), registry.New(), mailer, producer)

	pipeline.Dispatch(context.Background(), model.TypeBookingRequest, testBooking(model.StatusPending))

	// No Wait() before this check: the feed write must happen on the
	// calling goroutine.
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	n := store.created[0]
	if n.User != "host-1" {
		t.Errorf("expected recipient host-1, got %s", n.User)
	}
	if n.Type != model.TypeBookingRequest {
		t.Errorf("expected type %s, got %s", model.TypeBookingRequest, n.Type)
	}
	if n.Booking != "b1" {
		t.Errorf("expected booking b1, got %s", n.Booking)
	}
	if !strings.Contains(n.Message, "ayse") {
		t.Errorf("expected message to name the guest, got %q", n.Message)
	}
	// host-1 has a US phone prefix, so dates render MM/DD/YYYY.
	if !strings.Contains(n.Message, "07/10/2026") {
		t.Errorf("expected US date layout in %q", n.Message)
	}
	pipeline.Wait()
}

func TestDispatchPublishesBusEvent(t *testing.T) {
	store := &mockNotificationStore{}
	producer := &mockPublisher{}
	pipeline := New(testConfig(), store, testUsers(), registry.New(), &mockMailer{}, producer)

	pipeline.Dispatch(context.Background(), model.TypeBookingApproved, testBooking(model.StatusApproved))
	pipeline.Wait()

	producer.mu.Lock()
	defer producer.mu.Unlock()
	if len(producer.published) != 1 {
		t.Fatalf("expected 1 bus event, got %d", len(producer.published))
	}
	msg := producer.published[0]
	if msg.Key != "guest-1" {
		t.Errorf("expected partition key guest-1, got %s", msg.Key)
	}
	var event BusEvent
	if err := msg.DecodeValue(&event); err != nil {
		t.Fatalf("failed to decode bus event: %v", err)
	}
	if event.Type != model.TypeBookingApproved || event.UserID != "guest-1" || event.BookingID != "b1" {
		t.Errorf("unexpected bus event: %+v", event)
	}
}

func TestDispatchPushesToLiveConnection(t *testing.T) {
	reg := registry.New()
	conn := &fakeConn{}
	reg.Register("guest-1", conn)

	pipeline := New(testConfig(), &mockNotificationStore{}, testUsers(), reg, &mockMailer{}, &mockPublisher{})

	pipeline.Dispatch(context.Background(), model.TypeBookingRejected, testBooking(model.StatusRejected))
	pipeline.Wait()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.events) != 1 || conn.events[0] != model.TypeBookingRejected {
		t.Errorf("expected one %s push, got %v", model.TypeBookingRejected, conn.events)
	}
}

func TestDispatchSendsEmail(t *testing.T) {
	mailer := &mockMailer{}
	pipeline := New(testConfig(), &mockNotificationStore{}, testUsers(), registry.New(), mailer, &mockPublisher{})

	pipeline.Dispatch(context.Background(), model.TypeBookingRequest, testBooking(model.StatusPending))
	pipeline.Wait()

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != 1 || mailer.sent[0] != "john@example.com" {
		t.Errorf("expected email to john@example.com, got %v", mailer.sent)
	}
}

func TestDispatchChannelFailuresAreIsolated(t *testing.T) {
	store := &mockNotificationStore{}
	mailer := &mockMailer{err: errors.New("smtp down")}
	producer := &mockPublisher{err: errors.New("broker down")}
	reg := registry.New()
	reg.Register("guest-1", &fakeConn{err: errors.New("socket closed")})

	pipeline := New(testConfig(), store, testUsers(), reg, mailer, producer)

	// Must not panic or block despite every async channel failing.
	pipeline.Dispatch(context.Background(), model.TypeBookingApproved, testBooking(model.StatusApproved))
	pipeline.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.created) != 1 {
		t.Fatalf("feed write should survive other channel failures, got %d rows", len(store.created))
	}
}

func TestDispatchSurvivesStoreFailure(t *testing.T) {
	store := &mockNotificationStore{err: errors.New("mongo down")}
	producer := &mockPublisher{}
	pipeline := New(testConfig(), store, testUsers(), registry.New(), &mockMailer{}, producer)

	pipeline.Dispatch(context.Background(), model.TypeBookingApproved, testBooking(model.StatusApproved))
	pipeline.Wait()

	producer.mu.Lock()
	defer producer.mu.Unlock()
	if len(producer.published) != 1 {
		t.Errorf("bus publish should not depend on the feed write, got %d events", len(producer.published))
	}
}

func TestDispatchUnknownRecipientRendersWithDefaults(t *testing.T) {
	store := &mockNotificationStore{}
	users := &mockUserDirectory{users: map[string]*model.User{}}
	pipeline := New(testConfig(), store, users, registry.New(), &mockMailer{}, &mockPublisher{})

	pipeline.Dispatch(context.Background(), model.TypeBookingRequest, testBooking(model.StatusPending))
	pipeline.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	if !strings.Contains(store.created[0].Message, "2026-07-10") {
		t.Errorf("expected default date layout in %q", store.created[0].Message)
	}
}

func TestPushDirect(t *testing.T) {
	reg := registry.New()
	conn := &fakeConn{}
	reg.Register("host-1", conn)

	pipeline := New(testConfig(), &mockNotificationStore{}, testUsers(), reg, &mockMailer{}, &mockPublisher{})

	pipeline.PushDirect("host-1", EventApprovedByMe, map[string]string{"booking_id": "b1"})
	pipeline.PushDirect("nobody", EventApprovedByMe, nil)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.events) != 1 || conn.events[0] != EventApprovedByMe {
		t.Errorf("expected one direct push, got %v", conn.events)
	}
}
