package model

import (
	"time"
)

// Booking statuses. The lifecycle is pending -> {approved, rejected} and
// approved -> {cancelled_by_guest, cancelled_by_host}; every other status is
// terminal.
const (
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusCancelledByGuest = "cancelled_by_guest"
	StatusCancelledByHost  = "cancelled_by_host"
)

// Arrival types a guest can declare on a request.
const (
	ArrivalEmptyHanded = "empty_handed"
	ArrivalFullHanded  = "full_handed"
)

type Booking struct {
	ID                 string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Guest              string     `json:"guest" bson:"guest" validate:"required,mongodb"`
	Host               string     `json:"host" bson:"host" validate:"required,mongodb,nefield=Guest"`
	StartDate          time.Time  `json:"start_date" bson:"start_date" validate:"required"`
	EndDate            time.Time  `json:"end_date" bson:"end_date" validate:"required,gtfield=StartDate"`
	Status             string     `json:"status" bson:"status" validate:"required,oneof=pending approved rejected cancelled_by_guest cancelled_by_host"`
	Message            string     `json:"message" bson:"message" validate:"required,min=1,max=2000"`
	ArrivalType        string     `json:"arrival_type" bson:"arrival_type" validate:"required,oneof=empty_handed full_handed"`
	GuestCount         int        `json:"guest_count" bson:"guest_count" validate:"required,min=1,max=20"`
	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty" validate:"omitempty,min=10"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsTerminal reports whether no further transitions are allowed from the
// booking's current status.
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusRejected, StatusCancelledByGuest, StatusCancelledByHost:
		return true
	}
	return false
}

// Active reports whether the booking still occupies its date range for
// availability purposes.
func (b *Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusApproved
}

// OtherParty returns the counterpart of the given user on this booking.
func (b *Booking) OtherParty(userID string) string {
	if userID == b.Guest {
		return b.Host
	}
	return b.Guest
}

// ActiveBookings is the ListActive result, partitioned by the caller's role.
type ActiveBookings struct {
	AsHost  []*Booking `json:"as_host"`
	AsGuest []*Booking `json:"as_guest"`
}
