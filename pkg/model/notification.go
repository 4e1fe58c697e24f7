package model

import (
	"time"
)

// Notification types, one per booking lifecycle event.
const (
	TypeBookingRequest   = "booking_request"
	TypeBookingApproved  = "booking_approved"
	TypeBookingRejected  = "booking_rejected"
	TypeBookingCancelled = "booking_cancelled"
)

// Notification is one row of a user's append-only feed. Message holds the
// rendered text captured at creation time; it is never re-derived from the
// booking afterwards.
type Notification struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	User      string    `json:"user" bson:"user" validate:"required,mongodb"`
	Type      string    `json:"type" bson:"type" validate:"required,oneof=booking_request booking_approved booking_rejected booking_cancelled"`
	Message   string    `json:"message" bson:"message" validate:"required"`
	Booking   string    `json:"booking,omitempty" bson:"booking,omitempty" validate:"omitempty,mongodb"`
	IsRead    bool      `json:"is_read" bson:"is_read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
