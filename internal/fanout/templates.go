package fanout

import (
	"fmt"
	"strings"

	"homestay/pkg/model"
)

// renderMessage produces the recipient-facing feed text for one lifecycle
// event. Dates are formatted with the recipient's locale layout; the text is
// captured into the stored notification and never re-rendered.
func renderMessage(eventType string, counterpartName string, booking *model.Booking, dateLayout string) string {
	start := booking.StartDate.Format(dateLayout)
	end := booking.EndDate.Format(dateLayout)

	switch eventType {
	case model.TypeBookingRequest:
		return fmt.Sprintf("%s requested to stay with you from %s to %s (%d %s, %s).",
			counterpartName, start, end,
			booking.GuestCount, pluralGuests(booking.GuestCount),
			arrivalText(booking.ArrivalType))
	case model.TypeBookingApproved:
		return fmt.Sprintf("%s approved your stay from %s to %s.", counterpartName, start, end)
	case model.TypeBookingRejected:
		return fmt.Sprintf("%s declined your stay request for %s to %s.", counterpartName, start, end)
	case model.TypeBookingCancelled:
		msg := fmt.Sprintf("%s cancelled the stay from %s to %s.", counterpartName, start, end)
		if booking.CancellationReason != "" {
			msg += fmt.Sprintf(" Reason: %s", booking.CancellationReason)
		}
		return msg
	}
	return fmt.Sprintf("%s updated the stay from %s to %s.", counterpartName, start, end)
}

// renderEmail produces the subject and HTML body for the mail channel.
func renderEmail(eventType string, counterpartName string, booking *model.Booking, dateLayout string) (subject string, body string) {
	start := booking.StartDate.Format(dateLayout)
	end := booking.EndDate.Format(dateLayout)

	switch eventType {
	case model.TypeBookingRequest:
		subject = fmt.Sprintf("New stay request from %s", counterpartName)
		body = fmt.Sprintf(
			"<h2>New stay request</h2>"+
				"<p><strong>%s</strong> wants to stay with you from <strong>%s</strong> to <strong>%s</strong>.</p>"+
				"<p>%d %s, arriving %s.</p>"+
				"<blockquote>%s</blockquote>",
			counterpartName, start, end,
			booking.GuestCount, pluralGuests(booking.GuestCount),
			arrivalText(booking.ArrivalType),
			booking.Message)
	case model.TypeBookingApproved:
		subject = "Your stay request was approved"
		body = fmt.Sprintf(
			"<h2>Request approved</h2>"+
				"<p><strong>%s</strong> approved your stay from <strong>%s</strong> to <strong>%s</strong>. Pack your bags!</p>",
			counterpartName, start, end)
	case model.TypeBookingRejected:
		subject = "Your stay request was declined"
		body = fmt.Sprintf(
			"<h2>Request declined</h2>"+
				"<p><strong>%s</strong> declined your stay request for <strong>%s</strong> to <strong>%s</strong>.</p>",
			counterpartName, start, end)
	case model.TypeBookingCancelled:
		subject = "A stay was cancelled"
		body = fmt.Sprintf(
			"<h2>Stay cancelled</h2>"+
				"<p><strong>%s</strong> cancelled the stay from <strong>%s</strong> to <strong>%s</strong>.</p>",
			counterpartName, start, end)
		if booking.CancellationReason != "" {
			body += fmt.Sprintf("<blockquote>%s</blockquote>", booking.CancellationReason)
		}
	default:
		subject = "Your stay was updated"
		body = fmt.Sprintf("<p>The stay from %s to %s was updated.</p>", start, end)
	}
	return subject, body
}

func pluralGuests(n int) string {
	if n == 1 {
		return "guest"
	}
	return "guests"
}

func arrivalText(arrivalType string) string {
	return strings.ReplaceAll(arrivalType, "_", " ")
}
