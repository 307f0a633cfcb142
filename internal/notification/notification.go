// Package notification decodes the one-line email notifications the upstream
// mail automation posts into the channel:
//
//	<sender> | Subject: <subject> | Body Preview: <body>
package notification

import (
	"strings"
)

const (
	SubjectMarker     = " | Subject: "
	BodyPreviewMarker = " | Body Preview: "

	// EmptyBodyPlaceholder replaces a blank body preview.
	EmptyBodyPlaceholder = "(no preview)"
)

type Email struct {
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	BodyPreview string `json:"body_preview"`
}

// Parse extracts the email fields from the first line of text. It reports
// false when text is not a notification.
//
// The body marker is cut first so that pipes inside the subject survive.
func Parse(text string) (Email, bool) {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimRight(line, "\r")

	head, body, ok := strings.Cut(line, BodyPreviewMarker)
	if !ok {
		return Email{}, false
	}
	sender, subject, ok := strings.Cut(head, SubjectMarker)
	if !ok {
		return Email{}, false
	}
	sender = strings.TrimSpace(sender)
	subject = strings.TrimSpace(subject)
	if sender == "" || subject == "" {
		return Email{}, false
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = EmptyBodyPlaceholder
	}
	return Email{
		Sender:      sender,
		Subject:     subject,
		BodyPreview: body,
	}, true
}

// Format renders e in the notification template. Parse(Format(e)) == e for
// any e produced by Parse.
func Format(e Email) string {
	return e.Sender + SubjectMarker + e.Subject + BodyPreviewMarker + e.BodyPreview
}

// IsNotification reports whether text parses as a notification.
func IsNotification(text string) bool {
	_, ok := Parse(text)
	return ok
}
