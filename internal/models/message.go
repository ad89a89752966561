package models

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

// MaxTextLength is the maximum message text length in Unicode code points.
const MaxTextLength = 4096

// E.164 phone number: leading +, then 1-15 digits.
var e164Regex = regexp.MustCompile(`^\+[0-9]{1,15}$`)

// Message is the persisted inbound message entity. CreatedAt is assigned by
// the server at insert time and never mutated; everything else is
// caller-supplied and immutable once stored.
type Message struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
	CreatedAt string `json:"-"`
}

// WebhookPayload is the inbound webhook body before validation.
type WebhookPayload struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

// FieldError describes a single validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks the payload against the message schema and returns every
// violation, not just the first. A nil result means the payload is valid.
func (p WebhookPayload) Validate() []FieldError {
	var errs []FieldError

	if p.MessageID == "" {
		errs = append(errs, FieldError{Field: "message_id", Reason: "must be a non-empty string"})
	}
	if !e164Regex.MatchString(p.From) {
		errs = append(errs, FieldError{Field: "from", Reason: "must be an E.164 phone number (+ followed by 1-15 digits)"})
	}
	if !e164Regex.MatchString(p.To) {
		errs = append(errs, FieldError{Field: "to", Reason: "must be an E.164 phone number (+ followed by 1-15 digits)"})
	}
	if !validTimestamp(p.TS) {
		errs = append(errs, FieldError{Field: "ts", Reason: "must be an ISO-8601 timestamp with timezone"})
	}
	if utf8.RuneCountInString(p.Text) > MaxTextLength {
		errs = append(errs, FieldError{Field: "text", Reason: fmt.Sprintf("must be at most %d characters", MaxTextLength)})
	}

	return errs
}

// Message converts a validated payload into a Message. CreatedAt is left for
// the store to assign.
func (p WebhookPayload) Message() Message {
	return Message{
		MessageID: p.MessageID,
		From:      p.From,
		To:        p.To,
		TS:        p.TS,
		Text:      p.Text,
	}
}

// validTimestamp accepts RFC 3339 timestamps, which always carry an explicit
// zone (Z or a numeric offset).
func validTimestamp(ts string) bool {
	_, err := time.Parse(time.RFC3339, ts)
	return err == nil
}
