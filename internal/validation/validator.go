package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"contactguard/internal/config"
	"contactguard/internal/constants"
	"contactguard/pkg/errors"
	"contactguard/pkg/models"
)

const (
	DisplaySessionExpired  = "Your session has expired. Please reload the page."
	DisplayNameRequired    = "Please enter your name."
	DisplayNameTooLong     = "Name is too long."
	DisplayEmailInvalid    = "Please enter a valid email address."
	DisplayEmailTooLong    = "Email address is too long."
	DisplaySubjectTooLong  = "Subject is too long."
	DisplayMessageTooShort = "Please enter a message (at least 10 characters)."
	DisplayMessageTooLong  = "Message is too long (maximum 5000 characters)."
)

// Any kind of whitespace, including \v and U+FEFF, is rejected anywhere in
// the address.
var emailPattern = regexp.MustCompile(`^[^\s\v\x{FEFF}\p{Z}@]+@[^\s\v\x{FEFF}\p{Z}@]+\.[^\s\v\x{FEFF}\p{Z}@]+$`)

// Validator checks a decoded submission and produces either an accepted,
// normalized message or a rejection. It holds no state and is safe for
// concurrent use.
type Validator struct {
	minSubmitTime time.Duration
	maxFormAge    time.Duration
}

func NewValidator(cfg config.IntakeConfig) *Validator {
	v := &Validator{
		minSubmitTime: cfg.MinSubmitTime,
		maxFormAge:    cfg.MaxFormAge,
	}
	if v.minSubmitTime <= 0 {
		v.minSubmitTime = constants.DefaultMinSubmitTime
	}
	if v.maxFormAge <= 0 {
		v.maxFormAge = constants.DefaultMaxFormAge
	}
	return v
}

// InvalidPayload is the verdict for a body that could not be decoded into a
// submission at all.
func InvalidPayload() models.Verdict {
	return models.RejectedVisible{Code: models.ReasonInvalidPayload, Display: errors.ErrInvalidPayload.Message}
}

// Validate applies the checks in order and returns on the first failure.
// Bot signals (honeypot, submit timing) come first and are silent.
func (v *Validator) Validate(raw models.RawSubmission, now time.Time) models.Verdict {
	if raw.Honeypot != "" {
		return models.RejectedSilent{Reason: models.ReasonHoneypotTriggered}
	}

	// A missing or non-positive render timestamp skips both timing checks.
	if raw.RenderedAt > 0 {
		elapsedMs := float64(now.UnixMilli()) - raw.RenderedAt
		if elapsedMs < float64(v.minSubmitTime.Milliseconds()) {
			return models.RejectedSilent{Reason: models.ReasonTooFast}
		}
		if elapsedMs > float64(v.maxFormAge.Milliseconds()) {
			return visible(models.ReasonSessionExpired, DisplaySessionExpired)
		}
	}

	name := strings.TrimSpace(raw.Name)
	email := strings.TrimSpace(raw.Email)
	subject := strings.TrimSpace(raw.Subject)
	message := strings.TrimSpace(raw.Message)

	switch n := utf8.RuneCountInString(name); {
	case n < 2:
		return visible(models.ReasonInvalidName, DisplayNameRequired)
	case n > constants.MaxNameLength:
		return visible(models.ReasonInvalidName, DisplayNameTooLong)
	}

	if email == "" || !emailPattern.MatchString(email) {
		return visible(models.ReasonInvalidEmail, DisplayEmailInvalid)
	}
	if utf8.RuneCountInString(email) > constants.MaxEmailLength {
		return visible(models.ReasonInvalidEmail, DisplayEmailTooLong)
	}

	if utf8.RuneCountInString(subject) > constants.MaxSubjectLength {
		return visible(models.ReasonSubjectTooLong, DisplaySubjectTooLong)
	}

	switch n := utf8.RuneCountInString(message); {
	case n < constants.MinMessageLength:
		return visible(models.ReasonInvalidMessageLength, DisplayMessageTooShort)
	case n > constants.MaxMessageLength:
		return visible(models.ReasonInvalidMessageLength, DisplayMessageTooLong)
	}

	return models.Accepted{
		Message: models.ContactMessage{
			Name:    name,
			Email:   email,
			Subject: subject,
			Message: message,
		},
	}
}

func visible(code models.ReasonCode, display string) models.RejectedVisible {
	return models.RejectedVisible{Code: code, Display: display}
}
