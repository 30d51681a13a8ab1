package models

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNotAnObject = errors.New("submission body is not a JSON object")

// RawSubmission is the untyped form body as posted by the browser.
// Fields that arrive with the wrong JSON type are left empty.
type RawSubmission struct {
	Name     string
	Email    string
	Subject  string
	Message  string
	Honeypot string
	// RenderedAt is the epoch millisecond timestamp recorded when the form was
	// mounted. Zero or negative means the client did not send one.
	RenderedAt float64
}

const (
	FieldName       = "name"
	FieldEmail      = "email"
	FieldSubject    = "subject"
	FieldMessage    = "message"
	FieldHoneypot   = "_hp"
	FieldRenderedAt = "_ts"
)

func DecodeRawSubmission(data []byte) (RawSubmission, error) {
	var body interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return RawSubmission{}, errors.Join(ErrNotAnObject, err)
	}

	fields, ok := body.(map[string]interface{})
	if !ok {
		return RawSubmission{}, ErrNotAnObject
	}

	raw := RawSubmission{
		Name:     stringField(fields, FieldName),
		Email:    stringField(fields, FieldEmail),
		Subject:  stringField(fields, FieldSubject),
		Message:  stringField(fields, FieldMessage),
		Honeypot: stringField(fields, FieldHoneypot),
	}
	if ts, ok := fields[FieldRenderedAt].(float64); ok {
		raw.RenderedAt = ts
	}

	return raw, nil
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// ContactMessage is a validated, trimmed submission. Construct it only through
// the validator; the zero value is never a valid message.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// EmailDomain returns the lowercased part after the first '@', or "".
func (m ContactMessage) EmailDomain() string {
	_, domain, found := strings.Cut(m.Email, "@")
	if !found {
		return ""
	}
	return strings.ToLower(domain)
}
