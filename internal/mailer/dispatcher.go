package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"contactguard/pkg/models"
)

const (
	subjectSuffix  = " (Contact form)"
	defaultSubject = "New message from contact form"
)

// Envelope is a fully composed outbound message.
type Envelope struct {
	From     string
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Dispatcher hands an envelope to a mail relay. Send must honor ctx
// cancellation and deadline.
type Dispatcher interface {
	Send(ctx context.Context, env Envelope) error
}

// Compose renders msg into an envelope addressed from -> to, with replies
// going to the submitter. User text is HTML-escaped in the HTML body and kept
// raw in the text body.
func Compose(from, to string, msg models.ContactMessage) Envelope {
	subject := defaultSubject
	if msg.Subject != "" {
		subject = msg.Subject + subjectSuffix
	}

	return Envelope{
		From:     from,
		To:       to,
		ReplyTo:  msg.Email,
		Subject:  sanitizeHeader(subject),
		TextBody: textBody(msg),
		HTMLBody: htmlBody(msg),
	}
}

func textBody(msg models.ContactMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", msg.Name)
	fmt.Fprintf(&b, "Email: %s\n", msg.Email)
	if msg.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	}
	b.WriteString("\n")
	b.WriteString(msg.Message)
	return b.String()
}

func htmlBody(msg models.ContactMessage) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif">`)
	b.WriteString("\n<h2>" + defaultSubject + "</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>\n", html.EscapeString(msg.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>\n", html.EscapeString(msg.Email))
	if msg.Subject != "" {
		fmt.Fprintf(&b, "<p><strong>Subject:</strong> %s</p>\n", html.EscapeString(msg.Subject))
	}
	b.WriteString("<hr />\n")
	fmt.Fprintf(&b, `<pre style="white-space:pre-wrap;line-height:1.4">%s</pre>`, html.EscapeString(msg.Message))
	b.WriteString("\n</div>\n")
	return b.String()
}

// sanitizeHeader collapses line breaks so a value cannot start a new header.
func sanitizeHeader(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return r == '\r' || r == '\n'
	}), " ")
}
