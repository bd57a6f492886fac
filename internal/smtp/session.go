package smtp

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// Session implements the go-smtp Session interface. go-smtp itself drives
// the Greet/MailFrom/RcptTo/Data state machine and handles CRLF framing,
// the bare-"." DATA terminator, and dot-unstuffing; Session only supplies
// the domain-specific behavior at each transition.
type Session struct {
	backend    *Backend
	from       string
	recipients []string
}

// NewSession creates a new SMTP session.
func NewSession(backend *Backend) *Session {
	return &Session{
		backend:    backend,
		recipients: make([]string, 0),
	}
}

// AuthPlain is never invoked: this is an inbound-only receiver and
// authentication is not required of senders.
func (s *Session) AuthPlain(username, password string) error {
	return nil
}

// Mail handles MAIL FROM.
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles RCPT TO, applying the recipient-domain filter. Rejecting
// one recipient does not abort the session — the caller may send further
// RCPT TO lines.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	normalized := address.Normalize(to, s.backend.domain)

	if s.backend.rejectNonDomain {
		if domain := address.Domain(normalized); domain != s.backend.domain {
			return &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 1, 1},
				Message:      "Relay not permitted for this domain",
			}
		}
	}

	s.recipients = append(s.recipients, normalized)
	if s.backend.logger != nil {
		s.backend.logger.Debug("RCPT TO", slog.String("to", normalized))
	}
	return nil
}

// Data handles the DATA command: parses the MIME body once, then stores
// one Email row per accepted recipient before publishing EmailArrived for
// each — store commit happens before bus publication for every
// recipient, per the ordering guarantee the rest of the system depends
// on.
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Failed to read message body",
		}
	}

	parsed, err := ParseEmail(raw)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}

	from := parsed.From
	if from == "" {
		from = s.from
	}

	ctx := context.Background()
	now := time.Now().UTC()
	stored := 0
	for _, recipient := range s.recipients {
		email := &models.Email{
			ID:          uuid.NewString(),
			To:          recipient,
			From:        from,
			Subject:     parsed.Subject,
			Body:        parsed.Body,
			Timestamp:   now,
			Raw:         parsed.Raw,
			Attachments: parsed.Attachments,
		}

		if err := s.backend.store.PutEmail(ctx, email); err != nil {
			if s.backend.logger != nil {
				s.backend.logger.Error("failed to store email",
					slog.String("recipient", recipient), slog.Any("error", err))
			}
			continue
		}
		stored++
		s.backend.bus.PublishEmailArrived(email)
	}

	if stored == 0 {
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Failed to store message for any recipient",
		}
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", from),
			slog.Int("recipients", len(s.recipients)),
			slog.String("subject", parsed.Subject))
	}

	return nil
}

// Reset clears per-transaction state (MAIL FROM/RCPT TO) without closing
// the connection, for RSET and for the state reset STARTTLS triggers.
func (s *Session) Reset() {
	s.from = ""
	s.recipients = s.recipients[:0]
}

// Logout handles session end.
func (s *Session) Logout() error {
	return nil
}
