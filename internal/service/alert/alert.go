package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrz1836/postmark"

	"github.com/rideloop/backend/internal/coordinator"
	"github.com/rideloop/backend/internal/domain/user"
	"github.com/rideloop/backend/pkg/logger"
)

// EventEmergencyAlert is broadcast to admin sessions on a triggered alert
const EventEmergencyAlert = "emergency:alert"

// EmailSender delivers one alert email. Failures are best-effort only and
// never fail the triggering intent.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PostmarkSender sends alert mail through Postmark
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

// NewPostmarkSender creates a Postmark-backed sender
func NewPostmarkSender(serverToken, accountToken, from string) *PostmarkSender {
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}
}

// Send delivers one plain-text alert email
func (s *PostmarkSender) Send(ctx context.Context, to, subject, body string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       to,
		Subject:  subject,
		TextBody: body,
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

// Payload is the alert event body
type Payload struct {
	FromUserID uuid.UUID  `json:"from_user_id"`
	FromName   string     `json:"from_name"`
	FromPhone  string     `json:"from_phone,omitempty"`
	RideID     *uuid.UUID `json:"ride_id,omitempty"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Service fans emergency alerts out to admin sessions and, best-effort, to
// the user's registered emergency contacts by email.
type Service struct {
	notifier coordinator.Notifier
	email    EmailSender
	logger   *logger.Logger
}

// NewService creates the alert service. email may be nil when no mail
// transport is configured.
func NewService(notifier coordinator.Notifier, email EmailSender, log *logger.Logger) *Service {
	return &Service{notifier: notifier, email: email, logger: log}
}

// TriggerInput carries an alert request
type TriggerInput struct {
	RideID  *uuid.UUID
	Message string
}

// Trigger raises an alert for a principal. The socket broadcast and any
// emails are side notifications: a failing collaborator is logged and
// swallowed, the intent itself always succeeds.
func (s *Service) Trigger(ctx context.Context, from *user.User, in TriggerInput) int {
	message := in.Message
	if message == "" {
		message = from.Name + " triggered an emergency alert"
	}
	payload := Payload{
		FromUserID: from.ID,
		FromName:   from.Name,
		FromPhone:  from.Phone,
		RideID:     in.RideID,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}

	s.notifier.NotifyGroup(coordinator.GroupAdmins, EventEmergencyAlert, payload)

	notified := 0
	for _, contact := range from.EmergencyContacts {
		if contact.Email == "" {
			continue
		}
		if s.email == nil {
			continue
		}
		subject := "Emergency alert from " + from.Name
		body := fmt.Sprintf("%s\nRide: %s\nTime: %s",
			message, rideRef(in.RideID), payload.Timestamp.Format(time.RFC3339))
		if err := s.email.Send(ctx, contact.Email, subject, body); err != nil {
			s.logger.Warn("Failed to send alert email",
				logger.String("to", contact.Email),
				logger.Err(err),
			)
			continue
		}
		notified++
	}

	s.logger.Info("Emergency alert raised",
		logger.String("user_id", from.ID.String()),
		logger.Int("emails_sent", notified),
	)
	return notified
}

func rideRef(id *uuid.UUID) string {
	if id == nil {
		return "N/A"
	}
	return id.String()
}
