// Package mailer delivers registration notification emails over SMTP. SMTP
// failure is never fatal to the operation that triggered the message: the
// outcome is logged, reported to the caller, and (when Redis is available)
// the message is parked on an outbox list for a background worker to retry.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	mail "github.com/wneessen/go-mail"
	"gorm.io/gorm"

	"wushuacademy_go/config"
	"wushuacademy_go/database"
	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

const outboxKey = "emails:outbox"

// sendAttempts bounds immediate SMTP retries before a message is parked.
const sendAttempts = 3

// Message is one composed email.
type Message struct {
	To       string `json:"to"`
	ToName   string `json:"to_name"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// Sender performs the actual delivery. Split out so tests can run the retry
// and outbox logic without an SMTP server.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type smtpSender struct {
	cfg *config.Config
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	if s.cfg.ReplyTo != "" {
		if err := m.ReplyTo(s.cfg.ReplyTo); err != nil {
			return fmt.Errorf("set reply-to: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.SMTPUsername),
		mail.WithPassword(s.cfg.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

// queuedEmail is the outbox item stored in Redis.
type queuedEmail struct {
	Message            Message   `json:"message"`
	EventType          string    `json:"event_type"`
	RegistrationID     uint      `json:"registration_id"`
	RegistrationNumber string    `json:"registration_number"`
	CreatedAt          time.Time `json:"created_at"`
}

// Service composes and delivers registration emails. It implements
// registration.Notifier.
type Service struct {
	sender   Sender
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
}

func NewService() *Service {
	return &Service{
		sender:   &smtpSender{cfg: config.AppConfig},
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisEmailQueue && database.GetRedisClient() != nil,
	}
}

// NotifyStatus delivers the approval/rejection email for a committed status
// change.
func (s *Service) NotifyStatus(ctx context.Context, ev registration.StatusEvent) error {
	var msg Message
	switch ev.EventType {
	case models.PaymentApproved:
		msg = approvedMessage(ev)
	case models.PaymentRejected:
		msg = rejectedMessage(ev)
	default:
		return fmt.Errorf("unknown notification event type %q", ev.EventType)
	}
	return s.deliver(ctx, msg, ev.EventType, ev.RegistrationID, ev.RegistrationNumber)
}

// SendConfirmation delivers the "registration received" email after a
// successful submission.
func (s *Service) SendConfirmation(ctx context.Context, reg *models.Registration) error {
	msg := confirmationMessage(reg)
	return s.deliver(ctx, msg, "confirmation", reg.ID, reg.RegistrationNumber)
}

func (s *Service) deliver(ctx context.Context, msg Message, eventType string, regID uint, regNumber string) error {
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if lastErr = s.sender.Send(ctx, msg); lastErr == nil {
			s.logOutcome(msg, eventType, regID, regNumber, "sent", attempt, nil)
			return nil
		}
		logrus.WithFields(logrus.Fields{
			"recipient":           msg.To,
			"event_type":          eventType,
			"registration_number": regNumber,
			"attempt":             attempt,
		}).WithError(lastErr).Warn("email delivery attempt failed")
		if attempt < sendAttempts {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = sendAttempts
			}
		}
	}

	if s.enqueue(msg, eventType, regID, regNumber) {
		s.logOutcome(msg, eventType, regID, regNumber, "queued", sendAttempts, lastErr)
	} else {
		s.logOutcome(msg, eventType, regID, regNumber, "failed", sendAttempts, lastErr)
	}
	return lastErr
}

func (s *Service) enqueue(msg Message, eventType string, regID uint, regNumber string) bool {
	if !s.useRedis {
		return false
	}
	item := queuedEmail{
		Message:            msg,
		EventType:          eventType,
		RegistrationID:     regID,
		RegistrationNumber: regNumber,
		CreatedAt:          time.Now().UTC(),
	}
	b, err := json.Marshal(item)
	if err != nil {
		return false
	}
	if err := s.redis.RPush(context.Background(), outboxKey, b).Err(); err != nil {
		logrus.WithError(err).Warn("email outbox enqueue failed")
		return false
	}
	return true
}

func (s *Service) logOutcome(msg Message, eventType string, regID uint, regNumber, status string, attempts int, sendErr error) {
	if s.db == nil {
		return
	}
	entry := models.EmailLog{
		RegistrationID:     regID,
		RegistrationNumber: regNumber,
		Recipient:          msg.To,
		Subject:            msg.Subject,
		EventType:          eventType,
		Status:             status,
		Attempts:           attempts,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := s.db.Create(&entry).Error; err != nil {
		logrus.WithError(err).Error("failed to record email log")
	}
}

// StartWorker drains the Redis outbox in the background, redelivering
// messages that failed their immediate attempts.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		logrus.Info("email outbox disabled; worker not started")
		return
	}
	go func() {
		logrus.Info("email outbox worker started")
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		for {
			select {
			case <-stop:
				logrus.Info("email outbox worker stopping")
				return
			case <-ticker.C:
				s.flushOutbox(ctx, 20)
			}
		}
	}()
}

func (s *Service) flushOutbox(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	vals, err := s.redis.LRange(ctx, outboxKey, 0, int64(batchSize-1)).Result()
	if err != nil || len(vals) == 0 {
		return
	}
	// Trim immediately to avoid duplicate sends (best-effort)
	if err := s.redis.LTrim(ctx, outboxKey, int64(len(vals)), -1).Err(); err != nil {
		logrus.WithError(err).Warn("email outbox trim failed")
	}
	for _, raw := range vals {
		var item queuedEmail
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		if err := s.sender.Send(ctx, item.Message); err != nil {
			logrus.WithError(err).WithField("recipient", item.Message.To).Warn("outbox redelivery failed")
			s.logOutcome(item.Message, item.EventType, item.RegistrationID, item.RegistrationNumber, "failed", 1, err)
			continue
		}
		s.logOutcome(item.Message, item.EventType, item.RegistrationID, item.RegistrationNumber, "sent", 1, nil)
	}
}
