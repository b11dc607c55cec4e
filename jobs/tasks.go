package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// EmailSender delivers a single message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailHandler processes TaskTypeSendEmail tasks against an SMTP sender.
type MailHandler struct {
	sender  EmailSender
	logger  *slog.Logger
	metrics *Metrics
}

// NewMailHandler constructs a MailHandler.
func NewMailHandler(sender EmailSender, logger *slog.Logger, metrics *Metrics) *MailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailHandler{sender: sender, logger: logger, metrics: metrics}
}

// Handle delivers the email. Transport failures are returned so Asynq retries
// them; malformed payloads are dropped.
func (h *MailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskTypeSendEmail)
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("malformed mail payload", slog.Any("error", err))
		return tracker.End(asynq.SkipRetry)
	}
	if payload.To == "" {
		h.logger.Error("mail payload missing recipient")
		return tracker.End(asynq.SkipRetry)
	}
	if err := h.sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		h.logger.Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}
