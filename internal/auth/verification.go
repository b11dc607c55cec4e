package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/scholaris-oas/scholaris/internal/mail"
	"github.com/scholaris-oas/scholaris/internal/shared"
)

// MailEnqueuer dispatches outbound mail to the background queue.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// VerificationConfig tunes the email verification flow.
type VerificationConfig struct {
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	ClientURL      string
}

// VerificationService drives the unverified → code-issued → verified flow,
// including the pendingEmail sub-flow for address changes.
type VerificationService struct {
	repo   Repository
	mailer MailEnqueuer
	cfg    VerificationConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(repo Repository, mailer MailEnqueuer, cfg VerificationConfig, logger *slog.Logger) *VerificationService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 24 * time.Hour
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationService{repo: repo, mailer: mailer, cfg: cfg, logger: logger, now: time.Now}
}

// IssueInitial generates and sends the first verification code for a freshly
// registered account. Accounts without an email skip verification until one
// is added.
func (s *VerificationService) IssueInitial(ctx context.Context, user *User) error {
	if user == nil || user.Email == "" {
		return nil
	}
	return s.issue(ctx, user, user.Email, "")
}

// Verify checks the code for the given account. Lookup is scoped to the user,
// never by code alone, so codes only need to be unique per account.
func (s *VerificationService) Verify(ctx context.Context, idNumber, code string) (*User, error) {
	user, err := s.repo.FindByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	v := user.Verification
	if user.Verified && (v == nil || v.PendingEmail == "") {
		return nil, shared.ErrAlreadyVerified
	}
	if v == nil || v.Code == "" || v.Code != code {
		return nil, shared.ErrInvalidCode
	}
	if s.now().After(v.ExpiresAt) {
		return nil, shared.ErrCodeExpired
	}
	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, user.ID)
}

// Resend issues a fresh code, subject to the cooldown.
func (s *VerificationService) Resend(ctx context.Context, idNumber string) error {
	user, err := s.repo.FindByIDNumber(ctx, idNumber)
	if err != nil {
		return err
	}
	pending := ""
	if user.Verification != nil {
		pending = user.Verification.PendingEmail
	}
	if user.Verified && pending == "" {
		return shared.ErrAlreadyVerified
	}
	target := pending
	if target == "" {
		target = user.Email
	}
	if target == "" {
		return shared.ValidationError("No email address on file")
	}
	if err := s.checkCooldown(user); err != nil {
		return err
	}
	return s.issue(ctx, user, target, pending)
}

// UpdateEmail stages a new address as pendingEmail and sends a code to it.
// The current verified email stays authoritative until the code is confirmed.
func (s *VerificationService) UpdateEmail(ctx context.Context, userID int64, newEmail string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == newEmail {
		return shared.Conflict("Email already set on this account")
	}
	inUse, err := s.repo.EmailInUse(ctx, newEmail)
	if err != nil {
		return err
	}
	if inUse {
		return shared.Conflict("Email already in use")
	}
	if err := s.checkCooldown(user); err != nil {
		return err
	}
	return s.issue(ctx, user, newEmail, newEmail)
}

func (s *VerificationService) checkCooldown(user *User) error {
	if user.Verification == nil || user.Verification.LastSentAt.IsZero() {
		return nil
	}
	elapsed := s.now().Sub(user.Verification.LastSentAt)
	if elapsed >= s.cfg.ResendCooldown {
		return nil
	}
	wait := int(math.Ceil((s.cfg.ResendCooldown - elapsed).Seconds()))
	return shared.RateLimited(wait)
}

func (s *VerificationService) issue(ctx context.Context, user *User, target, pending string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	now := s.now()
	v := Verification{
		Code:         code,
		ExpiresAt:    now.Add(s.cfg.CodeTTL),
		LastSentAt:   now,
		PendingEmail: pending,
	}
	if err := s.repo.SetVerification(ctx, user.ID, v); err != nil {
		return err
	}
	subject, body := mail.VerificationMessage(s.cfg.ClientURL, user.IDNumber, code)
	if err := s.mailer.EnqueueSendEmail(ctx, target, subject, body); err != nil {
		return fmt.Errorf("enqueue verification mail: %w", err)
	}
	s.logger.Info("verification code issued",
		slog.String("id_number", user.IDNumber),
		slog.Time("expires_at", v.ExpiresAt))
	return nil
}

// generateCode draws a 6-digit code uniformly from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
