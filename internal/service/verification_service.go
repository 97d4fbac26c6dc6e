package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"eyegic/internal/config"
	"eyegic/internal/domain"
	"eyegic/internal/events"
	"eyegic/internal/models"
	"eyegic/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OTPOutcome labels the result of an OTP request or check.
type OTPOutcome string

const (
	OTPSent        OTPOutcome = "sent"
	OTPRateLimited OTPOutcome = "rate_limited"
	OTPVerified    OTPOutcome = "verified"
	OTPRejected    OTPOutcome = "rejected"
	OTPExhausted   OTPOutcome = "exhausted"
)

// OTPObserver is told about every OTP outcome.
type OTPObserver interface {
	ObserveOTP(outcome string)
}

// OTPRequestResult describes an issued challenge. Code is set only when the
// service is configured to echo codes.
type OTPRequestResult struct {
	ChallengeID string    `json:"challengeId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Code        string    `json:"code,omitempty"`
}

type VerificationService struct {
	repo     domain.Repository
	otp      domain.OTPRepository
	sender   domain.CodeSender
	eventBus domain.EventPublisher
	observer OTPObserver
	cfg      config.OTPConfig
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewVerificationService(
	repo domain.Repository,
	otp domain.OTPRepository,
	sender domain.CodeSender,
	eventBus domain.EventPublisher,
	cfg config.OTPConfig,
	logger *zerolog.Logger,
) *VerificationService {
	if sender == nil {
		sender = NewLogCodeSender(logger)
	}
	return &VerificationService{
		repo:     repo,
		otp:      otp,
		sender:   sender,
		eventBus: eventBus,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *VerificationService) SetObserver(o OTPObserver) {
	s.observer = o
}

// LogVerification appends an entry for mobileNumber. The number is recorded as
// given; repeated entries are kept.
func (s *VerificationService) LogVerification(ctx context.Context, mobileNumber string, actor models.Actor) (*models.MobileNumberVerification, error) {
	if strings.TrimSpace(mobileNumber) == "" {
		return nil, domain.InvalidInput("Mobile number is required")
	}

	entry := &models.MobileNumberVerification{
		MobileNumber: mobileNumber,
		VerifiedAt:   s.now(),
		VerifiedBy:   actor.ID,
	}
	if err := s.repo.AppendVerification(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("verification_id", entry.ID).Str("by", actor.ID).Msg("Mobile number verified")
	if s.eventBus != nil {
		payload := events.VerificationEventPayload{
			MobileNumber: entry.MobileNumber,
			VerifiedBy:   entry.VerifiedBy,
			VerifiedAt:   entry.VerifiedAt,
		}
		if err := s.eventBus.PublishJSON(events.EventMobileVerified, payload); err != nil {
			s.logger.Error().Err(err).Msg("publish event error")
		}
	}
	return entry, nil
}

func (s *VerificationService) ListVerifications(ctx context.Context, actor models.Actor) ([]*models.MobileNumberVerification, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("only admins can view verifications")
	}
	return s.repo.ListVerifications(ctx)
}

// RequestOTP issues a fresh code for mobile, replacing any pending one.
func (s *VerificationService) RequestOTP(ctx context.Context, mobile string) (*OTPRequestResult, error) {
	if err := validation.ValidatePhone(mobile).Err(); err != nil {
		return nil, err
	}
	mobile = validation.SanitizePhone(mobile)

	allowed, err := s.otp.CheckRateLimit(ctx, "otp:"+mobile, s.cfg.RateLimitRequests, s.cfg.RateLimitWindow)
	if err != nil {
		return nil, fmt.Errorf("check otp rate limit: %w", err)
	}
	if !allowed {
		s.observe(OTPRateLimited)
		return nil, domain.RateLimited("Too many code requests, try again later")
	}

	code, err := generateCode(models.OTPCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	challenge := &models.OTPChallenge{
		ID:           uuid.NewString(),
		MobileNumber: mobile,
		Code:         code,
		ExpiresAt:    s.now().Add(s.cfg.TTL),
	}
	if err := s.otp.SetChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}
	if err := s.sender.SendCode(ctx, mobile, code); err != nil {
		return nil, fmt.Errorf("send otp: %w", err)
	}

	s.observe(OTPSent)
	result := &OTPRequestResult{ChallengeID: challenge.ID, ExpiresAt: challenge.ExpiresAt}
	if s.cfg.EchoCode {
		result.Code = code
	}
	return result, nil
}

// VerifyOTP checks code against the pending challenge and logs the verification on
// success. A challenge is dropped after too many wrong guesses.
func (s *VerificationService) VerifyOTP(ctx context.Context, mobile, code string, actor models.Actor) (*models.MobileNumberVerification, error) {
	if err := validation.ValidatePhone(mobile).Err(); err != nil {
		return nil, err
	}
	mobile = validation.SanitizePhone(mobile)

	challenge, err := s.otp.GetChallenge(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}
	if challenge == nil || s.now().After(challenge.ExpiresAt) {
		s.observe(OTPRejected)
		return nil, domain.Validation(domain.CodeInvalidOTP, "Code has expired, request a new one")
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(strings.TrimSpace(code))) != 1 {
		attempts, err := s.otp.AddAttempt(ctx, mobile)
		if err != nil {
			return nil, fmt.Errorf("record otp attempt: %w", err)
		}
		if attempts == 0 {
			s.observe(OTPRejected)
			return nil, domain.Validation(domain.CodeInvalidOTP, "Code has expired, request a new one")
		}
		if attempts >= s.cfg.MaxAttempts {
			if err := s.otp.ClearChallenge(ctx, mobile); err != nil {
				s.logger.Error().Err(err).Msg("clear otp error")
			}
			s.observe(OTPExhausted)
			return nil, domain.Validation(domain.CodeInvalidOTP, "Too many attempts, request a new code")
		}
		s.observe(OTPRejected)
		return nil, domain.Validation(domain.CodeInvalidOTP, "Invalid verification code")
	}

	if err := s.otp.ClearChallenge(ctx, mobile); err != nil {
		s.logger.Error().Err(err).Msg("clear otp error")
	}
	s.observe(OTPVerified)
	return s.LogVerification(ctx, mobile, actor)
}

func (s *VerificationService) observe(outcome OTPOutcome) {
	if s.observer != nil {
		s.observer.ObserveOTP(string(outcome))
	}
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// LogCodeSender writes codes to the log instead of sending an SMS.
type LogCodeSender struct {
	logger *zerolog.Logger
}

func NewLogCodeSender(logger *zerolog.Logger) *LogCodeSender {
	return &LogCodeSender{logger: logger}
}

func (s *LogCodeSender) SendCode(ctx context.Context, mobile, code string) error {
	s.logger.Info().Str("mobile", mobile).Str("code", code).Msg("OTP code issued")
	return nil
}
