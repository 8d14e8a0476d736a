// internal/service/auth/auth_service.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"concierge-service/internal/domain/auth"
	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/subscription"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/jwt"
	"concierge-service/internal/pkg/session"
	"concierge-service/internal/pkg/tier"
	"concierge-service/internal/repository/postgres"
	"concierge-service/internal/service/email"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const trialPeriod = 14 * 24 * time.Hour

type AuthService struct {
	businessRepo *postgres.BusinessRepository
	adminRepo    *postgres.AdminRepository
	subRepo      *postgres.SubscriptionRepository
	jwtGen       *jwt.Generator
	jwtVerifier  *jwt.Verifier
	rateLimiter  *session.RateLimiter
	emailSender  *email.Sender
	logger       *zap.Logger
}

func NewAuthService(
	businessRepo *postgres.BusinessRepository,
	adminRepo *postgres.AdminRepository,
	subRepo *postgres.SubscriptionRepository,
	jwtGen *jwt.Generator,
	jwtVerifier *jwt.Verifier,
	rateLimiter *session.RateLimiter,
	emailSender *email.Sender,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		businessRepo: businessRepo,
		adminRepo:    adminRepo,
		subRepo:      subRepo,
		jwtGen:       jwtGen,
		jwtVerifier:  jwtVerifier,
		rateLimiter:  rateLimiter,
		emailSender:  emailSender,
		logger:       logger,
	}
}

// Register creates a business account with a trial subscription and logs
// it straight in.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.LoginResponse, error) {
	exists, err := s.businessRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, xerrors.ErrDuplicateEntry
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	biz := &business.Business{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.BusinessName,
		Tier:         tier.Normalize(req.Tier),
		Status:       business.StatusActive,
	}
	if req.BusinessType != "" {
		biz.BusinessType = sql.NullString{String: req.BusinessType, Valid: true}
	}

	if err := s.businessRepo.Create(ctx, biz); err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &subscription.Subscription{
		Reference:          ulid.Make().String(),
		BusinessID:         biz.ID,
		Tier:               biz.Tier,
		Status:             subscription.StatusTrial,
		BillingCycle:       subscription.CycleMonthly,
		PaymentStatus:      subscription.PaymentPending,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(trialPeriod),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendWelcome(biz.Email, biz.Name); err != nil {
			s.logger.Warn("welcome email failed",
				zap.Error(err),
				zap.Int64("business_id", biz.ID),
			)
		}
	}

	token, _, err := s.jwtGen.Generate(biz.ID, []string{"business"})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("business registered",
		zap.Int64("business_id", biz.ID),
		zap.String("tier", string(biz.Tier)),
	)

	return &auth.LoginResponse{Token: token, Business: biz.ToProfile()}, nil
}

// Login authenticates a business account. Invalid email and invalid
// password produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.rateLimiter != nil {
		allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
		if err != nil {
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.logger.Warn("login rate limited",
				zap.String("ip", req.IPAddress),
				zap.Int("remaining", remaining),
			)
			return nil, xerrors.ErrRateLimited
		}
	}

	biz, err := s.businessRepo.FindByEmail(ctx, req.Email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(biz.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	if s.rateLimiter != nil {
		s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email)
	}

	token, _, err := s.jwtGen.Generate(biz.ID, []string{"business"})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("business login",
		zap.Int64("business_id", biz.ID),
		zap.String("ip", req.IPAddress),
	)

	return &auth.LoginResponse{Token: token, Business: biz.ToProfile()}, nil
}

// AdminLogin authenticates a platform admin.
func (s *AuthService) AdminLogin(ctx context.Context, req *auth.LoginRequest) (*auth.AdminLoginResponse, error) {
	if s.rateLimiter != nil {
		allowed, _, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
		if err != nil {
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, xerrors.ErrRateLimited
		}
	}

	admin, err := s.adminRepo.FindByEmail(ctx, req.Email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, xerrors.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	if s.rateLimiter != nil {
		s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email)
	}
	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID); err != nil {
		s.logger.Warn("failed to stamp admin login", zap.Error(err))
	}

	token, _, err := s.jwtGen.Generate(admin.ID, []string{admin.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("admin login", zap.Int64("admin_id", admin.ID))

	return &auth.AdminLoginResponse{Token: token, Email: admin.Email, Role: admin.Role}, nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.jwtVerifier.Verify(tokenString)
}

// EnsureSuperAdminExists seeds the initial super admin from env config on
// startup, so a fresh deployment is operable without manual SQL.
func (s *AuthService) EnsureSuperAdminExists(ctx context.Context, adminEmail, adminPassword string) error {
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	_, err := s.adminRepo.FindByEmail(ctx, adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &auth.Admin{
		Email:        adminEmail,
		PasswordHash: string(hash),
		Role:         "super_admin",
		IsActive:     true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return err
	}

	s.logger.Info("seeded super admin", zap.String("email", adminEmail))
	return nil
}
