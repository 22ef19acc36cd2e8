package user

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tamales-preorder/internal/domain"
)

type Service interface {
	Get(ctx context.Context, email string) (*domain.User, error)
	CreateOrUpdate(ctx context.Context, req domain.CreateUserRequest) error
	UpdateVerification(ctx context.Context, req domain.UpdateVerificationRequest) error
	Verify(ctx context.Context, req domain.VerifyUserRequest) (*domain.User, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Upsert(ctx context.Context, u *domain.User) error
	UpdateVerification(ctx context.Context, email string, code, codeCreatedAt *string) error
	MarkVerified(ctx context.Context, email, code string) (*domain.User, error)
}

type service struct {
	repo    userStore
	codeTTL time.Duration
	now     func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	// CodeTTL bounds how old a verification code may be. Zero disables the check.
	CodeTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:    deps.UserRepo,
		codeTTL: deps.CodeTTL,
		now:     time.Now,
	}
}

// Get returns nil without error when no user has that email.
func (s *service) Get(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.BadRequest("Email parameter required")
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (s *service) CreateOrUpdate(ctx context.Context, req domain.CreateUserRequest) error {
	email := domain.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return domain.BadRequest("Name and email required")
	}
	return s.repo.Upsert(ctx, &domain.User{
		Email:            email,
		Name:             name,
		Birthday:         req.Birthday,
		Phone:            req.Phone,
		VerificationCode: req.VerificationCode,
		CodeCreatedAt:    req.CodeCreatedAt,
		CreatedAt:        s.now().UTC(),
	})
}

func (s *service) UpdateVerification(ctx context.Context, req domain.UpdateVerificationRequest) error {
	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		return domain.BadRequest("Email required")
	}
	err := s.repo.UpdateVerification(ctx, email, req.VerificationCode, req.CodeCreatedAt)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("User not found")
	}
	return err
}

// Verify marks the user verified when code matches the stored one. The match
// and the write happen in one store call, so a concurrent code change cannot
// slip between them.
func (s *service) Verify(ctx context.Context, req domain.VerifyUserRequest) (*domain.User, error) {
	email := domain.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return nil, domain.BadRequest("Email and code required")
	}
	if s.codeTTL > 0 {
		if err := s.checkCodeAge(ctx, email, code); err != nil {
			return nil, err
		}
	}
	u, err := s.repo.MarkVerified(ctx, email, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.BadRequest("Invalid code")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) checkCodeAge(ctx context.Context, email, code string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.BadRequest("Invalid code")
	}
	if err != nil {
		return err
	}
	if u.VerificationCode == nil || *u.VerificationCode != code {
		return domain.BadRequest("Invalid code")
	}
	if u.CodeCreatedAt == nil {
		return nil
	}
	issued, ok := parseCodeTime(*u.CodeCreatedAt)
	if !ok {
		return nil
	}
	if s.now().Sub(issued) > s.codeTTL {
		return domain.BadRequest("Verification code expired")
	}
	return nil
}

// parseCodeTime accepts the two shapes storefront clients send: an RFC 3339
// timestamp or Unix milliseconds.
func parseCodeTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}
