package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/shared"
)

// Service wraps authentication and account business rules.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register creates a new account and issues its first token. The role is
// always user; elevation happens only through user administration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, string, error) {
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, "", err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	user, err := s.repo.Create(ctx, &User{
		Name:         req.Name,
		Email:        NormalizeEmail(req.Email),
		PasswordHash: hash,
	})
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login validates credentials and issues a token. Unknown email, wrong
// password and deactivated accounts all fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, "", shared.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = ""
	return user, token, nil
}

// VerifyToken resolves a bearer token to a live, active account. This is the
// identity pipeline behind both the protect middleware and the public verify
// endpoint: signature and expiry first, then existence, then activation.
// Deactivation takes effect on the very next request even though the token
// itself is still cryptographically valid.
func (s *Service) VerifyToken(ctx context.Context, token string) (*User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", httpx.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account deactivated", httpx.ErrUnauthorized)
	}
	return user, nil
}

// CurrentUser fetches the acting user's account record.
func (s *Service) CurrentUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile changes name and/or email. Email uniqueness is enforced by
// the store excluding the account itself.
func (s *Service) UpdateProfile(ctx context.Context, id int64, req UpdateProfileRequest) (*User, error) {
	email := req.Email
	if email != nil {
		normalized := NormalizeEmail(*email)
		email = &normalized
	}
	return s.repo.UpdateProfile(ctx, id, req.Name, email)
}

// ChangePassword verifies the current password before storing a new digest.
// The new password is subject to the registration strength rule.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	hash, err := s.repo.PasswordHashByID(ctx, id)
	if err != nil {
		return err
	}
	if !CheckPassword(current, hash) {
		return fmt.Errorf("%w: current password is incorrect", httpx.ErrUnauthorized)
	}
	if err := ValidatePasswordStrength(next); err != nil {
		return err
	}
	newHash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, newHash)
}
