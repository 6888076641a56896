package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	internaljwt "visitor-tracker-backend/internal/jwt"
	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/model"

	"github.com/google/uuid"
)

const defaultPlan = "starter"

type Service struct {
	repo Repository
	now  func() time.Time
}

var createTokenWithRefresh = internaljwt.CreateTokenWithRefresh

// SetTokenIssuer swaps the token issuer, for tests that run without Redis.
func SetTokenIssuer(issuer func(internaljwt.User, internaljwt.Role, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		createTokenWithRefresh = internaljwt.CreateTokenWithRefresh
		return
	}
	createTokenWithRefresh = issuer
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (AuthResult, error) {
	email := normalizeEmail(params.OwnerEmail)
	password := strings.TrimSpace(params.Password)
	name := strings.TrimSpace(params.OwnerName)
	tenantName := strings.TrimSpace(params.TenantName)

	if email == "" || password == "" || name == "" || tenantName == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return AuthResult{}, newError(ErrorCodeConflict, "email already registered", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to check email", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	tenantID := uuid.NewString()
	userID := uuid.NewString()

	tenant := model.TenantItem{
		TenantID: tenantID,
		Name:     tenantName,
		Plan:     defaultPlan,
		Created:  now,
	}
	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to create tenant", err)
	}

	newUser, err := internaljwt.NewUser(internaljwt.RegisterUser{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}
	newUser.Id = userID
	newUser.TenantID = tenantID

	user := model.UserItem{
		PK:           model.TenantScopedPK(tenantID, userID),
		TenantID:     tenantID,
		UserID:       userID,
		Email:        email,
		Name:         name,
		Role:         "owner",
		Status:       "active",
		PasswordHash: newUser.PasswordHash,
		CreatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to save user", err)
	}

	tokens, err := createTokenWithRefresh(newUser, internaljwt.RoleUser, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		User:   user,
		Tenant: tenant,
		Tokens: tokens,
	}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", err)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to look up user", err)
	}

	if !internaljwt.ValidatePassword(user.PasswordHash, password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, user.TenantID)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to load tenant", err)
	}

	tokens, err := createTokenWithRefresh(internaljwt.User{
		Id:       user.UserID,
		TenantID: user.TenantID,
		Email:    user.Email,
	}, internaljwt.RoleUser, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		User:   user,
		Tenant: tenant,
		Tokens: tokens,
	}, nil
}

func (s *Service) Profile(ctx context.Context, identity Identity) (ProfileResult, error) {
	if identity.UserID == "" || identity.TenantID == "" {
		return ProfileResult{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}

	user, err := s.repo.GetUser(ctx, identity.TenantID, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileResult{}, newError(ErrorCodeNotFound, "user not found", err)
		}
		return ProfileResult{}, newError(ErrorCodeInternal, "failed to load user", err)
	}

	tenant, err := s.repo.GetTenant(ctx, identity.TenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileResult{}, newError(ErrorCodeNotFound, "tenant not found", err)
		}
		return ProfileResult{}, newError(ErrorCodeInternal, "failed to load tenant", err)
	}

	return ProfileResult{
		User:   user,
		Tenant: tenant,
	}, nil
}

// IdentityFromAuthorizationHeader validates a Bearer token and extracts the
// caller's identity.
func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization token", nil)
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleUser)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization token", err)
	}

	identity := Identity{}
	if id, ok := claims["id"].(string); ok {
		identity.UserID = id
	}
	if tenantID, ok := claims["tenantId"].(string); ok {
		identity.TenantID = tenantID
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}

	if identity.UserID == "" || identity.TenantID == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "incomplete token claims", nil)
	}
	return identity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
