package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/models/dto"
	"github.com/hongminglow/record-archive/internal/storage"
)

// Register creates a user and returns its bearer token.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (dto.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return dto.LoginResponse{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = models.RoleCustomer
	}
	if !models.ValidRole(role) {
		return dto.LoginResponse{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	stored, err := s.passwords.Hash(req.Password)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("hash password: %w", err)
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if len(s.store.Find(ctx, ResourceUsers, map[string]any{"email": email})) > 0 {
		return dto.LoginResponse{}, fmt.Errorf("email %s: %w", email, storage.ErrAlreadyExists)
	}

	user := models.Record{
		models.FieldID:        ids.NewID("usr"),
		"email":               email,
		"password":            stored,
		"role":                role,
		"display_name":        displayName,
		models.FieldCreatedAt: s.clock.NowMS(),
	}
	user, err = s.store.Upsert(ctx, ResourceUsers, user)
	if err != nil {
		return dto.LoginResponse{}, err
	}
	token, err := s.ensureTokenLocked(ctx, user)
	if err != nil {
		return dto.LoginResponse{}, err
	}
	s.log.Info("user registered", "user_id", user.ID(), "role", role)
	return dto.LoginResponse{Token: token, User: models.IdentityFromUser(user)}, nil
}

// Login checks credentials and returns the user's stable bearer token.
func (s *Service) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	users := s.store.Find(ctx, ResourceUsers, map[string]any{"email": strings.TrimSpace(req.Email)})
	if len(users) == 0 || !s.passwords.Compare(users[0].String("password"), req.Password) {
		return dto.LoginResponse{}, access.ErrBadCredentials
	}
	user := users[0]
	token, err := s.ensureToken(ctx, user)
	if err != nil {
		return dto.LoginResponse{}, err
	}
	return dto.LoginResponse{Token: token, User: models.IdentityFromUser(user)}, nil
}

// Authenticate resolves a bearer credential ("Bearer xyz" or "xyz") to its user.
func (s *Service) Authenticate(ctx context.Context, credential string) (*models.Identity, error) {
	fields := strings.Fields(credential)
	if len(fields) == 0 {
		return nil, access.ErrNotAuthenticated
	}
	token := fields[len(fields)-1]
	if err := s.tokens.Verify(token); err != nil {
		return nil, fmt.Errorf("%w: %v", access.ErrNotAuthenticated, err)
	}
	users := s.store.Find(ctx, ResourceUsers, map[string]any{"token": token})
	if len(users) == 0 {
		return nil, access.ErrNotAuthenticated
	}
	id := models.IdentityFromUser(users[0])
	return &id, nil
}

// ensureToken assigns a token on first use. Once set it never changes.
func (s *Service) ensureToken(ctx context.Context, user models.Record) (string, error) {
	if tok := user.String("token"); tok != "" {
		return tok, nil
	}
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	if fresh, err := s.store.Get(ctx, ResourceUsers, user.ID()); err == nil {
		user = fresh
	}
	return s.ensureTokenLocked(ctx, user)
}

func (s *Service) ensureTokenLocked(ctx context.Context, user models.Record) (string, error) {
	if tok := user.String("token"); tok != "" {
		return tok, nil
	}
	tok, err := s.tokens.Issue(user.ID())
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	user["token"] = tok
	if _, err := s.store.Upsert(ctx, ResourceUsers, user); err != nil {
		return "", err
	}
	return tok, nil
}
