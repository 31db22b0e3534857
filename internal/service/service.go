// Package service implements the archive's operations: generic resource CRUD
// under owner scoping, authentication, system settings, the order approval
// workflow, and the events and notifications it emits.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hongminglow/record-archive/internal/auth"
	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/storage"
)

var (
	// ErrInvalidReference indicates a foreign-key-like field that does not resolve.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)

// Resource names with workflow meaning.
const (
	ResourceUsers         = "users"
	ResourceStores        = "stores"
	ResourceCategories    = "categories"
	ResourceProducts      = "products"
	ResourceOrders        = "orders"
	ResourceNotifications = "notifications"
	ResourceEvents        = "events"
	ResourceSettings      = "system_settings"
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Tokens    auth.TokenIssuer
	Passwords auth.PasswordHasher
	Clock     ids.Clock
	Logger    *slog.Logger
}

// Service exposes the archive operations on top of a CollectionStore.
type Service struct {
	store     storage.CollectionStore
	tokens    auth.TokenIssuer
	passwords auth.PasswordHasher
	clock     ids.Clock
	log       *slog.Logger

	// guards email uniqueness and first token assignment
	usersMu sync.Mutex
}

// New constructs a Service.
func New(store storage.CollectionStore, opts Options) *Service {
	s := &Service{
		store:     store,
		tokens:    opts.Tokens,
		passwords: opts.Passwords,
		clock:     opts.Clock,
		log:       opts.Logger,
	}
	if s.tokens == nil {
		s.tokens = auth.OpaqueTokens{}
	}
	if s.passwords == nil {
		s.passwords = auth.PlainPasswords{}
	}
	if s.clock == nil {
		s.clock = ids.SystemClock{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func validateResource(resource string) error {
	if err := storage.ValidateResource(resource); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
