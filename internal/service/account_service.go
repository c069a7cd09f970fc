package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"recruitflow/internal/domain"
	"recruitflow/internal/repository"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidPassword = errors.New("invalid password")
)

const minPasswordLength = 8

// AccountService coordina reglas de negocio para el alta y ajustes de
// cuentas.
type AccountService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	hasher   *PasswordHasher
}

func NewAccountService(logger *zap.Logger, accounts repository.AccountRepository, hasher *PasswordHasher) *AccountService {
	return &AccountService{
		logger:   logger,
		accounts: accounts,
		hasher:   hasher,
	}
}

type CreateAccountInput struct {
	Email            string
	DisplayName      string
	Password         string
	TwoFactorEnabled bool
}

func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (domain.Account, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return domain.Account{}, ErrInvalidEmail
	}
	password := strings.TrimSpace(input.Password)
	if len(password) < minPasswordLength {
		return domain.Account{}, ErrInvalidPassword
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = emailAddr
	}

	if _, err := s.accounts.GetByEmail(ctx, emailAddr); err == nil {
		return domain.Account{}, ErrDuplicateAccount
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}
	// El nombre visible tambien es unico entre cuentas.
	if _, err := s.accounts.GetByDisplayName(ctx, displayName); err == nil {
		return domain.Account{}, ErrDuplicateAccount
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:               uuid.NewString(),
		Email:            emailAddr,
		DisplayName:      displayName,
		PasswordHash:     passwordHash,
		TwoFactorEnabled: input.TwoFactorEnabled,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// SetTwoFactor habilita o deshabilita el segundo factor de la cuenta.
func (s *AccountService) SetTwoFactor(ctx context.Context, accountID string, enabled bool) error {
	if err := s.accounts.SetTwoFactorEnabled(ctx, accountID, enabled); err != nil {
		return err
	}
	if !enabled {
		// Un codigo pendiente no sobrevive a la deshabilitacion.
		return s.accounts.ClearTwoFactorCode(ctx, accountID)
	}
	return nil
}
