package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"recruitflow/internal/email"
	"recruitflow/internal/repository"
)

const (
	resetTokenBytes = 32

	defaultResetTTL  = 24 * time.Hour
	resetSendTimeout = 10 * time.Second
)

// ResetService emite y canjea tickets de reinicio de contraseña de un
// solo uso.
type ResetService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	sessions *SessionService
	hasher   *PasswordHasher
	sender   email.Sender
	ttl      time.Duration
	baseURL  string
}

func NewResetService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	sessions *SessionService,
	hasher *PasswordHasher,
	sender email.Sender,
	ttl time.Duration,
	baseURL string,
) *ResetService {
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	return &ResetService{
		logger:   logger,
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		sender:   sender,
		ttl:      ttl,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Request emite un ticket si el identificador corresponde a una cuenta.
// El resultado externo es identico exista o no la cuenta, para no servir
// de oraculo de enumeracion.
func (s *ResetService) Request(ctx context.Context, identifier string) error {
	identifier = normalizeEmail(identifier)
	if identifier == "" {
		return nil
	}

	account, err := s.accounts.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := RandomToken(resetTokenBytes)
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.ttl)
	if err := s.accounts.UpdateResetToken(ctx, account.ID, HashForStorage(token), expiresAt); err != nil {
		return err
	}

	if s.sender == nil {
		return nil
	}
	// La entrega sale del camino del request: que el correo tarde o falle
	// no puede cambiar ni la respuesta ni cuanto demora, exista o no la
	// cuenta.
	resetURL := s.baseURL + "/reset-password?token=" + token
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), resetSendTimeout)
		defer cancel()
		if err := s.sender.SendPasswordReset(sendCtx, account.Email, resetURL, expiresAt); err != nil {
			if s.logger != nil {
				s.logger.Warn("reset link delivery failed", zap.Error(err), zap.String("account_id", account.ID))
			}
		}
	}()
	return nil
}

// Redeem canjea el ticket: nueva contraseña, ticket y bloqueo limpios, y
// todas las sesiones previas de la cuenta revocadas. La revocacion total
// no es opcional; un reset invalida cada sesion anterior.
func (s *ResetService) Redeem(ctx context.Context, plaintextToken, newSecret string) error {
	plaintextToken = strings.TrimSpace(plaintextToken)
	if plaintextToken == "" {
		return ErrResetTokenInvalid
	}
	// La contraseña nueva pasa por la misma regla que en el alta; el reset
	// no es una puerta lateral a la politica.
	newSecret = strings.TrimSpace(newSecret)
	if len(newSecret) < minPasswordLength {
		return ErrInvalidPassword
	}

	account, err := s.accounts.GetByResetTokenHash(ctx, HashForStorage(plaintextToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if account.ResetExpiresAt == nil || time.Now().UTC().After(*account.ResetExpiresAt) {
		return ErrResetTokenInvalid
	}

	passwordHash, err := s.hasher.Hash(newSecret)
	if err != nil {
		return err
	}
	if err := s.accounts.CompleteReset(ctx, account.ID, passwordHash); err != nil {
		return err
	}
	return s.sessions.RevokeAll(ctx, account.ID)
}
