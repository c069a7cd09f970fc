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

const (
	sessionTokenBytes = 32

	defaultSessionTTL = 30 * 24 * time.Hour
)

// SessionService emite, valida y revoca sesiones. Solo persiste el hash
// del token; el token en claro sale una unica vez, al crear la sesion.
type SessionService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	ttl      time.Duration
}

func NewSessionService(logger *zap.Logger, sessions repository.SessionRepository, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		logger:   logger,
		sessions: sessions,
		ttl:      ttl,
	}
}

func (s *SessionService) Create(ctx context.Context, accountID string, origin domain.Origin) (domain.Session, string, error) {
	token, err := RandomToken(sessionTokenBytes)
	if err != nil {
		return domain.Session{}, "", err
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		TokenHash:  HashForStorage(token),
		IPAddress:  origin.IPAddress,
		UserAgent:  origin.UserAgent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, "", err
	}
	return session, token, nil
}

// Validate busca la sesion por el hash del token presentado y la devuelve
// solo si no esta revocada ni vencida. El refresco de last_seen_at es de
// mejor esfuerzo; su fallo no invalida la sesion.
func (s *SessionService) Validate(ctx context.Context, plaintextToken string) (domain.Session, error) {
	plaintextToken = strings.TrimSpace(plaintextToken)
	if plaintextToken == "" {
		return domain.Session{}, ErrSessionInvalid
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashForStorage(plaintextToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, ErrSessionInvalid
		}
		return domain.Session{}, err
	}

	now := time.Now().UTC()
	if !session.Usable(now) {
		return domain.Session{}, ErrSessionInvalid
	}

	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		if s.logger != nil {
			s.logger.Warn("session touch failed", zap.Error(err), zap.String("session_id", session.ID))
		}
	} else {
		session.LastSeenAt = now
	}
	return session, nil
}

// Revoke es idempotente: revocar una sesion ya revocada no hace nada.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID, time.Now().UTC())
}

// RevokeOwned revoca una sesion solo si pertenece a la cuenta indicada.
func (s *SessionService) RevokeOwned(ctx context.Context, accountID, sessionID string) (bool, error) {
	return s.sessions.RevokeOwned(ctx, accountID, sessionID, time.Now().UTC())
}

func (s *SessionService) RevokeAll(ctx context.Context, accountID string) error {
	return s.sessions.RevokeAll(ctx, accountID, time.Now().UTC())
}

// List devuelve solo los campos no secretos de cada sesion de la cuenta.
func (s *SessionService) List(ctx context.Context, accountID string) ([]domain.SessionSummary, error) {
	sessions, err := s.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, session.Summary())
	}
	return summaries, nil
}

// CleanupExpired borra sesiones vencidas. Es higiene de almacenamiento;
// Validate ya rechaza sesiones vencidas sin necesidad de este barrido.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now().UTC())
}
