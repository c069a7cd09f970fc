package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"recruitflow/internal/domain"
	"recruitflow/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrChallengeInvalid   = errors.New("challenge invalid or expired")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrRateLimited        = errors.New("rate limited")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrSessionNotFound    = errors.New("session not found")
)

const challengeRefBytes = 32

// LoginStatus identifica el desenlace de un intento de acceso.
type LoginStatus string

const (
	LoginAuthenticated     LoginStatus = "authenticated"
	LoginChallengeRequired LoginStatus = "challenge_required"
	LoginLocked            LoginStatus = "locked"
	LoginRejected          LoginStatus = "rejected"
)

// LoginResult es el resultado de Login o VerifyTwoFactor. Segun Status
// trae una sesion con su token en claro, o los datos del desafio 2FA.
type LoginResult struct {
	Status        LoginStatus
	Session       domain.Session
	Token         string
	MaskedEmail   string
	ChallengeRef  string
	CodeDelivered bool
}

// AuthService compone hasher, bloqueo, 2FA y sesiones en el flujo de
// acceso completo.
type AuthService struct {
	logger     *zap.Logger
	accounts   repository.AccountRepository
	hasher     *PasswordHasher
	lockout    *LockoutPolicy
	sessions   *SessionService
	twoFactor  *TwoFactorService
	challenges ChallengeStore
	resends    ResendLimiter
}

func NewAuthService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	hasher *PasswordHasher,
	lockout *LockoutPolicy,
	sessions *SessionService,
	twoFactor *TwoFactorService,
	challenges ChallengeStore,
	resends ResendLimiter,
) *AuthService {
	if challenges == nil {
		challenges = NewMemoryChallengeStore()
	}
	if resends == nil {
		resends = NewResendLimiter(10*time.Minute, 3)
	}
	return &AuthService{
		logger:     logger,
		accounts:   accounts,
		hasher:     hasher,
		lockout:    lockout,
		sessions:   sessions,
		twoFactor:  twoFactor,
		challenges: challenges,
		resends:    resends,
	}
}

// Login ejecuta el flujo completo: bloqueo, contraseña y ramificacion a
// 2FA o sesion directa. Identificador desconocido y contraseña erronea
// terminan en el mismo resultado; la distincion no sale de aqui.
func (s *AuthService) Login(ctx context.Context, identifier, secret string, origin domain.Origin) (LoginResult, error) {
	identifier = normalizeEmail(identifier)
	secret = strings.TrimSpace(secret)
	if identifier == "" || secret == "" {
		return LoginResult{Status: LoginRejected}, nil
	}

	account, err := s.accounts.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{Status: LoginRejected}, nil
		}
		return LoginResult{}, err
	}

	if s.lockout.IsLocked(account, time.Now().UTC()) {
		return LoginResult{Status: LoginLocked}, nil
	}

	if !s.hasher.Verify(secret, account.PasswordHash) {
		if _, _, err := s.lockout.RecordFailure(ctx, account.ID); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Status: LoginRejected}, nil
	}

	if err := s.lockout.RecordSuccess(ctx, account.ID); err != nil {
		return LoginResult{}, err
	}

	if account.TwoFactorEnabled {
		return s.beginChallenge(ctx, account)
	}

	session, token, err := s.sessions.Create(ctx, account.ID, origin)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Status:  LoginAuthenticated,
		Session: session,
		Token:   token,
	}, nil
}

func (s *AuthService) beginChallenge(ctx context.Context, account domain.Account) (LoginResult, error) {
	issue, err := s.twoFactor.Issue(ctx, account)
	if err != nil {
		return LoginResult{}, err
	}

	ref, err := RandomToken(challengeRefBytes)
	if err != nil {
		return LoginResult{}, err
	}
	ttl := time.Until(issue.ExpiresAt)
	if err := s.challenges.Store(HashForStorage(ref), account.ID, ttl); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Status:        LoginChallengeRequired,
		MaskedEmail:   issue.MaskedEmail,
		ChallengeRef:  ref,
		CodeDelivered: issue.Delivered,
	}, nil
}

// VerifyTwoFactor canjea la referencia de desafio mas el codigo por una
// sesion. La referencia se consume solo en el acierto; un codigo errado
// deja el desafio en pie hasta que venza.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, challengeRef, code string, origin domain.Origin) (LoginResult, error) {
	refHash := HashForStorage(strings.TrimSpace(challengeRef))
	accountID, ok, err := s.challenges.Peek(refHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{Status: LoginRejected}, nil
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{Status: LoginRejected}, nil
		}
		return LoginResult{}, err
	}

	if err := s.twoFactor.Verify(ctx, account, code); err != nil {
		if errors.Is(err, ErrChallengeInvalid) {
			return LoginResult{Status: LoginRejected}, nil
		}
		return LoginResult{}, err
	}

	if _, _, err := s.challenges.Consume(refHash); err != nil && s.logger != nil {
		s.logger.Warn("challenge consume failed", zap.Error(err))
	}

	session, token, err := s.sessions.Create(ctx, account.ID, origin)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Status:  LoginAuthenticated,
		Session: session,
		Token:   token,
	}, nil
}

// ResendTwoFactor emite un codigo nuevo para un desafio vigente, pisando
// el anterior. El limitador protege el canal de entrega.
func (s *AuthService) ResendTwoFactor(ctx context.Context, challengeRef string) (ChallengeIssue, error) {
	refHash := HashForStorage(strings.TrimSpace(challengeRef))
	accountID, ok, err := s.challenges.Peek(refHash)
	if err != nil {
		return ChallengeIssue{}, err
	}
	if !ok {
		return ChallengeIssue{}, ErrChallengeNotFound
	}

	if s.resends != nil && !s.resends.Allow(accountID) {
		return ChallengeIssue{}, ErrRateLimited
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChallengeIssue{}, ErrChallengeNotFound
		}
		return ChallengeIssue{}, err
	}

	issue, err := s.twoFactor.Issue(ctx, account)
	if err != nil {
		return ChallengeIssue{}, err
	}
	// El desafio sigue la vida del codigo nuevo.
	if err := s.challenges.Store(refHash, account.ID, time.Until(issue.ExpiresAt)); err != nil {
		return ChallengeIssue{}, err
	}
	return issue, nil
}

// Logout revoca la sesion indicada; es idempotente.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// LogoutAll revoca todas las sesiones vivas de la cuenta.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) error {
	return s.sessions.RevokeAll(ctx, accountID)
}

// ListSessions devuelve los resumenes de sesion de la cuenta.
func (s *AuthService) ListSessions(ctx context.Context, accountID string) ([]domain.SessionSummary, error) {
	return s.sessions.List(ctx, accountID)
}

// RevokeSession revoca una sesion verificando antes que pertenezca a la
// cuenta que lo pide.
func (s *AuthService) RevokeSession(ctx context.Context, accountID, sessionID string) error {
	revoked, err := s.sessions.RevokeOwned(ctx, accountID, sessionID)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrSessionNotFound
	}
	return nil
}

// ValidateSession delega en el gestor de sesiones.
func (s *AuthService) ValidateSession(ctx context.Context, plaintextToken string) (domain.Session, error) {
	return s.sessions.Validate(ctx, plaintextToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
