package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"recruitflow/internal/domain"
	"recruitflow/internal/email"
	"recruitflow/internal/repository"
)

const (
	twoFactorCodeDigits = 6

	defaultTwoFactorTTL = 10 * time.Minute
)

// TwoFactorService emite y verifica codigos numericos de corta vida.
// Emitir un codigo nuevo pisa el anterior: nunca hay mas de un codigo
// pendiente por cuenta.
type TwoFactorService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	sender   email.Sender
	ttl      time.Duration
}

// ChallengeIssue es el resultado de emitir un codigo. Delivered en false
// significa que el mensaje pudo no llegar; la emision en si ya quedo
// registrada y el codigo sigue siendo valido.
type ChallengeIssue struct {
	MaskedEmail string
	ExpiresAt   time.Time
	Delivered   bool
}

func NewTwoFactorService(logger *zap.Logger, accounts repository.AccountRepository, sender email.Sender, ttl time.Duration) *TwoFactorService {
	if ttl <= 0 {
		ttl = defaultTwoFactorTTL
	}
	return &TwoFactorService{
		logger:   logger,
		accounts: accounts,
		sender:   sender,
		ttl:      ttl,
	}
}

// Issue genera el codigo, lo guarda hasheado y lo entrega por el canal de
// mensajes. El fallo de entrega no es fatal: se registra y la operacion
// termina bien, el codigo guardado funciona si llega por otro canal.
func (s *TwoFactorService) Issue(ctx context.Context, account domain.Account) (ChallengeIssue, error) {
	code, err := RandomNumericCode(twoFactorCodeDigits)
	if err != nil {
		return ChallengeIssue{}, err
	}
	codeHash, err := hashCodeWithSalt(code)
	if err != nil {
		return ChallengeIssue{}, err
	}

	expiresAt := time.Now().UTC().Add(s.ttl)
	if err := s.accounts.UpdateTwoFactorCode(ctx, account.ID, codeHash, expiresAt); err != nil {
		return ChallengeIssue{}, err
	}

	issue := ChallengeIssue{
		MaskedEmail: MaskEmail(account.Email),
		ExpiresAt:   expiresAt,
		Delivered:   true,
	}
	if s.sender == nil {
		issue.Delivered = false
		return issue, nil
	}
	if err := s.sender.SendTwoFactorCode(ctx, account.Email, code, expiresAt); err != nil {
		if s.logger != nil {
			s.logger.Warn("two-factor code delivery failed", zap.Error(err), zap.String("account_id", account.ID))
		}
		issue.Delivered = false
	}
	return issue, nil
}

// Verify acepta el codigo solo si existe uno pendiente, no vencio y
// coincide en comparacion de tiempo constante. El codigo se limpia al
// primer acierto; los intentos fallidos no lo consumen.
func (s *TwoFactorService) Verify(ctx context.Context, account domain.Account, presentedCode string) error {
	presentedCode = strings.TrimSpace(presentedCode)
	if !isNumericCode(presentedCode, twoFactorCodeDigits) {
		return ErrChallengeInvalid
	}
	if account.TwoFactorCodeHash == "" || account.TwoFactorExpiresAt == nil {
		return ErrChallengeInvalid
	}
	if time.Now().UTC().After(*account.TwoFactorExpiresAt) {
		return ErrChallengeInvalid
	}
	if !verifyCodeHash(presentedCode, account.TwoFactorCodeHash) {
		return ErrChallengeInvalid
	}

	if err := s.accounts.ClearTwoFactorCode(ctx, account.ID); err != nil {
		return err
	}
	return nil
}

// MaskEmail redacta una direccion para mostrar a que buzon se envio un
// codigo sin revelarla completa: dos caracteres del local mas el dominio.
func MaskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	local := addr[:at]
	domain := addr[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:2] + "***" + domain
}
