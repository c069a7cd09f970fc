package service

import (
	"context"
	"time"

	"recruitflow/internal/domain"
	"recruitflow/internal/repository"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 15 * time.Minute
)

// LockoutPolicy lleva la cuenta de intentos fallidos por cuenta y decide
// cuando bloquear. El incremento es una sentencia condicional en el
// repositorio; dos intentos fallidos concurrentes nunca pierden una cuenta.
type LockoutPolicy struct {
	accounts  repository.AccountRepository
	threshold int
	duration  time.Duration
}

func NewLockoutPolicy(accounts repository.AccountRepository, threshold int, duration time.Duration) *LockoutPolicy {
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}
	if duration <= 0 {
		duration = defaultLockoutDuration
	}
	return &LockoutPolicy{
		accounts:  accounts,
		threshold: threshold,
		duration:  duration,
	}
}

// IsLocked es una funcion pura del estado guardado y de now; la expiracion
// del bloqueo es perezosa, no hay barrido de fondo.
func (p *LockoutPolicy) IsLocked(account domain.Account, now time.Time) bool {
	return account.LockedUntil != nil && now.Before(*account.LockedUntil)
}

// RecordFailure incrementa el contador y aplica el bloqueo al cruzar el
// umbral. Un bloqueo vigente no se extiende por fallos adicionales.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, accountID string) (int, *time.Time, error) {
	attempts, lockedUntil, err := p.accounts.IncrementFailedAttempts(ctx, accountID)
	if err != nil {
		return 0, nil, err
	}

	now := time.Now().UTC()
	if attempts >= p.threshold && (lockedUntil == nil || lockedUntil.Before(now)) {
		until := now.Add(p.duration)
		if err := p.accounts.ApplyLock(ctx, accountID, until, now); err != nil {
			return attempts, lockedUntil, err
		}
		return attempts, &until, nil
	}
	return attempts, lockedUntil, nil
}

// RecordSuccess reinicia el contador, limpia el bloqueo y registra el
// ultimo acceso exitoso.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, accountID string) error {
	return p.accounts.RecordSuccess(ctx, accountID, time.Now().UTC())
}
