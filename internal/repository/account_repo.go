package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"recruitflow/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByDisplayName(ctx context.Context, displayName string) (domain.Account, error)
	GetByResetTokenHash(ctx context.Context, hash string) (domain.Account, error)

	// IncrementFailedAttempts suma 1 al contador de fallos en una sola
	// sentencia condicional y devuelve el contador resultante junto con el
	// bloqueo vigente. Nunca debe implementarse como read-then-write.
	IncrementFailedAttempts(ctx context.Context, id string) (int, *time.Time, error)

	// ApplyLock fija locked_until solo si no hay un bloqueo vigente, para
	// que intentos concurrentes no extiendan un bloqueo ya aplicado.
	ApplyLock(ctx context.Context, id string, until, now time.Time) error

	// RecordSuccess pone el contador en 0, limpia el bloqueo y registra el
	// instante del ultimo acceso exitoso.
	RecordSuccess(ctx context.Context, id string, at time.Time) error

	UpdateTwoFactorCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	ClearTwoFactorCode(ctx context.Context, id string) error
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error

	UpdateResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// CompleteReset reemplaza el hash de contraseña, limpia el ticket de
	// reset y el estado de bloqueo en una sola sentencia.
	CompleteReset(ctx context.Context, id, passwordHash string) error
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `
	id, email, display_name, password_hash, failed_attempts, locked_until,
	last_login_at, two_factor_enabled, two_factor_code_hash, two_factor_expires_at,
	reset_token_hash, reset_expires_at, created_at
`

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, display_name, password_hash, two_factor_enabled, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.TwoFactorEnabled,
		account.CreatedAt,
	)
	return err
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PgAccountRepository) GetByDisplayName(ctx context.Context, displayName string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE display_name = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, displayName))
}

func (r *PgAccountRepository) GetByResetTokenHash(ctx context.Context, hash string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE reset_token_hash = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, hash))
}

func (r *PgAccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, *time.Time, error) {
	const query = `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`
	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, err
	}
	return attempts, lockedUntil, nil
}

func (r *PgAccountRepository) ApplyLock(ctx context.Context, id string, until, now time.Time) error {
	const query = `
		UPDATE accounts
		SET locked_until = $2
		WHERE id = $1 AND (locked_until IS NULL OR locked_until < $3)
	`
	_, err := r.pool.Exec(ctx, query, id, until, now)
	return err
}

func (r *PgAccountRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, last_login_at = $2
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgAccountRepository) UpdateTwoFactorCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET two_factor_code_hash = $2, two_factor_expires_at = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, codeHash, expiresAt)
	return err
}

func (r *PgAccountRepository) ClearTwoFactorCode(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET two_factor_code_hash = '', two_factor_expires_at = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgAccountRepository) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	const query = `UPDATE accounts SET two_factor_enabled = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, enabled)
	return err
}

func (r *PgAccountRepository) UpdateResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET reset_token_hash = $2, reset_expires_at = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	return err
}

func (r *PgAccountRepository) CompleteReset(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE accounts
		SET password_hash = $2,
			reset_token_hash = '',
			reset_expires_at = NULL,
			failed_attempts = 0,
			locked_until = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, passwordHash)
	return err
}

func (r *PgAccountRepository) scanOne(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PasswordHash,
		&a.FailedAttempts,
		&a.LockedUntil,
		&a.LastLoginAt,
		&a.TwoFactorEnabled,
		&a.TwoFactorCodeHash,
		&a.TwoFactorExpiresAt,
		&a.ResetTokenHash,
		&a.ResetExpiresAt,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}
	return a, err
}
