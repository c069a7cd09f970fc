package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"recruitflow/internal/domain"
)

// SessionRepository define el contrato de persistencia para sesiones.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error

	// GetByTokenHash busca por coincidencia exacta del hash del token; la
	// columna lleva un indice unico, nunca se recorre la tabla.
	GetByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)

	Touch(ctx context.Context, id string, lastSeenAt time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error

	// RevokeOwned revoca la sesion solo si pertenece a la cuenta dada.
	// Devuelve false si no existe tal sesion para esa cuenta.
	RevokeOwned(ctx context.Context, accountID, id string, at time.Time) (bool, error)

	RevokeAll(ctx context.Context, accountID string, at time.Time) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PgSessionRepository implementa SessionRepository usando pgxpool.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

const sessionColumns = `
	id, account_id, token_hash, ip_address, user_agent,
	created_at, last_seen_at, expires_at, revoked_at
`

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (
			id, account_id, token_hash, ip_address, user_agent,
			created_at, last_seen_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.AccountID,
		session.TokenHash,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.LastSeenAt,
		session.ExpiresAt,
	)
	return err
}

func (r *PgSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1`
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&s.ID,
		&s.AccountID,
		&s.TokenHash,
		&s.IPAddress,
		&s.UserAgent,
		&s.CreatedAt,
		&s.LastSeenAt,
		&s.ExpiresAt,
		&s.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, err
	}
	return s, err
}

func (r *PgSessionRepository) Touch(ctx context.Context, id string, lastSeenAt time.Time) error {
	const query = `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, lastSeenAt)
	return err
}

func (r *PgSessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE sessions SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgSessionRepository) RevokeOwned(ctx context.Context, accountID, id string, at time.Time) (bool, error) {
	const query = `
		UPDATE sessions SET revoked_at = COALESCE(revoked_at, $3)
		WHERE id = $1 AND account_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, accountID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgSessionRepository) RevokeAll(ctx context.Context, accountID string, at time.Time) error {
	const query = `
		UPDATE sessions SET revoked_at = $2
		WHERE account_id = $1 AND revoked_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, accountID, at)
	return err
}

func (r *PgSessionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE account_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.AccountID,
			&s.TokenHash,
			&s.IPAddress,
			&s.UserAgent,
			&s.CreatedAt,
			&s.LastSeenAt,
			&s.ExpiresAt,
			&s.RevokedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
