package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"recruitflow/internal/domain"
)

type mockAccountRepo struct {
	mu           sync.Mutex
	accountsByID map[string]domain.Account
	idsByEmail   map[string]string
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accountsByID: make(map[string]domain.Account),
		idsByEmail:   make(map[string]string),
	}
}

func (m *mockAccountRepo) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountsByID[account.ID] = account
	if account.Email != "" {
		m.idsByEmail[account.Email] = account.ID
	}
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return account, nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	m.mu.Lock()
	id, ok := m.idsByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockAccountRepo) GetByDisplayName(_ context.Context, displayName string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if displayName == "" {
		return domain.Account{}, pgx.ErrNoRows
	}
	for _, account := range m.accountsByID {
		if account.DisplayName == displayName {
			return account, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}

func (m *mockAccountRepo) GetByResetTokenHash(_ context.Context, hash string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hash == "" {
		return domain.Account{}, pgx.ErrNoRows
	}
	for _, account := range m.accountsByID {
		if account.ResetTokenHash == hash {
			return account, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}

func (m *mockAccountRepo) IncrementFailedAttempts(_ context.Context, id string) (int, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return 0, nil, pgx.ErrNoRows
	}
	account.FailedAttempts++
	m.accountsByID[id] = account
	return account.FailedAttempts, account.LockedUntil, nil
}

func (m *mockAccountRepo) ApplyLock(_ context.Context, id string, until, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if account.LockedUntil == nil || account.LockedUntil.Before(now) {
		account.LockedUntil = &until
		m.accountsByID[id] = account
	}
	return nil
}

func (m *mockAccountRepo) RecordSuccess(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &at
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) UpdateTwoFactorCode(_ context.Context, id, codeHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.TwoFactorCodeHash = codeHash
	account.TwoFactorExpiresAt = &expiresAt
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) ClearTwoFactorCode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.TwoFactorCodeHash = ""
	account.TwoFactorExpiresAt = nil
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.TwoFactorEnabled = enabled
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) UpdateResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.ResetTokenHash = tokenHash
	account.ResetExpiresAt = &expiresAt
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) CompleteReset(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = passwordHash
	account.ResetTokenHash = ""
	account.ResetExpiresAt = nil
	account.FailedAttempts = 0
	account.LockedUntil = nil
	m.accountsByID[id] = account
	return nil
}

type mockSessionRepo struct {
	mu           sync.Mutex
	sessionsByID map[string]domain.Session
	idsByHash    map[string]string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessionsByID: make(map[string]domain.Session),
		idsByHash:    make(map[string]string),
	}
}

func (m *mockSessionRepo) Create(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsByID[session.ID] = session
	m.idsByHash[session.TokenHash] = session.ID
	return nil
}

func (m *mockSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.idsByHash[tokenHash]
	if !ok {
		return domain.Session{}, pgx.ErrNoRows
	}
	return m.sessionsByID[id], nil
}

func (m *mockSessionRepo) Touch(_ context.Context, id string, lastSeenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessionsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	session.LastSeenAt = lastSeenAt
	m.sessionsByID[id] = session
	return nil
}

func (m *mockSessionRepo) Revoke(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessionsByID[id]
	if !ok {
		return nil
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &at
		m.sessionsByID[id] = session
	}
	return nil
}

func (m *mockSessionRepo) RevokeOwned(_ context.Context, accountID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessionsByID[id]
	if !ok || session.AccountID != accountID {
		return false, nil
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &at
		m.sessionsByID[id] = session
	}
	return true, nil
}

func (m *mockSessionRepo) RevokeAll(_ context.Context, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessionsByID {
		if session.AccountID == accountID && session.RevokedAt == nil {
			revokedAt := at
			session.RevokedAt = &revokedAt
			m.sessionsByID[id] = session
		}
	}
	return nil
}

func (m *mockSessionRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sessions []domain.Session
	for _, session := range m.sessionsByID {
		if session.AccountID == accountID {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, session := range m.sessionsByID {
		if session.ExpiresAt.Before(now) {
			delete(m.sessionsByID, id)
			delete(m.idsByHash, session.TokenHash)
			count++
		}
	}
	return count, nil
}

type mockEmailSender struct {
	mu        sync.Mutex
	lastTo    string
	lastCode  string
	lastURL   string
	sendCount int
	err       error
	delay     time.Duration
}

func (m *mockEmailSender) SendTwoFactorCode(_ context.Context, toEmail string, code string, _ time.Time) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCount++
	if m.err != nil {
		return m.err
	}
	m.lastTo = toEmail
	m.lastCode = code
	return nil
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, toEmail string, resetURL string, _ time.Time) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCount++
	if m.err != nil {
		return m.err
	}
	m.lastTo = toEmail
	m.lastURL = resetURL
	return nil
}

func (m *mockEmailSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCount
}

func (m *mockEmailSender) sentTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTo
}

func (m *mockEmailSender) sentURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastURL
}

// waitSends espera a que el remitente registre al menos want envios; la
// entrega del correo de reset corre fuera del request.
func (m *mockEmailSender) waitSends(t *testing.T, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.sentCount() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("sends = %d, want at least %d", m.sentCount(), want)
}
