package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"recruitflow/internal/domain"
)

type authFixture struct {
	svc      *AuthService
	accounts *mockAccountRepo
	sessions *mockSessionRepo
	sender   *mockEmailSender
	sessSvc  *SessionService
	hasher   *PasswordHasher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	accounts := newMockAccountRepo()
	sessions := newMockSessionRepo()
	sender := &mockEmailSender{}
	logger := zap.NewNop()
	hasher := NewPasswordHasher("")
	lockout := NewLockoutPolicy(accounts, 5, 15*time.Minute)
	sessSvc := NewSessionService(logger, sessions, time.Hour)
	twoFactor := NewTwoFactorService(logger, accounts, sender, 10*time.Minute)
	svc := NewAuthService(logger, accounts, hasher, lockout, sessSvc, twoFactor, nil, NewResendLimiter(time.Minute, 2))
	return &authFixture{
		svc:      svc,
		accounts: accounts,
		sessions: sessions,
		sender:   sender,
		sessSvc:  sessSvc,
		hasher:   hasher,
	}
}

func (f *authFixture) addAccount(t *testing.T, email, password string, twoFactor bool) domain.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	account := domain.Account{
		ID:               "acct-" + email,
		Email:            email,
		DisplayName:      email,
		PasswordHash:     hash,
		TwoFactorEnabled: twoFactor,
		CreatedAt:        time.Now().UTC(),
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestLoginDirectWithoutTwoFactor(t *testing.T) {
	f := newAuthFixture(t)
	f.addAccount(t, "a1@example.com", "correct-horse", false)

	result, err := f.svc.Login(context.Background(), "a1@example.com", "correct-horse", domain.Origin{IPAddress: "192.0.2.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Status != LoginAuthenticated {
		t.Fatalf("status = %q, want authenticated", result.Status)
	}
	if result.Token == "" {
		t.Fatal("no session token returned")
	}
	if result.ChallengeRef != "" {
		t.Fatal("challenge issued without 2FA enabled")
	}

	// El token emitido valida de inmediato.
	if _, err := f.svc.ValidateSession(context.Background(), result.Token); err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
}

func TestLoginUnknownIdentifierRejected(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.svc.Login(context.Background(), "nobody@example.com", "whatever", domain.Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Status != LoginRejected {
		t.Fatalf("status = %q, want rejected", result.Status)
	}
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	f := newAuthFixture(t)
	account := f.addAccount(t, "a1@example.com", "correct-horse", false)

	result, err := f.svc.Login(context.Background(), account.Email, "wrong-horse", domain.Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Status != LoginRejected {
		t.Fatalf("status = %q, want rejected", result.Status)
	}

	stored, _ := f.accounts.GetByID(context.Background(), account.ID)
	if stored.FailedAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", stored.FailedAttempts)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	f := newAuthFixture(t)
	account := f.addAccount(t, "a1@example.com", "correct-horse", false)

	for i := 0; i < 5; i++ {
		result, err := f.svc.Login(context.Background(), account.Email, "wrong-horse", domain.Origin{})
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		if result.Status != LoginRejected {
			t.Fatalf("attempt %d status = %q", i, result.Status)
		}
	}

	// Con la cuenta bloqueada, ni la contraseña correcta entra.
	result, err := f.svc.Login(context.Background(), account.Email, "correct-horse", domain.Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Status != LoginLocked {
		t.Fatalf("status = %q, want locked", result.Status)
	}
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	f := newAuthFixture(t)
	account := f.addAccount(t, "a1@example.com", "correct-horse", false)

	for i := 0; i < 4; i++ {
		f.svc.Login(context.Background(), account.Email, "wrong-horse", domain.Origin{})
	}
	result, _ := f.svc.Login(context.Background(), account.Email, "correct-horse", domain.Origin{})
	if result.Status != LoginAuthenticated {
		t.Fatalf("status = %q, want authenticated", result.Status)
	}

	// Un fallo posterior arranca de cero, no re-dispara el bloqueo.
	result, _ = f.svc.Login(context.Background(), account.Email, "wrong-horse", domain.Origin{})
	if result.Status != LoginRejected {
		t.Fatalf("status = %q, want rejected", result.Status)
	}
	stored, _ := f.accounts.GetByID(context.Background(), account.ID)
	if stored.FailedAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", stored.FailedAttempts)
	}
}

func TestLoginWithTwoFactorFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.addAccount(t, "a2@example.com", "correct-horse", true)

	result, err := f.svc.Login(context.Background(), "a2@example.com", "correct-horse", domain.Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Status != LoginChallengeRequired {
		t.Fatalf("status = %q, want challenge_required", result.Status)
	}
	if result.Token != "" {
		t.Fatal("session minted before the challenge")
	}
	if result.ChallengeRef == "" {
		t.Fatal("no challenge ref")
	}
	if result.MaskedEmail != "a***@example.com" {
		t.Fatalf("masked = %q", result.MaskedEmail)
	}

	// Tres codigos errados no queman el desafio.
	for i := 0; i < 3; i++ {
		wrong := "000000"
		if wrong == f.sender.lastCode {
			wrong = "000001"
		}
		verify, err := f.svc.VerifyTwoFactor(context.Background(), result.ChallengeRef, wrong, domain.Origin{})
		if err != nil {
			t.Fatalf("VerifyTwoFactor: %v", err)
		}
		if verify.Status != LoginRejected {
			t.Fatalf("wrong code status = %q", verify.Status)
		}
	}

	verify, err := f.svc.VerifyTwoFactor(context.Background(), result.ChallengeRef, f.sender.lastCode, domain.Origin{})
	if err != nil {
		t.Fatalf("VerifyTwoFactor: %v", err)
	}
	if verify.Status != LoginAuthenticated {
		t.Fatalf("status = %q, want authenticated", verify.Status)
	}
	if _, err := f.svc.ValidateSession(context.Background(), verify.Token); err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
}

func TestVerifyTwoFactorSingleUseCode(t *testing.T) {
	f := newAuthFixture(t)
	f.addAccount(t, "a2@example.com", "correct-horse", true)

	result, _ := f.svc.Login(context.Background(), "a2@example.com", "correct-horse", domain.Origin{})
	code := f.sender.lastCode

	first, _ := f.svc.VerifyTwoFactor(context.Background(), result.ChallengeRef, code, domain.Origin{})
	if first.Status != LoginAuthenticated {
		t.Fatalf("first verify status = %q", first.Status)
	}
	second, _ := f.svc.VerifyTwoFactor(context.Background(), result.ChallengeRef, code, domain.Origin{})
	if second.Status != LoginRejected {
		t.Fatalf("second verify status = %q, want rejected", second.Status)
	}
}

func TestVerifyTwoFactorUnknownRef(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.svc.VerifyTwoFactor(context.Background(), "made-up-ref", "123456", domain.Origin{})
	if err != nil {
		t.Fatalf("VerifyTwoFactor: %v", err)
	}
	if result.Status != LoginRejected {
		t.Fatalf("status = %q, want rejected", result.Status)
	}
}

func TestResendTwoFactor(t *testing.T) {
	f := newAuthFixture(t)
	f.addAccount(t, "a2@example.com", "correct-horse", true)

	result, _ := f.svc.Login(context.Background(), "a2@example.com", "correct-horse", domain.Origin{})

	issue, err := f.svc.ResendTwoFactor(context.Background(), result.ChallengeRef)
	if err != nil {
		t.Fatalf("ResendTwoFactor: %v", err)
	}
	if issue.MaskedEmail != "a***@example.com" {
		t.Fatalf("masked = %q", issue.MaskedEmail)
	}

	// El codigo reenviado es el vigente.
	verify, _ := f.svc.VerifyTwoFactor(context.Background(), result.ChallengeRef, f.sender.lastCode, domain.Origin{})
	if verify.Status != LoginAuthenticated {
		t.Fatalf("status = %q after resend", verify.Status)
	}
}

func TestResendTwoFactorRateLimited(t *testing.T) {
	f := newAuthFixture(t)
	f.addAccount(t, "a2@example.com", "correct-horse", true)

	result, _ := f.svc.Login(context.Background(), "a2@example.com", "correct-horse", domain.Origin{})

	// El limitador del fixture admite 2 reenvios por minuto.
	if _, err := f.svc.ResendTwoFactor(context.Background(), result.ChallengeRef); err != nil {
		t.Fatalf("resend 1: %v", err)
	}
	if _, err := f.svc.ResendTwoFactor(context.Background(), result.ChallengeRef); err != nil {
		t.Fatalf("resend 2: %v", err)
	}
	if _, err := f.svc.ResendTwoFactor(context.Background(), result.ChallengeRef); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("resend 3 err = %v, want ErrRateLimited", err)
	}
}

func TestResendTwoFactorUnknownRef(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.ResendTwoFactor(context.Background(), "made-up-ref"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("err = %v, want ErrChallengeNotFound", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	f := newAuthFixture(t)
	f.addAccount(t, "a1@example.com", "correct-horse", false)

	result, _ := f.svc.Login(context.Background(), "a1@example.com", "correct-horse", domain.Origin{})

	if err := f.svc.Logout(context.Background(), result.Session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.svc.ValidateSession(context.Background(), result.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("err = %v, want ErrSessionInvalid", err)
	}

	// Logout repetido no falla.
	if err := f.svc.Logout(context.Background(), result.Session.ID); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestLogoutAllInvalidatesEverySession(t *testing.T) {
	f := newAuthFixture(t)
	account := f.addAccount(t, "a1@example.com", "correct-horse", false)

	first, _ := f.svc.Login(context.Background(), account.Email, "correct-horse", domain.Origin{})
	second, _ := f.svc.Login(context.Background(), account.Email, "correct-horse", domain.Origin{})

	if err := f.svc.LogoutAll(context.Background(), account.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	for _, token := range []string{first.Token, second.Token} {
		if _, err := f.svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("session survived LogoutAll: %v", err)
		}
	}
}

func TestRevokeSessionChecksOwnership(t *testing.T) {
	f := newAuthFixture(t)
	owner := f.addAccount(t, "owner@example.com", "correct-horse", false)
	other := f.addAccount(t, "other@example.com", "correct-horse", false)

	result, _ := f.svc.Login(context.Background(), owner.Email, "correct-horse", domain.Origin{})

	if err := f.svc.RevokeSession(context.Background(), other.ID, result.Session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign revoke err = %v, want ErrSessionNotFound", err)
	}
	if err := f.svc.RevokeSession(context.Background(), owner.ID, result.Session.ID); err != nil {
		t.Fatalf("owner revoke: %v", err)
	}
}
