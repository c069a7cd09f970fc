package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produce y verifica hashes de contraseña con bcrypt.
// Si hay pepper configurado se mezcla como pre-hash HMAC-SHA256; rotar el
// pepper invalida todos los hashes almacenados.
type PasswordHasher struct {
	pepper []byte
}

func NewPasswordHasher(pepper string) *PasswordHasher {
	h := &PasswordHasher{}
	if pepper != "" {
		h.pepper = []byte(pepper)
	}
	return h
}

func (h *PasswordHasher) Hash(secret string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword(h.prehash(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Verify devuelve false ante cualquier entrada malformada, nunca un error.
// bcrypt compara en tiempo constante respecto al secreto candidato.
func (h *PasswordHasher) Verify(secret, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), h.prehash(secret)) == nil
}

// prehash mantiene la entrada de bcrypt bajo su limite de 72 bytes cuando
// hay pepper: HMAC-SHA256 en base64 son siempre 43 caracteres.
func (h *PasswordHasher) prehash(secret string) []byte {
	if len(h.pepper) == 0 {
		return []byte(secret)
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(secret))
	return []byte(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}
