package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChallengeStore liga una referencia de desafio 2FA (por su hash) con la
// cuenta que lo origino, con vencimiento. Consume la quita: la referencia
// sirve para una sola autenticacion.
type ChallengeStore interface {
	Store(refHash, accountID string, ttl time.Duration) error
	Peek(refHash string) (string, bool, error)
	Consume(refHash string) (string, bool, error)
}

type challengeEntry struct {
	accountID string
	expiresAt time.Time
}

type memoryChallengeStore struct {
	mu    sync.Mutex
	items map[string]challengeEntry
}

func NewMemoryChallengeStore() ChallengeStore {
	return &memoryChallengeStore{
		items: make(map[string]challengeEntry),
	}
}

func (s *memoryChallengeStore) Store(refHash, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(refHash) == "" {
		return nil
	}
	s.items[refHash] = challengeEntry{
		accountID: accountID,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *memoryChallengeStore) Peek(refHash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[refHash]
	if !ok {
		return "", false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, refHash)
		return "", false, nil
	}
	return entry.accountID, true, nil
}

func (s *memoryChallengeStore) Consume(refHash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[refHash]
	if !ok {
		return "", false, nil
	}
	delete(s.items, refHash)
	if time.Now().UTC().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.accountID, true, nil
}

type redisChallengeStore struct {
	client *redis.Client
	prefix string
}

func NewRedisChallengeStore(client *redis.Client) ChallengeStore {
	if client == nil {
		return nil
	}
	return &redisChallengeStore{
		client: client,
		prefix: "auth:2fa:",
	}
}

func (s *redisChallengeStore) Store(refHash, accountID string, ttl time.Duration) error {
	if strings.TrimSpace(refHash) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+refHash, accountID, ttl).Err()
}

func (s *redisChallengeStore) Peek(refHash string) (string, bool, error) {
	if strings.TrimSpace(refHash) == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	accountID, err := s.client.Get(ctx, s.prefix+refHash).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, true, nil
}

func (s *redisChallengeStore) Consume(refHash string) (string, bool, error) {
	if strings.TrimSpace(refHash) == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	accountID, err := s.client.GetDel(ctx, s.prefix+refHash).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, true, nil
}
