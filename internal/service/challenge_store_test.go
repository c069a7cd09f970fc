package service

import (
	"testing"
	"time"
)

func TestMemoryChallengeStorePeekAndConsume(t *testing.T) {
	store := NewMemoryChallengeStore()

	if err := store.Store("ref-hash", "acct-1", time.Minute); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Peek no consume.
	for i := 0; i < 2; i++ {
		accountID, ok, err := store.Peek("ref-hash")
		if err != nil {
			t.Fatalf("Peek: %v", err)
		}
		if !ok || accountID != "acct-1" {
			t.Fatalf("Peek = (%q, %v)", accountID, ok)
		}
	}

	accountID, ok, err := store.Consume("ref-hash")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !ok || accountID != "acct-1" {
		t.Fatalf("Consume = (%q, %v)", accountID, ok)
	}

	// Consumido es consumido.
	if _, ok, _ := store.Consume("ref-hash"); ok {
		t.Fatal("second Consume succeeded")
	}
	if _, ok, _ := store.Peek("ref-hash"); ok {
		t.Fatal("Peek after Consume succeeded")
	}
}

func TestMemoryChallengeStoreExpiry(t *testing.T) {
	store := NewMemoryChallengeStore()

	store.Store("ref-hash", "acct-1", -time.Second)
	if _, ok, _ := store.Peek("ref-hash"); ok {
		t.Fatal("expired entry peeked")
	}

	store.Store("ref-hash-2", "acct-1", -time.Second)
	if _, ok, _ := store.Consume("ref-hash-2"); ok {
		t.Fatal("expired entry consumed")
	}
}

func TestMemoryChallengeStoreOverwrite(t *testing.T) {
	store := NewMemoryChallengeStore()

	store.Store("ref-hash", "acct-1", time.Minute)
	store.Store("ref-hash", "acct-2", time.Minute)

	accountID, ok, _ := store.Peek("ref-hash")
	if !ok || accountID != "acct-2" {
		t.Fatalf("Peek = (%q, %v), want acct-2", accountID, ok)
	}
}
