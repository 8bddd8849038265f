// Package secret implements the secret registry (C3): generation and
// hashing of 32-byte HTLC secrets, and extraction of a revealed secret from
// the on-chain witness of a counterparty's redeem transaction.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no candidate witness element or calldata
// hashes to the expected secret_hash. Per spec.md §4.3, this is surfaced by
// the coordinator as an internal error rather than retried.
var ErrNotFound = errors.New("secret: no witness element hashes to secret_hash")

// Generate creates a new cryptographically random 32-byte secret and
// returns it alongside its SHA-256 hash.
func Generate() (secret [32]byte, hash [32]byte, err error) {
	if _, err = rand.Read(secret[:]); err != nil {
		return [32]byte{}, [32]byte{}, fmt.Errorf("generate secret: %w", err)
	}
	hash = Hash(secret)
	return secret, hash, nil
}

// Hash returns the SHA-256 hash of a secret.
func Hash(secret [32]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// Verify reports whether secret hashes to hash.
func Verify(secret, hash [32]byte) bool {
	return Hash(secret) == hash
}

// ExtractFromWitnessElements scans a Bitcoin spending witness for the
// 32-byte element whose SHA-256 hash equals secretHash, per spec.md §4.2's
// redeem-matching rule. Non-32-byte elements are skipped; they cannot be
// the preimage regardless of their hash, since the script enforces a
// 32-byte secret via its EQUALVERIFY invariant.
func ExtractFromWitnessElements(elements [][]byte, secretHash [32]byte) ([32]byte, error) {
	for _, el := range elements {
		if len(el) != 32 {
			continue
		}
		var candidate [32]byte
		copy(candidate[:], el)
		if Hash(candidate) == secretHash {
			return candidate, nil
		}
	}
	return [32]byte{}, ErrNotFound
}

// ExtractFromCalldata treats the full calldata of an Ethereum redeem
// transaction as the candidate secret, per spec.md §4.2's Ethereum
// redeem-matching rule.
func ExtractFromCalldata(calldata []byte, secretHash [32]byte) ([32]byte, error) {
	if len(calldata) != 32 {
		return [32]byte{}, ErrNotFound
	}
	var candidate [32]byte
	copy(candidate[:], calldata)
	if Hash(candidate) != secretHash {
		return [32]byte{}, ErrNotFound
	}
	return candidate, nil
}

// Registry tracks the secret and secret_hash for every swap this node has
// a stake in, keyed by swap ID. Alice's side holds the secret from
// creation; Bob's side only learns it once ExtractFromWitnessElements or
// ExtractFromCalldata succeeds against an observed redeem.
type Registry struct {
	mu      sync.RWMutex
	hashes  map[uuid.UUID][32]byte
	secrets map[uuid.UUID][32]byte
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hashes:  make(map[uuid.UUID][32]byte),
		secrets: make(map[uuid.UUID][32]byte),
	}
}

// GenerateFor creates a new secret for swapID and records its hash. It is
// an error to call this twice for the same swap ID.
func (r *Registry) GenerateFor(swapID uuid.UUID) (hash [32]byte, err error) {
	secret, hash, err := Generate()
	if err != nil {
		return [32]byte{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hashes[swapID]; exists {
		return [32]byte{}, fmt.Errorf("secret: swap %s already has a registered hash", swapID)
	}
	r.hashes[swapID] = hash
	r.secrets[swapID] = secret
	return hash, nil
}

// RegisterHash records a secret_hash received from a counterparty, for a
// swap whose secret this node does not hold.
func (r *Registry) RegisterHash(swapID uuid.UUID, hash [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes[swapID] = hash
}

// Hash returns the registered secret_hash for swapID, if any.
func (r *Registry) Hash(swapID uuid.UUID) ([32]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hashes[swapID]
	return h, ok
}

// Secret returns the registered secret for swapID, if known.
func (r *Registry) Secret(swapID uuid.UUID) ([32]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.secrets[swapID]
	return s, ok
}

// RecordRevealed stores a secret extracted from an on-chain redeem,
// verifying it against the registered hash first.
func (r *Registry) RecordRevealed(swapID uuid.UUID, revealed [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash, ok := r.hashes[swapID]
	if !ok {
		return fmt.Errorf("secret: swap %s has no registered secret_hash", swapID)
	}
	if !Verify(revealed, hash) {
		return fmt.Errorf("secret: revealed preimage does not hash to swap %s's secret_hash", swapID)
	}
	r.secrets[swapID] = revealed
	return nil
}
