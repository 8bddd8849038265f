// Package wallet derives per-ledger signing keys from a single master
// seed, following original_source/cnd/src/seed.rs's Seed/SwapSeed design:
// one securely generated or file-loaded 32-byte master seed, hashed down
// per swap rather than storing a key per swap. The Bitcoin and Ethereum
// keys are both taken directly from the seed's bytes.
package wallet

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const seedLength = 32

const pemType = "SEED"

// Seed is the node's master key material. It is never logged or printed;
// callers only ever see its derivatives.
type Seed [seedLength]byte

// String redacts the seed, mirroring Seed's hidden Display/Debug impls
// in original_source/cnd/src/seed.rs.
func (s Seed) String() string { return "Seed([*****])" }

// NewRandomSeed generates a new seed from a cryptographically secure
// random source.
func NewRandomSeed() (Seed, error) {
	var s Seed
	if _, err := rand.Read(s[:]); err != nil {
		return Seed{}, fmt.Errorf("wallet: generate seed: %w", err)
	}
	return s, nil
}

// SwapSeed derives a swap-scoped sub-seed, the way
// original_source/cnd/src/seed.rs's Seed::swap_seed folds a swap ID into
// the master seed via SHA-256 rather than minting an independent key.
func (s Seed) SwapSeed(id uuid.UUID) Seed {
	return s.sha256WithSeed([]byte("SWAP"), id[:])
}

// sha256WithSeed hashes the master seed together with the given
// context-tagging slices, mirroring Seed::sha256_with_seed.
func (s Seed) sha256WithSeed(slices ...[]byte) Seed {
	h := sha256.New()
	h.Write(s[:])
	for _, slice := range slices {
		h.Write(slice)
	}
	var out Seed
	copy(out[:], h.Sum(nil))
	return out
}

// LoadOrGenerate reads a PEM-encoded seed from path if it exists;
// otherwise it generates a new random seed and writes it there.
func LoadOrGenerate(path string) (Seed, error) {
	if _, err := os.Stat(path); err == nil {
		return loadFromFile(path)
	}

	s, err := NewRandomSeed()
	if err != nil {
		return Seed{}, err
	}
	if err := s.writeTo(path); err != nil {
		return Seed{}, err
	}
	return s, nil
}

func loadFromFile(path string) (Seed, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("wallet: read seed file: %w", err)
	}

	block, _ := pem.Decode(contents)
	if block == nil {
		return Seed{}, fmt.Errorf("wallet: seed file is not valid PEM")
	}
	if len(block.Bytes) != seedLength {
		return Seed{}, fmt.Errorf("wallet: expected %d bytes of seed, got %d",
			seedLength, len(block.Bytes))
	}

	var s Seed
	copy(s[:], block.Bytes)
	return s, nil
}

func (s Seed) writeTo(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("wallet: create seed directory: %w", err)
		}
	}

	block := &pem.Block{Type: pemType, Bytes: s[:]}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("wallet: create seed file: %w", err)
	}
	defer f.Close()

	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("wallet: write seed file: %w", err)
	}
	return nil
}
