package secret

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateHashRoundTrip(t *testing.T) {
	s, h, err := Generate()
	require.NoError(t, err)
	require.Equal(t, Hash(s), h)
	require.True(t, Verify(s, h))

	var other [32]byte
	copy(other[:], "some-other-32-byte-value-here!!")
	require.False(t, Verify(other, h))
}

func TestExtractFromWitnessElements(t *testing.T) {
	secret, hash, err := Generate()
	require.NoError(t, err)

	sig := []byte("a-signature-that-is-not-32-byte")
	pubkey := make([]byte, 33)
	one := []byte{1}

	t.Run("finds the matching element", func(t *testing.T) {
		elements := [][]byte{sig, pubkey, secret[:], one}
		got, err := ExtractFromWitnessElements(elements, hash)
		require.NoError(t, err)
		require.Equal(t, secret, got)
	})

	t.Run("ignores wrong-length elements that happen to hash close", func(t *testing.T) {
		elements := [][]byte{sig, pubkey, one}
		_, err := ExtractFromWitnessElements(elements, hash)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("fails when no element matches", func(t *testing.T) {
		var unrelated [32]byte
		copy(unrelated[:], "completely-unrelated-value-here")
		elements := [][]byte{sig, pubkey, unrelated[:], one}
		_, err := ExtractFromWitnessElements(elements, hash)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestExtractFromCalldata(t *testing.T) {
	secret, hash, err := Generate()
	require.NoError(t, err)

	got, err := ExtractFromCalldata(secret[:], hash)
	require.NoError(t, err)
	require.Equal(t, secret, got)

	_, err = ExtractFromCalldata([]byte{}, hash)
	require.ErrorIs(t, err, ErrNotFound)

	var wrong [32]byte
	copy(wrong[:], "totally-the-wrong-secret-value!")
	_, err = ExtractFromCalldata(wrong[:], hash)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()
	swapID := uuid.New()

	hash, err := reg.GenerateFor(swapID)
	require.NoError(t, err)

	gotHash, ok := reg.Hash(swapID)
	require.True(t, ok)
	require.Equal(t, hash, gotHash)

	gotSecret, ok := reg.Secret(swapID)
	require.True(t, ok)
	require.True(t, Verify(gotSecret, hash))

	_, err = reg.GenerateFor(swapID)
	require.Error(t, err)
}

func TestRegistryRecordRevealed(t *testing.T) {
	reg := NewRegistry()
	swapID := uuid.New()

	secret, hash, err := Generate()
	require.NoError(t, err)
	reg.RegisterHash(swapID, hash)

	require.NoError(t, reg.RecordRevealed(swapID, secret))

	gotSecret, ok := reg.Secret(swapID)
	require.True(t, ok)
	require.Equal(t, secret, gotSecret)

	var wrongSecret [32]byte
	copy(wrongSecret[:], "definitely-the-wrong-one-here!!")
	err = reg.RecordRevealed(swapID, wrongSecret)
	require.Error(t, err)
}

func TestRegistryRecordRevealedWithoutHash(t *testing.T) {
	reg := NewRegistry()
	var secret [32]byte
	err := reg.RecordRevealed(uuid.New(), secret)
	require.Error(t, err)
}
