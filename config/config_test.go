package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpiryPolicyValidate(t *testing.T) {
	ok := ExpiryPolicy{
		BitcoinFinality:  30 * time.Minute,
		EthereumFinality: 2 * time.Minute,
		SafetyMargin:     time.Hour,
	}
	require.NoError(t, ok.Validate())

	tooSmall := ExpiryPolicy{
		BitcoinFinality:  2 * time.Hour,
		EthereumFinality: 2 * time.Minute,
		SafetyMargin:     time.Hour,
	}
	require.Error(t, tooSmall.Validate())

	exactlyEqual := ExpiryPolicy{
		BitcoinFinality:  time.Hour,
		EthereumFinality: time.Minute,
		SafetyMargin:     time.Hour,
	}
	require.Error(t, exactlyEqual.Validate())
}

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Expiry.Validate())
}
