package rtc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("app-1", "super-secret", 30*time.Second)
	issued := time.Date(2026, 8, 31, 19, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	cred, err := issuer.Issue("trial_creator-9_abc123", 42, 180*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "trial_creator-9_abc123", cred.Channel)
	assert.Equal(t, uint32(42), cred.UID)
	assert.Equal(t, 180, cred.MaxDurationSeconds)
	assert.Equal(t, issued.Add(180*time.Second+30*time.Second), cred.ExpiresAt)

	claims, err := issuer.Parse(cred.Credential)
	require.NoError(t, err)
	assert.Equal(t, "trial_creator-9_abc123", claims.Channel)
	assert.Equal(t, uint32(42), claims.UID)
	assert.Equal(t, 180, claims.MaxSeconds)
	assert.Equal(t, "app-1", claims.Issuer)
	assert.True(t, claims.ExpiresAt.Time.Equal(cred.ExpiresAt))
}

func TestIssueRequiresChannel(t *testing.T) {
	issuer := NewIssuer("app-1", "super-secret", 0)
	_, err := issuer.Issue("", 42, 180*time.Second)
	require.Error(t, err)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	issuer := NewIssuer("app-1", "super-secret", 0)
	cred, err := issuer.Issue("channel", 7, time.Minute)
	require.NoError(t, err)

	other := NewIssuer("app-1", "different-secret", 0)
	_, err = other.Parse(cred.Credential)
	require.Error(t, err)
}

func TestZeroGraceFallsBackToDefault(t *testing.T) {
	issuer := NewIssuer("app-1", "super-secret", 0)
	assert.Equal(t, DefaultGrace, issuer.grace)
}
