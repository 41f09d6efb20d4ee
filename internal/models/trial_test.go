package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintTruncated(t *testing.T) {
	fp := DeviceFingerprint{
		DeviceID:  strings.Repeat("d", 200),
		UserAgent: strings.Repeat("u", 500),
		Screen:    "390x844",
		Timezone:  "Asia/Shanghai",
		Locale:    "zh-CN",
	}

	got := fp.Truncated()
	assert.Len(t, got.DeviceID, MaxDeviceIDLen)
	assert.Len(t, got.UserAgent, MaxUserAgentLen)
	assert.Equal(t, "390x844", got.Screen)
	assert.Equal(t, "Asia/Shanghai", got.Timezone)
	assert.Equal(t, "zh-CN", got.Locale)
}

func TestFingerprintTruncatedKeepsRunesIntact(t *testing.T) {
	// The cap falls mid-rune; the whole rune must go, never a partial
	// byte sequence.
	fp := DeviceFingerprint{
		UserAgent: strings.Repeat("a", MaxUserAgentLen-1) + "中文",
		Locale:    strings.Repeat("中", MaxLocaleLen),
	}

	got := fp.Truncated()
	assert.True(t, utf8.ValidString(got.UserAgent))
	assert.True(t, utf8.ValidString(got.Locale))
	assert.Equal(t, strings.Repeat("a", MaxUserAgentLen-1), got.UserAgent)
	assert.LessOrEqual(t, len(got.Locale), MaxLocaleLen)

	// Short values are untouched.
	assert.Equal(t, "中文", DeviceFingerprint{Locale: "中文"}.Truncated().Locale)
}

func TestDeviceKindValid(t *testing.T) {
	assert.True(t, DeviceKindAI.Valid())
	assert.True(t, DeviceKindCall.Valid())
	assert.False(t, DeviceKind("video").Valid())
	assert.False(t, DeviceKind("").Valid())
}

func TestHappyHourContains(t *testing.T) {
	window := HappyHour{StartMin: 1080, EndMin: 1260}

	assert.False(t, window.Contains(1079))
	assert.True(t, window.Contains(1080), "window bounds are inclusive")
	assert.True(t, window.Contains(1260), "window bounds are inclusive")
	assert.False(t, window.Contains(1261))
}

func TestInHappyHour(t *testing.T) {
	policy := TrialPolicy{
		RequireHappyHour: true,
		HappyHours: []HappyHour{
			{StartMin: 540, EndMin: 600},
			{StartMin: 1080, EndMin: 1260},
		},
	}

	assert.True(t, policy.InHappyHour(550))
	assert.True(t, policy.InHappyHour(1100))
	assert.False(t, policy.InHappyHour(700))

	// Gate disabled or no windows configured: always open.
	assert.True(t, TrialPolicy{RequireHappyHour: false, HappyHours: policy.HappyHours}.InHappyHour(700))
	assert.True(t, TrialPolicy{RequireHappyHour: true}.InHappyHour(700))
}
