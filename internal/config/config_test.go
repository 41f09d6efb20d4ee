package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vibelive/backend/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.TrialEnabled)
	assert.Equal(t, 10, cfg.ChatMessagesPerDay)
	assert.Equal(t, 1, cfg.CallsPerDay)
	assert.Equal(t, 180, cfg.CallSeconds)
	assert.Equal(t, 20, cfg.ReactionLimit)
	assert.Equal(t, 0.3, cfg.MinCaptchaScore)
	assert.Equal(t, 0.5, cfg.RiskNeutralScore)
	assert.Equal(t, 0.3, cfg.RiskDegradedScore)
	assert.Equal(t, 2, cfg.DeviceAIPerDay)
	assert.Equal(t, 1, cfg.DeviceCallsPerDay)
	assert.Equal(t, 6*time.Hour, cfg.SweepInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRIAL_CHAT_PER_DAY", "3")
	t.Setenv("TRIAL_MIN_CAPTCHA_SCORE", "0.55")
	t.Setenv("TRIAL_ENABLED", "false")
	t.Setenv("SERVICE_TIMEZONE", "Asia/Shanghai")

	cfg := Load()
	assert.Equal(t, 3, cfg.ChatMessagesPerDay)
	assert.Equal(t, 0.55, cfg.MinCaptchaScore)
	assert.False(t, cfg.TrialEnabled)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{TimeZone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnvHappyHours(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []models.HappyHour
	}{
		{
			name:  "single window",
			value: "1080-1260",
			want:  []models.HappyHour{{StartMin: 1080, EndMin: 1260}},
		},
		{
			name:  "multiple windows",
			value: "540-600, 1080-1260",
			want:  []models.HappyHour{{StartMin: 540, EndMin: 600}, {StartMin: 1080, EndMin: 1260}},
		},
		{
			name:  "malformed entries skipped",
			value: "junk,1500-1600,300-200,1080-1260",
			want:  []models.HappyHour{{StartMin: 1080, EndMin: 1260}},
		},
		{
			name:  "all malformed falls back",
			value: "junk,more junk",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRIAL_HAPPY_HOURS", tt.value)
			assert.Equal(t, tt.want, getEnvHappyHours("TRIAL_HAPPY_HOURS", nil))
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.42")
	assert.Equal(t, 0.42, getEnvFloat("TEST_FLOAT", 0.1))

	t.Setenv("TEST_FLOAT", "not-a-number")
	assert.Equal(t, 0.1, getEnvFloat("TEST_FLOAT", 0.1))
}

func TestTrialPolicyFromEnv(t *testing.T) {
	t.Setenv("TRIAL_REQUIRE_HAPPY_HOUR", "true")
	t.Setenv("TRIAL_HAPPY_HOURS", "1080-1260")

	policy := Load().TrialPolicy()
	assert.True(t, policy.RequireHappyHour)
	assert.False(t, policy.InHappyHour(600))
	assert.True(t, policy.InHappyHour(1100))
}
