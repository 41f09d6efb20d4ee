package models

import (
	"time"
	"unicode/utf8"
)

// TrialIdentity is the authoritative per-token quota record. All four
// counters share one DayKey and are reset together when the day rolls over.
type TrialIdentity struct {
	Token         string            `json:"token" db:"token"`
	Fingerprint   DeviceFingerprint `json:"fingerprint" db:"fingerprint"`
	OriginHash    string            `json:"-" db:"origin_hash"`
	DayKey        string            `json:"day_key" db:"day_key"`
	ChatUsed      int               `json:"chat_used" db:"chat_used"`
	CallsUsed     int               `json:"calls_used" db:"calls_used"`
	SecondsUsed   int               `json:"seconds_used" db:"seconds_used"`
	ReactionsUsed int               `json:"reactions_used" db:"reactions_used"`
	RiskScore     float64           `json:"risk_score" db:"risk_score"`
	Flagged       bool              `json:"flagged" db:"flagged"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// DeviceFingerprint is a bundle of client-reported signals stored for abuse
// review. It is advisory only and never trusted for policy decisions.
type DeviceFingerprint struct {
	DeviceID  string `json:"device_id"`
	UserAgent string `json:"user_agent"`
	Screen    string `json:"screen"`
	Timezone  string `json:"timezone"`
	Locale    string `json:"locale"`
}

// Maximum stored lengths for fingerprint fields. Values beyond these are
// truncated at issuance so a hostile client cannot inflate storage.
const (
	MaxDeviceIDLen  = 64
	MaxUserAgentLen = 200
	MaxScreenLen    = 32
	MaxTimezoneLen  = 64
	MaxLocaleLen    = 32
)

// Truncated returns a copy of the fingerprint with every field capped to its
// stored maximum.
func (f DeviceFingerprint) Truncated() DeviceFingerprint {
	return DeviceFingerprint{
		DeviceID:  truncate(f.DeviceID, MaxDeviceIDLen),
		UserAgent: truncate(f.UserAgent, MaxUserAgentLen),
		Screen:    truncate(f.Screen, MaxScreenLen),
		Timezone:  truncate(f.Timezone, MaxTimezoneLen),
		Locale:    truncate(f.Locale, MaxLocaleLen),
	}
}

// truncate caps s at max bytes without splitting a rune; the record columns
// are TEXT and reject invalid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// DeviceKind identifies a coarse device-limiter counter.
type DeviceKind string

const (
	DeviceKindAI   DeviceKind = "ai"
	DeviceKindCall DeviceKind = "call"
)

// Valid reports whether the kind is one the device limiter tracks.
func (k DeviceKind) Valid() bool {
	return k == DeviceKindAI || k == DeviceKindCall
}

// HappyHour is an inclusive minute-of-day window during which trial calls are
// permitted when the happy-hour gate is enabled.
type HappyHour struct {
	StartMin int `json:"start_min"`
	EndMin   int `json:"end_min"`
}

// Contains reports whether the given minute of day falls inside the window.
func (h HappyHour) Contains(minute int) bool {
	return minute >= h.StartMin && minute <= h.EndMin
}

// TrialPolicy is the externally administered trial configuration. It is read
// on every policy-sensitive operation and never written by this service.
type TrialPolicy struct {
	Enabled            bool        `json:"enabled"`
	ChatMessagesPerDay int         `json:"chat_messages_per_day"`
	CallsPerDay        int         `json:"calls_per_day"`
	CallSeconds        int         `json:"call_seconds"`
	ReactionLimit      int         `json:"reaction_limit"`
	HappyHours         []HappyHour `json:"happy_hours"`
	RequireHappyHour   bool        `json:"require_happy_hour"`
	MinCaptchaScore    float64     `json:"min_captcha_score"`
}

// InHappyHour reports whether the minute of day satisfies the happy-hour
// gate. An empty window list or a disabled gate always passes.
func (p TrialPolicy) InHappyHour(minute int) bool {
	if !p.RequireHappyHour || len(p.HappyHours) == 0 {
		return true
	}
	for _, h := range p.HappyHours {
		if h.Contains(minute) {
			return true
		}
	}
	return false
}

// IssuedIdentity is the issuance result returned to the caller. The token is
// a bearer credential; it is shown exactly once.
type IssuedIdentity struct {
	Token   string `json:"token"`
	Flagged bool   `json:"flagged"`
}

// CallCredential is the time-boxed connection grant handed back after a call
// unit has been reserved.
type CallCredential struct {
	Channel            string    `json:"channel"`
	Credential         string    `json:"credential"`
	UID                uint32    `json:"uid"`
	ExpiresAt          time.Time `json:"expires_at"`
	MaxDurationSeconds int       `json:"max_duration_seconds"`
}

// RemainingQuota is the per-kind allowance left for a token today.
type RemainingQuota struct {
	DayKey             string `json:"day_key"`
	ChatRemaining      int    `json:"chat_remaining"`
	CallsRemaining     int    `json:"calls_remaining"`
	ReactionsRemaining int    `json:"reactions_remaining"`
	CallSeconds        int    `json:"call_seconds"`
}
