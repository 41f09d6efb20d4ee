// Package rtc mints time-boxed connection credentials for the real-time
// communication provider. Credentials are signed locally with the provider
// app secret, the same way RTC vendors' token builders work; the provider
// enforces the embedded expiry and duration ceiling.
package rtc

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vibelive/backend/internal/models"
)

// DefaultGrace is the slack added on top of the granted call duration so a
// session is not cut off mid-teardown.
const DefaultGrace = 30 * time.Second

// Issuer mints call credentials for one RTC application.
type Issuer struct {
	appID  string
	secret []byte
	grace  time.Duration
	now    func() time.Time
}

// NewIssuer creates a credential issuer. A zero grace falls back to
// DefaultGrace.
func NewIssuer(appID, secret string, grace time.Duration) *Issuer {
	if grace == 0 {
		grace = DefaultGrace
	}
	return &Issuer{
		appID:  appID,
		secret: []byte(secret),
		grace:  grace,
		now:    time.Now,
	}
}

// Claims are the session claims embedded in a call credential.
type Claims struct {
	Channel    string `json:"channel"`
	UID        uint32 `json:"uid"`
	MaxSeconds int    `json:"max_seconds"`
	jwt.RegisteredClaims
}

// Issue returns a credential for channel/uid that expires at
// now + maxDuration + grace and advertises maxDuration as the session
// ceiling.
func (i *Issuer) Issue(channel string, uid uint32, maxDuration time.Duration) (*models.CallCredential, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	now := i.now()
	expiresAt := now.Add(maxDuration + i.grace)

	claims := Claims{
		Channel:    channel,
		UID:        uid,
		MaxSeconds: int(maxDuration.Seconds()),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.appID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign call credential: %w", err)
	}

	return &models.CallCredential{
		Channel:            channel,
		Credential:         signed,
		UID:                uid,
		ExpiresAt:          expiresAt,
		MaxDurationSeconds: int(maxDuration.Seconds()),
	}, nil
}

// Parse validates a credential string and returns its claims. Used by tests
// and by operators inspecting issued sessions.
func (i *Issuer) Parse(credential string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid call credential: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid call credential claims")
	}
	return claims, nil
}
