// Package trial implements the guest-trial quota service: anonymous identity
// issuance, per-day per-kind usage ceilings, and the abuse-mitigation checks
// that gate chat, call, and reaction actions for not-yet-registered users.
package trial

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vibelive/backend/internal/models"
)

// MaxChatMessageLen is the maximum accepted guest chat message length.
const MaxChatMessageLen = 500

// Default risk-score policy. The neutral score keeps environments without a
// verification provider usable; the degraded score reflects reduced
// confidence when the provider is unreachable, without disqualifying the
// caller outright.
const (
	DefaultNeutralRiskScore  = 0.5
	DefaultDegradedRiskScore = 0.3
	DefaultFlagThreshold     = 0.5
)

// IdentityStore is the authoritative per-token record store. Mutate must run
// fn inside a transaction that serializes concurrent calls for the same
// token; two concurrent consumptions must never both succeed when only one
// unit of quota remains.
type IdentityStore interface {
	Create(ctx context.Context, id *models.TrialIdentity) error
	Get(ctx context.Context, token string) (*models.TrialIdentity, error)
	Mutate(ctx context.Context, token string, fn func(id *models.TrialIdentity) error) error
}

// DeviceLimiter is the coarse pre-emptive limiter keyed by a client-supplied
// device id. Allow consumes one unit on success and must be atomic per
// device.
type DeviceLimiter interface {
	Allow(ctx context.Context, deviceID string, kind models.DeviceKind) (bool, error)
}

// PolicyProvider supplies the externally administered trial policy. It is
// consulted on every policy-sensitive operation.
type PolicyProvider interface {
	Policy(ctx context.Context) (models.TrialPolicy, error)
}

// RiskVerifier resolves an opaque client risk token into a score in [0,1].
type RiskVerifier interface {
	Verify(ctx context.Context, riskToken, remoteIP string) (float64, error)
}

// CredentialIssuer mints a time-boxed connection credential once a call unit
// has been reserved.
type CredentialIssuer interface {
	Issue(channel string, uid uint32, maxDuration time.Duration) (*models.CallCredential, error)
}

// ReplyGenerator produces the assistant reply for a guest chat message. It
// is invoked only after the chat quota unit has been committed.
type ReplyGenerator interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Deps bundles the collaborators a Service needs.
type Deps struct {
	Store    IdentityStore
	Devices  DeviceLimiter
	Policies PolicyProvider
	Risk     RiskVerifier
	RTC      CredentialIssuer
	Replies  ReplyGenerator

	// Location is the service timezone used for day keys and happy hours.
	Location *time.Location
	// OriginSalt salts the one-way hash of the caller's network origin.
	OriginSalt string

	NeutralRiskScore  float64
	DegradedRiskScore float64
	FlagThreshold     float64

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

// Service coordinates the two limiter layers and the external providers.
// Each method is a stateless request handler; all correctness-critical state
// lives behind IdentityStore and DeviceLimiter.
type Service struct {
	store    IdentityStore
	devices  DeviceLimiter
	policies PolicyProvider
	risk     RiskVerifier
	rtc      CredentialIssuer
	replies  ReplyGenerator

	loc        *time.Location
	originSalt string

	neutralScore  float64
	degradedScore float64
	flagThreshold float64

	now func() time.Time
}

// NewService creates a trial service. Zero-valued optional fields in deps
// fall back to UTC, time.Now, and the default risk-score policy.
func NewService(deps Deps) *Service {
	s := &Service{
		store:         deps.Store,
		devices:       deps.Devices,
		policies:      deps.Policies,
		risk:          deps.Risk,
		rtc:           deps.RTC,
		replies:       deps.Replies,
		loc:           deps.Location,
		originSalt:    deps.OriginSalt,
		neutralScore:  deps.NeutralRiskScore,
		degradedScore: deps.DegradedRiskScore,
		flagThreshold: deps.FlagThreshold,
		now:           deps.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.neutralScore == 0 {
		s.neutralScore = DefaultNeutralRiskScore
	}
	if s.degradedScore == 0 {
		s.degradedScore = DefaultDegradedRiskScore
	}
	if s.flagThreshold == 0 {
		s.flagThreshold = DefaultFlagThreshold
	}
	return s
}

// IssueIdentity creates a new anonymous trial identity and returns its
// bearer token. The risk score is resolved before anything is persisted;
// a score below the policy minimum creates no record.
func (s *Service) IssueIdentity(ctx context.Context, fp models.DeviceFingerprint, riskToken, origin string) (*models.IssuedIdentity, error) {
	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trial policy: %w", err)
	}

	score := s.resolveRiskScore(ctx, riskToken, origin)
	if score < policy.MinCaptchaScore {
		return nil, fmt.Errorf("%w: score %.2f below minimum %.2f", ErrRiskScoreTooLow, score, policy.MinCaptchaScore)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	identity := &models.TrialIdentity{
		Token:       token,
		Fingerprint: fp.Truncated(),
		OriginHash:  HashOrigin(s.originSalt, origin),
		DayKey:      DayKey(now, s.loc),
		RiskScore:   score,
		Flagged:     score < s.flagThreshold,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to persist trial identity: %w", err)
	}

	return &models.IssuedIdentity{Token: token, Flagged: identity.Flagged}, nil
}

// ConsumeChat spends one chat unit for the token and returns the generated
// reply. The reply provider is called only after the quota transaction has
// committed; a downstream failure does not refund the unit.
func (s *Service) ConsumeChat(ctx context.Context, token, message, deviceID string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrInvalidArgument)
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidArgument)
	}
	if len(message) > MaxChatMessageLen {
		return "", fmt.Errorf("%w: message exceeds %d characters", ErrInvalidArgument, MaxChatMessageLen)
	}

	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load trial policy: %w", err)
	}
	if !policy.Enabled {
		return "", ErrTrialDisabled
	}

	// Coarse pre-filter before the fine-grained record is touched, so
	// abusive load is shed cheaply.
	allowed, err := s.devices.Allow(ctx, s.deviceKey(deviceID, token), models.DeviceKindAI)
	if err != nil {
		return "", fmt.Errorf("device pre-check failed: %w", err)
	}
	if !allowed {
		return "", fmt.Errorf("%w: device daily limit reached", ErrQuotaExceeded)
	}

	err = s.consume(ctx, token, func(id *models.TrialIdentity) (*int, int) {
		return &id.ChatUsed, policy.ChatMessagesPerDay
	})
	if err != nil {
		return "", err
	}

	// The unit is spent at this point regardless of what the reply
	// provider does.
	reply, err := s.replies.Reply(ctx, message)
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}
	return reply, nil
}

// ConsumeCall reserves one call unit and returns a time-boxed connection
// credential carrying the configured maximum call duration.
func (s *Service) ConsumeCall(ctx context.Context, token, targetID, deviceID, riskToken, origin string) (*models.CallCredential, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidArgument)
	}
	if targetID == "" {
		return nil, fmt.Errorf("%w: missing target id", ErrInvalidArgument)
	}

	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trial policy: %w", err)
	}
	if !policy.Enabled {
		return nil, ErrTrialDisabled
	}

	score := s.resolveRiskScore(ctx, riskToken, origin)
	if score < policy.MinCaptchaScore {
		return nil, fmt.Errorf("%w: score %.2f below minimum %.2f", ErrRiskScoreTooLow, score, policy.MinCaptchaScore)
	}

	allowed, err := s.devices.Allow(ctx, s.deviceKey(deviceID, token), models.DeviceKindCall)
	if err != nil {
		return nil, fmt.Errorf("device pre-check failed: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: device daily limit reached", ErrQuotaExceeded)
	}

	if !policy.InHappyHour(MinuteOfDay(s.now(), s.loc)) {
		return nil, ErrOutsideHappyHours
	}

	err = s.consume(ctx, token, func(id *models.TrialIdentity) (*int, int) {
		// Account the reserved duration alongside the call unit; both
		// roll over together.
		id.SecondsUsed += policy.CallSeconds
		return &id.CallsUsed, policy.CallsPerDay
	})
	if err != nil {
		return nil, err
	}

	uid, err := randomUID()
	if err != nil {
		return nil, err
	}
	channel, err := callChannel(targetID)
	if err != nil {
		return nil, err
	}

	cred, err := s.rtc.Issue(channel, uid, time.Duration(policy.CallSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to issue call credential: %w", err)
	}
	return cred, nil
}

// ConsumeReaction spends one reaction unit. Reactions are non-critical, so a
// globally disabled trial returns (false, nil) instead of an error; quota
// exhaustion and unknown tokens still surface as errors.
func (s *Service) ConsumeReaction(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("%w: missing token", ErrInvalidArgument)
	}

	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load trial policy: %w", err)
	}
	if !policy.Enabled {
		return false, nil
	}

	err = s.consume(ctx, token, func(id *models.TrialIdentity) (*int, int) {
		return &id.ReactionsUsed, policy.ReactionLimit
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemainingQuota reports the per-kind allowance the token has left today.
// Read-only: a stale day key is presented as a full allowance without
// mutating the record.
func (s *Service) RemainingQuota(ctx context.Context, token string) (*models.RemainingQuota, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidArgument)
	}

	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trial policy: %w", err)
	}

	id, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	today := DayKey(s.now(), s.loc)
	chat, calls, reactions := id.ChatUsed, id.CallsUsed, id.ReactionsUsed
	if id.DayKey != today {
		chat, calls, reactions = 0, 0, 0
	}

	return &models.RemainingQuota{
		DayKey:             today,
		ChatRemaining:      clampRemaining(policy.ChatMessagesPerDay - chat),
		CallsRemaining:     clampRemaining(policy.CallsPerDay - calls),
		ReactionsRemaining: clampRemaining(policy.ReactionLimit - reactions),
		CallSeconds:        policy.CallSeconds,
	}, nil
}

// consume runs the shared transactional check-and-increment. Day rollover is
// always the first step inside the transaction so that whichever action kind
// arrives first on a new day observes all counters reset together.
func (s *Service) consume(ctx context.Context, token string, pick func(id *models.TrialIdentity) (used *int, limit int)) error {
	today := DayKey(s.now(), s.loc)
	return s.store.Mutate(ctx, token, func(id *models.TrialIdentity) error {
		if id.DayKey != today {
			id.DayKey = today
			id.ChatUsed = 0
			id.CallsUsed = 0
			id.SecondsUsed = 0
			id.ReactionsUsed = 0
		}
		used, limit := pick(id)
		if *used >= limit {
			return fmt.Errorf("%w: daily limit reached", ErrQuotaExceeded)
		}
		*used++
		id.UpdatedAt = s.now()
		return nil
	})
}

// resolveRiskScore applies the fallback policy: no token yields the neutral
// default, a provider failure yields the degraded score. Provider flakiness
// is absorbed here rather than propagated.
func (s *Service) resolveRiskScore(ctx context.Context, riskToken, origin string) float64 {
	if riskToken == "" {
		return s.neutralScore
	}
	score, err := s.risk.Verify(ctx, riskToken, origin)
	if err != nil {
		log.Printf("[trial] risk verification failed, using degraded score: %v", err)
		return s.degradedScore
	}
	return score
}

// deviceKey derives the coarse limiter key from the caller-supplied device
// id, falling back to a truncation of the token.
func (s *Service) deviceKey(deviceID, token string) string {
	if deviceID != "" {
		return deviceID
	}
	if len(token) > models.MaxDeviceIDLen {
		return token[:models.MaxDeviceIDLen]
	}
	return token
}

func clampRemaining(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// randomUID returns a non-zero numeric session id for the RTC provider.
func randomUID() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to generate session uid: %w", err)
	}
	uid := binary.BigEndian.Uint32(buf[:])
	if uid == 0 {
		uid = 1
	}
	return uid, nil
}

// callChannel builds a channel name scoped to the call target with a random
// suffix so concurrent trials never collide.
func callChannel(targetID string) (string, error) {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate channel suffix: %w", err)
	}
	return "trial_" + targetID + "_" + hex.EncodeToString(buf[:]), nil
}
