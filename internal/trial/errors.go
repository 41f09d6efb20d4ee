package trial

import "errors"

var (
	// ErrInvalidArgument is returned for malformed caller input, before any
	// quota or external call is made.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRiskScoreTooLow is returned when the resolved risk score is below
	// the configured minimum. The caller should retry with fresh
	// verification, never automatically.
	ErrRiskScoreTooLow = errors.New("risk score below minimum")
	// ErrTrialDisabled is returned when the trial feature is switched off
	// globally.
	ErrTrialDisabled = errors.New("trial disabled")
	// ErrOutsideHappyHours is returned when the happy-hour gate is enforced
	// and the current time falls outside every configured window.
	ErrOutsideHappyHours = errors.New("outside happy hours")
	// ErrQuotaExceeded is returned when any quota ceiling (coarse device or
	// fine-grained per-kind) has been reached for the day.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUnknownToken is returned when the presented token does not
	// correspond to any issued trial identity.
	ErrUnknownToken = errors.New("unknown trial token")
)
