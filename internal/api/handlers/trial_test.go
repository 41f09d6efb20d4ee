package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelive/backend/internal/api/response"
	"github.com/vibelive/backend/internal/models"
	"github.com/vibelive/backend/internal/trial"
)

// stubTrialAPI returns canned results so the handler's wiring and error
// mapping can be exercised without the real service.
type stubTrialAPI struct {
	issued    *models.IssuedIdentity
	reply     string
	cred      *models.CallCredential
	reactOK   bool
	remaining *models.RemainingQuota
	err       error

	gotToken   string
	gotMessage string
	gotOrigin  string
}

func (s *stubTrialAPI) IssueIdentity(ctx context.Context, fp models.DeviceFingerprint, riskToken, origin string) (*models.IssuedIdentity, error) {
	s.gotOrigin = origin
	if s.err != nil {
		return nil, s.err
	}
	return s.issued, nil
}

func (s *stubTrialAPI) ConsumeChat(ctx context.Context, token, message, deviceID string) (string, error) {
	s.gotToken, s.gotMessage = token, message
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubTrialAPI) ConsumeCall(ctx context.Context, token, targetID, deviceID, riskToken, origin string) (*models.CallCredential, error) {
	s.gotToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.cred, nil
}

func (s *stubTrialAPI) ConsumeReaction(ctx context.Context, token string) (bool, error) {
	s.gotToken = token
	if s.err != nil {
		return false, s.err
	}
	return s.reactOK, nil
}

func (s *stubTrialAPI) RemainingQuota(ctx context.Context, token string) (*models.RemainingQuota, error) {
	s.gotToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.remaining, nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var env response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestIssueCreated(t *testing.T) {
	stub := &stubTrialAPI{issued: &models.IssuedIdentity{Token: "tok-1", Flagged: false}}
	h := NewTrialHandler(stub)

	body := `{"device_fingerprint":{"device_id":"dev-1","user_agent":"UA"},"risk_token":"rt"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/issue", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()

	h.Issue(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "203.0.113.7", stub.gotOrigin)
	env := decodeEnvelope(t, rec)
	assert.Empty(t, env.Error)
	assert.Contains(t, rec.Body.String(), `"token":"tok-1"`)
}

func TestIssueMalformedBody(t *testing.T) {
	h := NewTrialHandler(&stubTrialAPI{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/issue", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.Issue(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.KindInvalidArgument, decodeEnvelope(t, rec).ErrorKind)
}

func TestChatSuccess(t *testing.T) {
	stub := &stubTrialAPI{reply: "hi from assistant"}
	h := NewTrialHandler(stub)

	body := `{"token":"tok-1","message":"hello","device_id":"dev-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-1", stub.gotToken)
	assert.Equal(t, "hello", stub.gotMessage)
	assert.Contains(t, rec.Body.String(), `"reply":"hi from assistant"`)
}

func TestTrialErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{name: "invalid argument", err: trial.ErrInvalidArgument, wantStatus: http.StatusBadRequest, wantKind: response.KindInvalidArgument},
		{name: "unknown token", err: trial.ErrUnknownToken, wantStatus: http.StatusUnauthorized, wantKind: response.KindPermissionDenied},
		{name: "risk too low", err: trial.ErrRiskScoreTooLow, wantStatus: http.StatusForbidden, wantKind: response.KindAuthorizationDenied},
		{name: "trial disabled", err: trial.ErrTrialDisabled, wantStatus: http.StatusConflict, wantKind: response.KindFailedPrecondition},
		{name: "outside happy hours", err: trial.ErrOutsideHappyHours, wantStatus: http.StatusConflict, wantKind: response.KindFailedPrecondition},
		{name: "quota exceeded", err: trial.ErrQuotaExceeded, wantStatus: http.StatusTooManyRequests, wantKind: response.KindResourceExhausted},
		{name: "wrapped sentinel", err: errors.Join(errors.New("context"), trial.ErrQuotaExceeded), wantStatus: http.StatusTooManyRequests, wantKind: response.KindResourceExhausted},
		{name: "unexpected error", err: errors.New("database down"), wantStatus: http.StatusInternalServerError, wantKind: response.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTrialHandler(&stubTrialAPI{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/chat", strings.NewReader(`{"token":"t","message":"m"}`))
			rec := httptest.NewRecorder()
			h.Chat(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantKind, env.ErrorKind)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestUnexpectedErrorHidesDetail(t *testing.T) {
	h := NewTrialHandler(&stubTrialAPI{err: errors.New("pq: connection refused on 10.0.0.3")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/chat", strings.NewReader(`{"token":"t","message":"m"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestCallSuccess(t *testing.T) {
	stub := &stubTrialAPI{cred: &models.CallCredential{Channel: "trial_creator-9_ab", Credential: "signed", UID: 7, MaxDurationSeconds: 180}}
	h := NewTrialHandler(stub)

	body := `{"token":"tok-1","target_id":"creator-9","device_id":"dev-1","risk_token":"rt"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/call", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Call(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_duration_seconds":180`)
}

func TestReactionSoftDisable(t *testing.T) {
	h := NewTrialHandler(&stubTrialAPI{reactOK: false})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trial/reaction", strings.NewReader(`{"token":"tok-1"}`))
	rec := httptest.NewRecorder()
	h.Reaction(rec, req)

	// A disabled trial is not an error on this endpoint.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestQuotaRequiresBearerToken(t *testing.T) {
	stub := &stubTrialAPI{remaining: &models.RemainingQuota{DayKey: "2026-08-31", ChatRemaining: 2}}
	h := NewTrialHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trial/status", nil)
	rec := httptest.NewRecorder()
	h.Quota(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/trial/status", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec = httptest.NewRecorder()
	h.Quota(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-1", stub.gotToken)
	assert.Contains(t, rec.Body.String(), `"chat_remaining":2`)
}
