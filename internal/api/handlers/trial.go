package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/vibelive/backend/internal/api/request"
	"github.com/vibelive/backend/internal/api/response"
	"github.com/vibelive/backend/internal/middleware"
	"github.com/vibelive/backend/internal/models"
	"github.com/vibelive/backend/internal/trial"
)

// TrialAPI is the trial service surface the handler needs.
type TrialAPI interface {
	IssueIdentity(ctx context.Context, fp models.DeviceFingerprint, riskToken, origin string) (*models.IssuedIdentity, error)
	ConsumeChat(ctx context.Context, token, message, deviceID string) (string, error)
	ConsumeCall(ctx context.Context, token, targetID, deviceID, riskToken, origin string) (*models.CallCredential, error)
	ConsumeReaction(ctx context.Context, token string) (bool, error)
	RemainingQuota(ctx context.Context, token string) (*models.RemainingQuota, error)
}

// TrialHandler handles the guest-trial API endpoints
type TrialHandler struct {
	svc TrialAPI
}

// NewTrialHandler creates a new trial handler
func NewTrialHandler(svc TrialAPI) *TrialHandler {
	return &TrialHandler{svc: svc}
}

// IssueRequest is the identity issuance payload
type IssueRequest struct {
	DeviceFingerprint models.DeviceFingerprint `json:"device_fingerprint"`
	RiskToken         string                   `json:"risk_token"`
}

// Issue handles POST /api/v1/trial/issue
func (h *TrialHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	issued, err := h.svc.IssueIdentity(r.Context(), req.DeviceFingerprint, req.RiskToken, request.ClientIP(r))
	if err != nil {
		writeTrialError(w, r, err)
		return
	}

	response.Created(w, issued)
}

// ChatRequest is the guest chat payload
type ChatRequest struct {
	Token     string `json:"token"`
	Message   string `json:"message"`
	DeviceID  string `json:"device_id"`
	RiskToken string `json:"risk_token"`
}

// ChatResponse carries the generated reply
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat handles POST /api/v1/trial/chat
func (h *TrialHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	reply, err := h.svc.ConsumeChat(r.Context(), req.Token, req.Message, req.DeviceID)
	if err != nil {
		writeTrialError(w, r, err)
		return
	}

	response.Success(w, ChatResponse{Reply: reply})
}

// CallRequest is the guest call payload
type CallRequest struct {
	Token     string `json:"token"`
	TargetID  string `json:"target_id"`
	DeviceID  string `json:"device_id"`
	RiskToken string `json:"risk_token"`
}

// Call handles POST /api/v1/trial/call
func (h *TrialHandler) Call(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	cred, err := h.svc.ConsumeCall(r.Context(), req.Token, req.TargetID, req.DeviceID, req.RiskToken, request.ClientIP(r))
	if err != nil {
		writeTrialError(w, r, err)
		return
	}

	response.Success(w, cred)
}

// ReactionRequest is the reaction payload
type ReactionRequest struct {
	Token string `json:"token"`
}

// ReactionResponse reports whether the reaction was accepted
type ReactionResponse struct {
	Success bool `json:"success"`
}

// Reaction handles POST /api/v1/trial/reaction
func (h *TrialHandler) Reaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	ok, err := h.svc.ConsumeReaction(r.Context(), req.Token)
	if err != nil {
		writeTrialError(w, r, err)
		return
	}

	// A disabled trial yields success=false here instead of an error;
	// reactions are non-critical.
	response.Success(w, ReactionResponse{Success: ok})
}

// Quota handles GET /api/v1/trial/status with a bearer trial token
func (h *TrialHandler) Quota(w http.ResponseWriter, r *http.Request) {
	token := request.BearerToken(r)
	if token == "" {
		response.BadRequest(w, "missing bearer trial token")
		return
	}

	remaining, err := h.svc.RemainingQuota(r.Context(), token)
	if err != nil {
		writeTrialError(w, r, err)
		return
	}

	response.Success(w, remaining)
}

// writeTrialError maps trial sentinels to error kinds. Kinds survive
// end-to-end so the UI can show distinct messages per failure.
func writeTrialError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, trial.ErrInvalidArgument):
		response.BadRequest(w, err.Error())
	case errors.Is(err, trial.ErrUnknownToken):
		response.Unauthorized(w, "unknown trial token, request a new one")
	case errors.Is(err, trial.ErrRiskScoreTooLow):
		response.Forbidden(w, "verification failed, please try again")
	case errors.Is(err, trial.ErrTrialDisabled):
		response.Conflict(w, "guest trial is currently unavailable")
	case errors.Is(err, trial.ErrOutsideHappyHours):
		response.Conflict(w, "trial calls are only available during happy hours")
	case errors.Is(err, trial.ErrQuotaExceeded):
		response.TooManyRequests(w, "daily trial limit reached, come back tomorrow")
	default:
		log.Printf("[trial] [%s] request failed: %v", middleware.GetRequestID(r.Context()), err)
		response.InternalError(w, "something went wrong")
	}
}
