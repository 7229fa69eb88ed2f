// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/youthperformance/xlens/internal/session"
)

// SessionDependencies defines the interface for capture session operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, athleteID, deviceKeyID string) (*session.Session, error)
}

// SessionsHandler handles capture session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// createSessionRequest mirrors the OpenAPI schema for POST /sessions.
type createSessionRequest struct {
	AthleteID   string `json:"athleteId"`
	DeviceKeyID string `json:"deviceKeyId"`
}

func (req createSessionRequest) validate() error {
	switch {
	case strings.TrimSpace(req.AthleteID) == "":
		return errors.New("missing athleteId")
	case strings.TrimSpace(req.DeviceKeyID) == "":
		return errors.New("missing deviceKeyId")
	}
	return nil
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, err := h.deps.CreateSession(r.Context(), req.AthleteID, req.DeviceKeyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(sess))
}
