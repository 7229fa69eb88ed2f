// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/youthperformance/xlens/internal/app"
	"github.com/youthperformance/xlens/internal/domain/model"
)

// JumpDependencies defines the interface for jump submission operations.
type JumpDependencies interface {
	SubmitJump(ctx context.Context, in app.SubmitInput) (*app.SubmitResult, error)
	ConfirmUploaded(ctx context.Context, jumpID string) error
	GetJump(ctx context.Context, jumpID string) (*model.Jump, error)
	ListJumps(ctx context.Context, athleteID string) ([]*model.Jump, error)
}

// JumpsHandler handles jump submission requests.
type JumpsHandler struct {
	deps JumpDependencies
}

// NewJumpsHandler creates a new jumps handler.
func NewJumpsHandler(deps JumpDependencies) *JumpsHandler {
	return &JumpsHandler{deps: deps}
}

// submitJumpRequest mirrors the OpenAPI schema for POST /jumps.
type submitJumpRequest struct {
	AthleteID  string             `json:"athleteId"`
	IsPractice bool               `json:"isPractice"`
	Proof      model.ProofPayload `json:"proof"`
}

func (req submitJumpRequest) validate() error {
	switch {
	case strings.TrimSpace(req.AthleteID) == "":
		return errors.New("missing athleteId")
	case strings.TrimSpace(req.Proof.SessionID) == "":
		return errors.New("missing proof.sessionId")
	case strings.TrimSpace(req.Proof.Nonce) == "":
		return errors.New("missing proof.nonce")
	case strings.TrimSpace(req.Proof.Signature.KeyID) == "":
		return errors.New("missing proof.signature.keyId")
	case strings.TrimSpace(req.Proof.Signature.Value) == "":
		return errors.New("missing proof.signature.value")
	case strings.TrimSpace(req.Proof.Hashes.VideoSHA256) == "":
		return errors.New("missing proof.hashes.videoSha256")
	}
	return nil
}

// HandleSubmit handles POST /jumps and GET /jumps?athleteId= requests.
func (h *JumpsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_jump"
	if r.Method == http.MethodGet {
		h.handleList(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submitJumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.SubmitJump(r.Context(), app.SubmitInput{
		AthleteID:  req.AthleteID,
		IsPractice: req.IsPractice,
		Proof:      req.Proof,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		Jump:         toJumpView(res.Jump),
		VideoUpload:  uploadView{BlobID: res.VideoUpload.BlobID, UploadURL: res.VideoUpload.UploadURL},
		SensorUpload: uploadView{BlobID: res.SensorUpload.BlobID, UploadURL: res.SensorUpload.UploadURL},
	})
}

// handleList serves an athlete's submission history, newest first.
func (h *JumpsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_jumps"
	athleteID := strings.TrimSpace(r.URL.Query().Get("athleteId"))
	if athleteID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing athleteId")))
		return
	}
	jumps, err := h.deps.ListJumps(r.Context(), athleteID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]jumpView, 0, len(jumps))
	for _, j := range jumps {
		views = append(views, toJumpView(j))
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleJump dispatches GET /jumps/{id} and POST /jumps/{id}/uploaded.
func (h *JumpsHandler) HandleJump(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/jumps/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		jump, err := h.deps.GetJump(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJumpView(jump))

	case len(parts) == 2 && parts[1] == "uploaded" && r.Method == http.MethodPost:
		if err := h.deps.ConfirmUploaded(r.Context(), parts[0]); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})

	default:
		http.NotFound(w, r)
	}
}
