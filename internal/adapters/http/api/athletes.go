// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/registry"
)

// AthleteDependencies defines the interface for athlete operations.
type AthleteDependencies interface {
	CreateAthlete(ctx context.Context, in athlete.CreateInput) (*athlete.Profile, error)
	GetAthlete(ctx context.Context, athleteID string) (*athlete.Profile, error)
	UpdateAthleteProfile(ctx context.Context, athleteID string, in athlete.UpdateInput) (*athlete.Profile, error)
	SetAthleteOptOut(ctx context.Context, athleteID string, optOut bool) error
	ListAthleteDevices(ctx context.Context, athleteID string) ([]*registry.DeviceKey, error)
}

// AthletesHandler handles athlete profile requests.
type AthletesHandler struct {
	deps AthleteDependencies
}

// NewAthletesHandler creates a new athletes handler.
func NewAthletesHandler(deps AthleteDependencies) *AthletesHandler {
	return &AthletesHandler{deps: deps}
}

// createAthleteRequest mirrors the OpenAPI schema for POST /athletes.
type createAthleteRequest struct {
	DisplayName      string  `json:"displayName"`
	BirthYear        int     `json:"birthYear"`
	Gender           string  `json:"gender"`
	Country          string  `json:"country"`
	State            string  `json:"state"`
	City             string  `json:"city"`
	StandingHeightIn float64 `json:"standingHeightIn"`
}

// updateProfileRequest carries partial profile edits; absent fields are
// left unchanged.
type updateProfileRequest struct {
	DisplayName      *string  `json:"displayName"`
	Gender           *string  `json:"gender"`
	Country          *string  `json:"country"`
	State            *string  `json:"state"`
	City             *string  `json:"city"`
	StandingHeightIn *float64 `json:"standingHeightIn"`
}

// HandleCreate handles POST /athletes requests.
func (h *AthletesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_athlete"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createAthleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	profile, err := h.deps.CreateAthlete(r.Context(), athlete.CreateInput{
		DisplayName:      req.DisplayName,
		BirthYear:        req.BirthYear,
		Gender:           req.Gender,
		Country:          req.Country,
		State:            req.State,
		City:             req.City,
		StandingHeightIn: req.StandingHeightIn,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAthleteView(profile))
}

// HandleAthlete dispatches GET /athletes/{id}, POST /athletes/{id}/profile,
// POST /athletes/{id}/optout, and GET /athletes/{id}/devices.
func (h *AthletesHandler) HandleAthlete(w http.ResponseWriter, r *http.Request) {
	const op = "api.athlete"
	rest := strings.TrimPrefix(r.URL.Path, "/athletes/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		profile, err := h.deps.GetAthlete(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAthleteView(profile))

	case len(parts) == 2 && parts[1] == "profile" && r.Method == http.MethodPost:
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		profile, err := h.deps.UpdateAthleteProfile(r.Context(), parts[0], athlete.UpdateInput{
			DisplayName:      req.DisplayName,
			Gender:           req.Gender,
			Country:          req.Country,
			State:            req.State,
			City:             req.City,
			StandingHeightIn: req.StandingHeightIn,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAthleteView(profile))

	case len(parts) == 2 && parts[1] == "devices" && r.Method == http.MethodGet:
		keys, err := h.deps.ListAthleteDevices(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		views := make([]deviceView, 0, len(keys))
		for _, k := range keys {
			views = append(views, toDeviceView(k))
		}
		writeJSON(w, http.StatusOK, views)

	case len(parts) == 2 && parts[1] == "optout" && r.Method == http.MethodPost:
		var req struct {
			OptOut bool `json:"optOut"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetAthleteOptOut(r.Context(), parts[0], req.OptOut); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"optedOut": req.OptOut})

	default:
		http.NotFound(w, r)
	}
}
