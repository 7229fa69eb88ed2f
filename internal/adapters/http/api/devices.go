// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/registry"
)

// DeviceDependencies defines the interface for device key operations.
type DeviceDependencies interface {
	RegisterDevice(ctx context.Context, in registry.RegisterInput) (*registry.DeviceKey, bool, error)
	RevokeDevice(ctx context.Context, keyID, reason string) error
	DegradeDeviceTrust(ctx context.Context, keyID string, proposed float64) (float64, error)
	GetDevice(ctx context.Context, keyID string) (*registry.DeviceKey, error)
}

// DevicesHandler handles device key requests.
type DevicesHandler struct {
	deps DeviceDependencies
}

// NewDevicesHandler creates a new devices handler.
func NewDevicesHandler(deps DeviceDependencies) *DevicesHandler {
	return &DevicesHandler{deps: deps}
}

// registerDeviceRequest mirrors the OpenAPI schema for POST /devices.
type registerDeviceRequest struct {
	AthleteID        string   `json:"athleteId"`
	PublicKey        string   `json:"publicKey"`
	Platform         string   `json:"platform"`
	DeviceModel      string   `json:"deviceModel"`
	OSVersion        string   `json:"osVersion"`
	HardwareLevel    string   `json:"hardwareLevel"`
	AttestationChain []string `json:"attestationChain"`
}

func (req registerDeviceRequest) validate() error {
	switch {
	case strings.TrimSpace(req.AthleteID) == "":
		return errors.New("missing athleteId")
	case strings.TrimSpace(req.PublicKey) == "":
		return errors.New("missing publicKey")
	}
	switch model.Platform(req.Platform) {
	case model.PlatformIOS, model.PlatformAndroid:
	default:
		return errors.New("platform must be ios or android")
	}
	switch model.HardwareLevel(req.HardwareLevel) {
	case model.HardwareSecureElement, model.HardwareTEE, model.HardwareSoftware:
	default:
		return errors.New("hardwareLevel must be secure_element, tee, or software")
	}
	return nil
}

// HandleRegister handles POST /devices requests.
func (h *DevicesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_device"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	key, created, err := h.deps.RegisterDevice(r.Context(), registry.RegisterInput{
		AthleteID:        req.AthleteID,
		PublicKey:        req.PublicKey,
		Platform:         model.Platform(req.Platform),
		DeviceModel:      req.DeviceModel,
		OSVersion:        req.OSVersion,
		HardwareLevel:    model.HardwareLevel(req.HardwareLevel),
		AttestationChain: req.AttestationChain,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toDeviceView(key))
}

// HandleDevice dispatches GET /devices/{id}, POST /devices/{id}/revoke, and
// POST /devices/{id}/trust.
func (h *DevicesHandler) HandleDevice(w http.ResponseWriter, r *http.Request) {
	const op = "api.device"
	rest := strings.TrimPrefix(r.URL.Path, "/devices/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		key, err := h.deps.GetDevice(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeviceView(key))

	case len(parts) == 2 && parts[1] == "revoke" && r.Method == http.MethodPost:
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.RevokeDevice(r.Context(), parts[0], req.Reason); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})

	case len(parts) == 2 && parts[1] == "trust" && r.Method == http.MethodPost:
		var req struct {
			TrustScore float64 `json:"trustScore"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		score, err := h.deps.DegradeDeviceTrust(r.Context(), parts[0], req.TrustScore)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"trustScore": score})

	default:
		http.NotFound(w, r)
	}
}
