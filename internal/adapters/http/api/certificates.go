// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/youthperformance/xlens/internal/vpc"
)

// CertificateDependencies defines the interface for certificate operations.
type CertificateDependencies interface {
	IssueCertificate(ctx context.Context, jumpID string) (*vpc.Certificate, error)
	VerifyCertificate(ctx context.Context, certificateID string) (*vpc.Claims, error)
	VerifySharedCertificate(ctx context.Context, token string) (*vpc.Claims, error)
	ExportCertificate(ctx context.Context, certificateID string) (*vpc.Portable, error)
}

// CertificatesHandler handles certificate requests.
type CertificatesHandler struct {
	deps CertificateDependencies
}

// NewCertificatesHandler creates a new certificates handler.
func NewCertificatesHandler(deps CertificateDependencies) *CertificatesHandler {
	return &CertificatesHandler{deps: deps}
}

// issueCertificateRequest mirrors the OpenAPI schema for POST /certificates.
type issueCertificateRequest struct {
	JumpID string `json:"jumpId"`
}

// HandleIssue handles POST /certificates requests.
func (h *CertificatesHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	const op = "api.issue_certificate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req issueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.JumpID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing jumpId")))
		return
	}
	cert, err := h.deps.IssueCertificate(r.Context(), req.JumpID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCertificateView(cert))
}

// HandleCertificate dispatches GET /certificates/{id}/export.
func (h *CertificatesHandler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/certificates/")
	parts := strings.Split(rest, "/")

	if len(parts) == 2 && parts[1] == "export" && r.Method == http.MethodGet {
		portable, err := h.deps.ExportCertificate(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, portable)
		return
	}
	http.NotFound(w, r)
}

// HandleVerify handles GET /verify/{certificateId} requests. A share token
// in the token query parameter takes precedence over the path id, so share
// links keep verifying even if the path is altered.
func (h *CertificatesHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	var claims *vpc.Claims
	var err error
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err = h.deps.VerifySharedCertificate(r.Context(), token)
	} else {
		path := strings.TrimPrefix(r.URL.Path, "/verify/")
		if path == "" || strings.Contains(path, "/") {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		claims, err = h.deps.VerifyCertificate(r.Context(), path)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  true,
		"claims": toClaimsView(claims),
	})
}
