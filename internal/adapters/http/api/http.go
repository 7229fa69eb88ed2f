// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/app"
	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/internal/vpc"
)

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = repository.Entry

// Filter mirrors the cohort filter accepted by leaderboard queries.
type Filter = repository.Filter

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateAthlete(ctx context.Context, in athlete.CreateInput) (*athlete.Profile, error)
	GetAthlete(ctx context.Context, athleteID string) (*athlete.Profile, error)
	UpdateAthleteProfile(ctx context.Context, athleteID string, in athlete.UpdateInput) (*athlete.Profile, error)
	SetAthleteOptOut(ctx context.Context, athleteID string, optOut bool) error
	ListAthleteDevices(ctx context.Context, athleteID string) ([]*registry.DeviceKey, error)

	RegisterDevice(ctx context.Context, in registry.RegisterInput) (*registry.DeviceKey, bool, error)
	RevokeDevice(ctx context.Context, keyID, reason string) error
	DegradeDeviceTrust(ctx context.Context, keyID string, proposed float64) (float64, error)
	GetDevice(ctx context.Context, keyID string) (*registry.DeviceKey, error)

	CreateSession(ctx context.Context, athleteID, deviceKeyID string) (*session.Session, error)

	SubmitJump(ctx context.Context, in app.SubmitInput) (*app.SubmitResult, error)
	ConfirmUploaded(ctx context.Context, jumpID string) error
	GetJump(ctx context.Context, jumpID string) (*model.Jump, error)
	ListJumps(ctx context.Context, athleteID string) ([]*model.Jump, error)

	IssueCertificate(ctx context.Context, jumpID string) (*vpc.Certificate, error)
	VerifyCertificate(ctx context.Context, certificateID string) (*vpc.Claims, error)
	VerifySharedCertificate(ctx context.Context, token string) (*vpc.Claims, error)
	ExportCertificate(ctx context.Context, certificateID string) (*vpc.Portable, error)

	TopN(ctx context.Context, f Filter, n int) ([]Entry, error)
	Rank(ctx context.Context, athleteID string) (Entry, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	athletesHandler     *AthletesHandler
	devicesHandler      *DevicesHandler
	sessionsHandler     *SessionsHandler
	jumpsHandler        *JumpsHandler
	certificatesHandler *CertificatesHandler
	leaderboardHandler  *LeaderboardHandler
	rankHandler         *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		athletesHandler:     NewAthletesHandler(deps),
		devicesHandler:      NewDevicesHandler(deps),
		sessionsHandler:     NewSessionsHandler(deps),
		jumpsHandler:        NewJumpsHandler(deps),
		certificatesHandler: NewCertificatesHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps, maxLeaderboardLimit),
		rankHandler:         NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/athletes", MetricsMiddleware(s.athletesHandler.HandleCreate, "athletes"))
	mux.HandleFunc("/athletes/", MetricsMiddleware(s.athletesHandler.HandleAthlete, "athletes"))
	mux.HandleFunc("/devices", MetricsMiddleware(s.devicesHandler.HandleRegister, "devices"))
	mux.HandleFunc("/devices/", MetricsMiddleware(s.devicesHandler.HandleDevice, "devices"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("/jumps", MetricsMiddleware(s.jumpsHandler.HandleSubmit, "jumps"))
	mux.HandleFunc("/jumps/", MetricsMiddleware(s.jumpsHandler.HandleJump, "jumps"))
	mux.HandleFunc("/certificates", MetricsMiddleware(s.certificatesHandler.HandleIssue, "certificates"))
	mux.HandleFunc("/certificates/", MetricsMiddleware(s.certificatesHandler.HandleCertificate, "certificates"))
	mux.HandleFunc("/verify/", MetricsMiddleware(s.certificatesHandler.HandleVerify, "verify"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates a domain sentinel into its HTTP shape.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
