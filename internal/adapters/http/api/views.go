package api

import (
	"time"

	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/internal/vpc"
)

// Response views. Domain structs stay JSON-agnostic; the wire shapes live
// here and mirror the OpenAPI schemas.

type athleteView struct {
	ID               string  `json:"id"`
	DisplayName      string  `json:"displayName"`
	BirthYear        int     `json:"birthYear"`
	Gender           string  `json:"gender"`
	Country          string  `json:"country"`
	State            string  `json:"state,omitempty"`
	City             string  `json:"city,omitempty"`
	StandingHeightIn float64 `json:"standingHeightIn,omitempty"`
	AgeGroup         string  `json:"ageGroup"`
	OptedOut         bool    `json:"optedOut"`
	CreatedAt        string  `json:"createdAt"`
}

func toAthleteView(p *athlete.Profile) athleteView {
	return athleteView{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		BirthYear:        p.BirthYear,
		Gender:           p.Gender,
		Country:          p.Country,
		State:            p.State,
		City:             p.City,
		StandingHeightIn: p.StandingHeightIn,
		AgeGroup:         string(p.AgeGroupAt(time.Now().UTC().Year())),
		OptedOut:         p.OptedOut,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type deviceView struct {
	ID            string  `json:"id"`
	AthleteID     string  `json:"athleteId"`
	Platform      string  `json:"platform"`
	DeviceModel   string  `json:"deviceModel,omitempty"`
	OSVersion     string  `json:"osVersion,omitempty"`
	HardwareLevel string  `json:"hardwareLevel"`
	TrustScore    float64 `json:"trustScore"`
	Revoked       bool    `json:"revoked"`
	CreatedAt     string  `json:"createdAt"`
}

func toDeviceView(k *registry.DeviceKey) deviceView {
	return deviceView{
		ID:            k.ID,
		AthleteID:     k.AthleteID,
		Platform:      string(k.Platform),
		DeviceModel:   k.DeviceModel,
		OSVersion:     k.OSVersion,
		HardwareLevel: string(k.HardwareLevel),
		TrustScore:    k.TrustScore,
		Revoked:       k.Revoked(),
		CreatedAt:     k.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// sessionView is returned exactly once, at creation; the secret nonce is
// never readable again.
type sessionView struct {
	ID           string `json:"id"`
	SecretNonce  string `json:"secretNonce"`
	DisplayNonce string `json:"displayNonce"`
	ExpiresAt    string `json:"expiresAt"`
	TTLSeconds   int    `json:"ttlSeconds"`
}

func toSessionView(s *session.Session) sessionView {
	return sessionView{
		ID:           s.ID,
		SecretNonce:  s.SecretNonce,
		DisplayNonce: s.DisplayNonce,
		ExpiresAt:    s.ExpiresAt.UTC().Format(time.RFC3339),
		TTLSeconds:   int(s.TTL.Seconds()),
	}
}

type jumpView struct {
	ID            string            `json:"id"`
	AthleteID     string            `json:"athleteId"`
	SessionID     string            `json:"sessionId"`
	Status        string            `json:"status"`
	IsPractice    bool              `json:"isPractice"`
	HeightInches  float64           `json:"heightInches,omitempty"`
	HeightCm      float64           `json:"heightCm,omitempty"`
	FlightTimeMs  float64           `json:"flightTimeMs,omitempty"`
	Confidence    float64           `json:"confidence,omitempty"`
	Tier          string            `json:"tier,omitempty"`
	Gates         *model.GateScores `json:"gates,omitempty"`
	Issues        []string          `json:"issues,omitempty"`
	CertificateID string            `json:"certificateId,omitempty"`
	CreatedAt     string            `json:"createdAt"`
	ProcessedAt   string            `json:"processedAt,omitempty"`
}

func toJumpView(j *model.Jump) jumpView {
	v := jumpView{
		ID:            j.ID,
		AthleteID:     j.AthleteID,
		SessionID:     j.SessionID,
		Status:        string(j.Status),
		IsPractice:    j.IsPractice,
		HeightInches:  j.HeightInches,
		HeightCm:      j.HeightCm,
		FlightTimeMs:  j.FlightTimeMs,
		Confidence:    j.Confidence,
		Tier:          j.Tier,
		Gates:         j.Gates,
		Issues:        j.Issues,
		CertificateID: j.CertificateID,
		CreatedAt:     j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !j.ProcessedAt.IsZero() {
		v.ProcessedAt = j.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return v
}

type uploadView struct {
	BlobID    string `json:"blobId"`
	UploadURL string `json:"uploadUrl"`
}

type submitResponse struct {
	Jump         jumpView   `json:"jump"`
	VideoUpload  uploadView `json:"videoUpload"`
	SensorUpload uploadView `json:"sensorUpload"`
}

type provenanceView struct {
	Platform     string  `json:"platform"`
	DeviceModel  string  `json:"deviceModel"`
	OSVersion    string  `json:"osVersion,omitempty"`
	AppVersion   string  `json:"appVersion,omitempty"`
	CapturedAtMs int64   `json:"capturedAtMs"`
	FPS          float64 `json:"fps"`
}

type hashesView struct {
	VideoSHA256  string `json:"videoSha256"`
	SensorSHA256 string `json:"sensorSha256"`
}

type claimsView struct {
	CertificateID string         `json:"certificateId"`
	AthleteRef    string         `json:"athleteRef"`
	TestType      string         `json:"testType"`
	HeightInches  float64        `json:"heightInches"`
	HeightCm      float64        `json:"heightCm"`
	FlightTimeMs  float64        `json:"flightTimeMs"`
	Tier          string         `json:"tier"`
	GatesPassed   []string       `json:"gatesPassed"`
	Confidence    float64        `json:"confidence"`
	MeasuredAt    int64          `json:"measuredAt"`
	Issuer        string         `json:"issuer"`
	Capture       provenanceView `json:"capture"`
	Hashes        hashesView     `json:"hashes"`
}

func toClaimsView(c *vpc.Claims) claimsView {
	return claimsView{
		CertificateID: c.CertificateID,
		AthleteRef:    c.AthleteRef,
		TestType:      c.TestType,
		HeightInches:  c.HeightInches,
		HeightCm:      c.HeightCm,
		FlightTimeMs:  c.FlightTimeMs,
		Tier:          c.Tier,
		GatesPassed:   c.GatesPassed,
		Confidence:    c.Confidence,
		MeasuredAt:    c.MeasuredAt,
		Issuer:        c.Issuer,
		Capture: provenanceView{
			Platform:     c.Capture.Platform,
			DeviceModel:  c.Capture.DeviceModel,
			OSVersion:    c.Capture.OSVersion,
			AppVersion:   c.Capture.AppVersion,
			CapturedAtMs: c.Capture.CapturedAtMs,
			FPS:          c.Capture.FPS,
		},
		Hashes: hashesView{
			VideoSHA256:  c.Hashes.VideoSHA256,
			SensorSHA256: c.Hashes.SensorSHA256,
		},
	}
}

type certificateView struct {
	ID       string     `json:"id"`
	JumpID   string     `json:"jumpId"`
	Claims   claimsView `json:"claims"`
	IssuedAt string     `json:"issuedAt"`
}

func toCertificateView(c *vpc.Certificate) certificateView {
	return certificateView{
		ID:       c.ID,
		JumpID:   c.JumpID,
		Claims:   toClaimsView(&c.Claims),
		IssuedAt: c.IssuedAt.UTC().Format(time.RFC3339),
	}
}

type entryView struct {
	Rank        int     `json:"rank"`
	AthleteID   string  `json:"athleteId"`
	DisplayName string  `json:"displayName"`
	HeightIn    float64 `json:"heightIn"`
	Tier        string  `json:"tier"`
	JumpID      string  `json:"jumpId"`
	AgeGroup    string  `json:"ageGroup"`
	Gender      string  `json:"gender"`
	Country     string  `json:"country"`
	State       string  `json:"state,omitempty"`
	City        string  `json:"city,omitempty"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toEntryView(e Entry) entryView {
	return entryView{
		Rank:        e.Rank,
		AthleteID:   e.AthleteID,
		DisplayName: e.DisplayName,
		HeightIn:    e.HeightIn,
		Tier:        string(e.Tier),
		JumpID:      e.JumpID,
		AgeGroup:    string(e.AgeGroup),
		Gender:      e.Gender,
		Country:     e.Country,
		State:       e.State,
		City:        e.City,
		UpdatedAt:   e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toEntryViews(entries []Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryView(e))
	}
	return out
}
